/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/devmon/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerStartReportsLaunch(t *testing.T) {
	t.Parallel()

	var (
		r     runner
		ticks atomic.Int32
	)

	tick := func(context.Context) { ticks.Add(1) }

	started, err := r.start(context.Background(), RealClock{}, time.Hour, tick)
	require.NoError(t, err)
	assert.True(t, started)

	started, err = r.start(context.Background(), RealClock{}, time.Hour, tick)
	require.NoError(t, err)
	assert.False(t, started, "second start on a running runner launches nothing")

	r.stop()
	assert.Equal(t, int32(1), ticks.Load())

	started, err = r.start(context.Background(), RealClock{}, time.Hour, tick)
	require.NoError(t, err)
	assert.True(t, started, "a stopped runner can be restarted")

	assert.True(t, r.markClosed())

	started, err = r.start(context.Background(), RealClock{}, time.Hour, tick)
	require.ErrorIs(t, err, ErrMonitorClosed)
	assert.False(t, started)
}

func TestReachabilityStartTwiceKeepsOneDriver(t *testing.T) {
	t.Parallel()

	prober := &slowLivenessProber{}

	m := NewReachabilityMonitor(ReachabilityConfig{Interval: time.Hour}, prober, nil, RealClock{}, nil)
	t.Cleanup(m.Close)

	m.AddEndpoint(models.NewEndpoint("10.9.2.1"))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	m.Stop()

	assert.Equal(t, int32(1), prober.calls.Load(), "only the first Start runs an immediate sweep")
}
