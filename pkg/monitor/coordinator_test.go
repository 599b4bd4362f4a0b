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

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCoordinatorRegistryAndQueries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := NewCoordinator(ReachabilityConfig{}, ModeConfig{},
		probe.NewMockLivenessProber(ctrl), probe.NewMockModeProber(ctrl), nil, logger.NewTestLogger())
	t.Cleanup(c.Close)

	b := models.NewEndpoint("10.2.0.2")
	a := models.NewEndpoint("10.2.0.1")

	assert.Same(t, b, c.AddEndpoint(b))
	assert.Same(t, a, c.AddEndpoint(a))
	assert.Same(t, a, c.AddEndpoint(models.NewEndpoint("10.2.0.1")), "existing endpoint wins")
	assert.Nil(t, c.AddEndpoint(nil))

	assert.Equal(t, 2, c.ReachabilityMonitor().Len())
	assert.Equal(t, 2, c.ModeMonitor().Len())

	status, ok := c.Status("10.2.0.1")
	require.True(t, ok)
	assert.Equal(t, models.StatusUnknown, status)

	mode, ok := c.Mode("10.2.0.2")
	require.True(t, ok)
	assert.Equal(t, models.ModeUnattached, mode)

	_, ok = c.Status("10.2.0.99")
	assert.False(t, ok)

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "10.2.0.1", snap[0].Address)
	assert.Equal(t, "10.2.0.2", snap[1].Address)

	assert.True(t, c.RemoveEndpoint("10.2.0.1"))
	assert.False(t, c.RemoveEndpoint("10.2.0.1"))
	assert.Equal(t, 1, c.ReachabilityMonitor().Len())
	assert.Equal(t, 1, c.ModeMonitor().Len())

	c.ClearEndpoints()
	assert.Empty(t, c.Snapshot())
	assert.Zero(t, c.ReachabilityMonitor().Len())
	assert.Zero(t, c.ModeMonitor().Len())
}

func TestCoordinatorEndToEnd(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	liveness := probe.NewMockLivenessProber(ctrl)
	modeProber := probe.NewMockModeProber(ctrl)

	var alive atomic.Bool

	alive.Store(true)

	liveness.EXPECT().
		Probe(gomock.Any(), "10.2.1.1").
		DoAndReturn(func(context.Context, string) bool { return alive.Load() }).
		AnyTimes()
	modeProber.EXPECT().
		ProbeMode(gomock.Any(), "10.2.1.1").
		Return(resolved(models.ModeWired)).
		AnyTimes()

	c := NewCoordinator(
		ReachabilityConfig{Interval: 20 * time.Millisecond, FailureThreshold: 2},
		ModeConfig{Interval: time.Hour, SettleDelay: 10 * time.Millisecond},
		liveness, modeProber, RealClock{}, logger.NewTestLogger(),
	)
	t.Cleanup(c.Close)

	reachSub := c.SubscribeReachability()
	modeSub := c.SubscribeMode()

	ep := c.AddEndpoint(models.NewEndpoint("10.2.1.1"))

	require.NoError(t, c.Start(context.Background()))

	up := nextEvent(t, reachSub)
	assert.Equal(t, models.StatusConnected, up.New)

	wired := nextEvent(t, modeSub)
	assert.Equal(t, models.ModeUnattached, wired.Old)
	assert.Equal(t, models.ModeWired, wired.New)

	alive.Store(false)

	down := nextEvent(t, reachSub)
	assert.Equal(t, models.StatusConnected, down.Old)
	assert.Equal(t, models.StatusOffline, down.New)

	unattached := nextEvent(t, modeSub)
	assert.Equal(t, models.ModeWired, unattached.Old)
	assert.Equal(t, models.ModeUnattached, unattached.New)

	assert.Equal(t, models.ModeUnattached, ep.Mode(), "offline endpoints are unattached")

	c.Stop()

	expectNoEvent(t, modeSub)
}
