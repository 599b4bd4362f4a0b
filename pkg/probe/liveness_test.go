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

package probe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/icmp"
)

var errFlaky = errors.New("flaky")

func TestRetryStopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0

	got, err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errFlaky
		}

		return calls, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, 3, calls)
}

func TestRetryBoundsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0

	_, err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) (struct{}, error) {
		calls++

		return struct{}{}, errFlaky
	})

	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanentErrorStopsEarly(t *testing.T) {
	t.Parallel()

	calls := 0

	_, err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) (struct{}, error) {
		calls++

		return struct{}{}, backoff.Permanent(errFlaky)
	})

	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0

	_, _ = Retry(context.Background(), 0, 0, func(context.Context) (struct{}, error) {
		calls++

		return struct{}{}, errFlaky
	})

	assert.Equal(t, 1, calls)
}

func TestTCPProberOpenAndRefusedPortsAreAlive(t *testing.T) {
	t.Parallel()

	open, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = open.Close() })

	openPort := open.Addr().(*net.TCPAddr).Port
	assert.True(t, NewTCPProber(openPort, time.Second, nil, logger.NewTestLogger()).Probe(context.Background(), "127.0.0.1"))

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	closedPort := closed.Addr().(*net.TCPAddr).Port
	require.NoError(t, closed.Close())

	assert.True(t, NewTCPProber(closedPort, time.Second, nil, logger.NewTestLogger()).Probe(context.Background(), "127.0.0.1"),
		"a refused connection still proves the host is up")
}

func TestTCPProberTimeoutIsDown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)

	dialer.EXPECT().
		DialContext(gomock.Any(), "tcp", "10.9.9.9:1502").
		Return(nil, timeoutError{}).
		Times(2)

	p := NewTCPProber(0, 50*time.Millisecond, dialer, logger.NewTestLogger()).WithRetries(2, time.Millisecond)
	assert.False(t, p.Probe(context.Background(), "10.9.9.9"))
}

func TestLivenessProbersRejectInvalidAddresses(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)

	assert.False(t, NewTCPProber(80, time.Second, dialer, logger.NewTestLogger()).Probe(context.Background(), "example.com"))
	assert.False(t, NewICMPProber(time.Second, false, logger.NewTestLogger()).Probe(context.Background(), "::1"))
	assert.False(t, NewICMPProber(time.Second, false, logger.NewTestLogger()).Probe(context.Background(), ""))
}

func TestNewLivenessProber(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()

	p, err := NewLivenessProber("", time.Second, 0, log)
	require.NoError(t, err)
	assert.IsType(t, &ICMPProber{}, p)

	p, err = NewLivenessProber("icmp-raw", time.Second, 0, log)
	require.NoError(t, err)
	assert.True(t, p.(*ICMPProber).privileged)

	p, err = NewLivenessProber("tcp", time.Second, 22, log)
	require.NoError(t, err)
	assert.Equal(t, 22, p.(*TCPProber).port)

	_, err = NewLivenessProber("arp", time.Second, 0, log)
	require.ErrorIs(t, err, errUnsupportedMethod)
}

func TestICMPProberLoopback(t *testing.T) {
	t.Parallel()

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		t.Skipf("unprivileged ICMP sockets unavailable: %v", err)
	}

	_ = conn.Close()

	p := NewICMPProber(time.Second, false, logger.NewTestLogger())
	assert.True(t, p.Probe(context.Background(), "127.0.0.1"))
}

func TestICMPProberCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewICMPProber(time.Second, false, logger.NewTestLogger())
	assert.False(t, p.Probe(ctx, "192.0.2.1"))
}
