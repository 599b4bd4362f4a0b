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
	"strconv"
	"syscall"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
)

const (
	defaultTCPProbePort = 1502
	defaultProbeTimeout = time.Second
)

// TCPProber treats a host as alive when a TCP handshake to port completes or
// is actively refused; either way the host's stack answered.
type TCPProber struct {
	port       int
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	dialer     Dialer
	logger     logger.Logger
}

var _ LivenessProber = (*TCPProber)(nil)

func NewTCPProber(port int, timeout time.Duration, dialer Dialer, log logger.Logger) *TCPProber {
	if port <= 0 {
		port = defaultTCPProbePort
	}

	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	if dialer == nil {
		dialer = &net.Dialer{}
	}

	return &TCPProber{
		port:     port,
		timeout:  timeout,
		attempts: 1,
		dialer:   dialer,
		logger:   log,
	}
}

// WithRetries makes each Probe try up to attempts times, delay apart.
func (p *TCPProber) WithRetries(attempts int, delay time.Duration) *TCPProber {
	p.attempts = attempts
	p.retryDelay = delay

	return p
}

func (p *TCPProber) Probe(ctx context.Context, address string) bool {
	if net.ParseIP(address).To4() == nil {
		return false
	}

	target := net.JoinHostPort(address, strconv.Itoa(p.port))

	_, err := Retry(ctx, p.attempts, p.retryDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.checkPort(ctx, target)
	})
	if err != nil {
		p.logger.Debug().Err(err).Str("address", address).Msg("TCP liveness probe failed")

		return false
	}

	return true
}

func (p *TCPProber) checkPort(ctx context.Context, target string) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(probeCtx, "tcp", target)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil
		}

		if probeCtx.Err() != nil {
			return ErrTimeout
		}

		return err
	}

	if err := conn.Close(); err != nil {
		p.logger.Debug().Err(err).Str("target", target).Msg("failed to close connection")
	}

	return nil
}
