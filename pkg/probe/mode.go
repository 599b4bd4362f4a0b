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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

const (
	// CommandGetGen asks a device for its general settings block.
	CommandGetGen = "GETGEN"
	// ModeResponseSize is the fixed GETGEN reply length: int32 LE mode code plus 4 reserved bytes.
	ModeResponseSize = 8

	DefaultModePort        = 1502
	DefaultModeDialTimeout = 2 * time.Second
	DefaultModeReadTimeout = 2 * time.Second
	DefaultModeAttempts    = 3
	DefaultModeRetryDelay  = 500 * time.Millisecond
)

// Outcome classifies a mode probe for the caller's bookkeeping.
type Outcome int

const (
	// OutcomeResolved means the device answered; Mode holds the decoded value.
	OutcomeResolved Outcome = iota
	// OutcomeRetry means the device did not answer in time; keep the check pending.
	OutcomeRetry
	// OutcomeFailed means the device rejected the exchange; treat as unattached.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type ModeResult struct {
	Outcome Outcome
	Mode    models.NetMode
	Err     error
}

type ModeProberConfig struct {
	Port        int
	DialTimeout time.Duration
	ReadTimeout time.Duration
	Attempts    int
	RetryDelay  time.Duration
}

func (c *ModeProberConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultModePort
	}

	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultModeDialTimeout
	}

	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultModeReadTimeout
	}

	if c.Attempts <= 0 {
		c.Attempts = DefaultModeAttempts
	}

	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
}

// GetGenProber implements ModeProber with the GETGEN request/response exchange.
type GetGenProber struct {
	cfg    ModeProberConfig
	dialer Dialer
	logger logger.Logger
}

var _ ModeProber = (*GetGenProber)(nil)

func NewGetGenProber(cfg ModeProberConfig, dialer Dialer, log logger.Logger) *GetGenProber {
	cfg.applyDefaults()

	if dialer == nil {
		dialer = &net.Dialer{}
	}

	return &GetGenProber{
		cfg:    cfg,
		dialer: dialer,
		logger: log,
	}
}

func (p *GetGenProber) ProbeMode(ctx context.Context, address string) ModeResult {
	if net.ParseIP(address).To4() == nil {
		return failed(fmt.Errorf("%w: %q", ErrInvalidAddress, address))
	}

	conn, err := p.connect(ctx, net.JoinHostPort(address, strconv.Itoa(p.cfg.Port)))
	if err != nil {
		return classify(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return failed(err)
	}

	if _, err := conn.Write([]byte(CommandGetGen)); err != nil {
		return classify(fmt.Errorf("send %s: %w", CommandGetGen, err))
	}

	buf := make([]byte, ModeResponseSize)

	if _, err := io.ReadFull(conn, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return failed(ErrShortResponse)
		}

		return classify(fmt.Errorf("read %s response: %w", CommandGetGen, err))
	}

	mode, err := DecodeMode(buf)
	if err != nil {
		return failed(err)
	}

	return ModeResult{Outcome: OutcomeResolved, Mode: mode}
}

// connect dials with bounded retries. If every attempt timed out the
// returned error is ErrTimeout so the caller keeps the check pending.
func (p *GetGenProber) connect(ctx context.Context, target string) (net.Conn, error) {
	allTimeouts := true

	conn, err := Retry(ctx, p.cfg.Attempts, p.cfg.RetryDelay, func(ctx context.Context) (net.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
		defer cancel()

		conn, err := p.dialer.DialContext(dialCtx, "tcp", target)
		if err != nil {
			if !isTimeout(err) && dialCtx.Err() == nil {
				allTimeouts = false
			}

			p.logger.Debug().Err(err).Str("target", target).Msg("Mode probe connect attempt failed")

			return nil, err
		}

		return conn, nil
	})
	if err != nil {
		if allTimeouts || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: connect %s: %w", ErrTimeout, target, err)
		}

		return nil, fmt.Errorf("connect %s: %w", target, err)
	}

	return conn, nil
}

// DecodeMode maps a GETGEN reply to a NetMode. Only the first four bytes are significant.
func DecodeMode(data []byte) (models.NetMode, error) {
	if len(data) < 4 {
		return models.ModeUnattached, ErrShortResponse
	}

	code := int32(binary.LittleEndian.Uint32(data[:4])) //nolint:gosec // wire value is a signed int32

	return models.ModeFromCode(code), nil
}

// EncodeMode builds the GETGEN reply a device in mode would send.
func EncodeMode(mode models.NetMode) []byte {
	buf := make([]byte, ModeResponseSize)

	var code int32

	switch mode {
	case models.ModeWired:
		code = 0
	case models.ModeWireless:
		code = 1
	case models.ModeUnattached:
		code = -1
	}

	binary.LittleEndian.PutUint32(buf, uint32(code)) //nolint:gosec // two's complement on the wire

	return buf
}

func classify(err error) ModeResult {
	if errors.Is(err, ErrTimeout) || isTimeout(err) || errors.Is(err, context.Canceled) {
		return ModeResult{Outcome: OutcomeRetry, Mode: models.ModeUnattached, Err: err}
	}

	return failed(err)
}

func failed(err error) ModeResult {
	return ModeResult{Outcome: OutcomeFailed, Mode: models.ModeUnattached, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
