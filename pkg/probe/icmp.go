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
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	protocolICMP   = 1
	maxReplySize   = 1500
	echoPayload    = "devmon"
	identifierMask = 0xffff
)

// ICMPProber sends one ICMP echo request per attempt on a fresh socket.
// Unprivileged mode uses datagram ICMP sockets (Linux ping_group_range);
// privileged mode uses a raw socket and needs CAP_NET_RAW.
type ICMPProber struct {
	timeout    time.Duration
	privileged bool
	attempts   int
	retryDelay time.Duration
	identifier int
	seq        atomic.Uint32
	logger     logger.Logger
}

var _ LivenessProber = (*ICMPProber)(nil)

func NewICMPProber(timeout time.Duration, privileged bool, log logger.Logger) *ICMPProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	return &ICMPProber{
		timeout:    timeout,
		privileged: privileged,
		attempts:   1,
		identifier: os.Getpid() & identifierMask,
		logger:     log,
	}
}

// WithRetries makes each Probe try up to attempts times, delay apart.
func (p *ICMPProber) WithRetries(attempts int, delay time.Duration) *ICMPProber {
	p.attempts = attempts
	p.retryDelay = delay

	return p
}

func (p *ICMPProber) Probe(ctx context.Context, address string) bool {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		p.logger.Debug().Str("address", address).Msg("Skipping ICMP probe for invalid address")

		return false
	}

	_, err := Retry(ctx, p.attempts, p.retryDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.echo(ctx, ip)
	})
	if err != nil {
		p.logger.Debug().Err(err).Str("address", address).Msg("ICMP echo failed")

		return false
	}

	return true
}

func (p *ICMPProber) network() (network string, dst func(net.IP) net.Addr) {
	if p.privileged {
		return "ip4:icmp", func(ip net.IP) net.Addr { return &net.IPAddr{IP: ip} }
	}

	return "udp4", func(ip net.IP) net.Addr { return &net.UDPAddr{IP: ip} }
}

func (p *ICMPProber) echo(ctx context.Context, ip net.IP) error {
	network, dst := p.network()

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return fmt.Errorf("failed to create ICMP listener: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblocks ReadFrom when ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	seq := int(p.seq.Add(1) & identifierMask)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.identifier,
			Seq:  seq,
			Data: []byte(echoPayload),
		},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal echo request: %w", err)
	}

	if _, err := conn.WriteTo(wire, dst(ip)); err != nil {
		return fmt.Errorf("failed to send echo request: %w", err)
	}

	buf := make([]byte, maxReplySize)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if isTimeout(err) {
				return ErrNoReply
			}

			return err
		}

		if p.isReply(buf[:n], peer, ip, seq) {
			return nil
		}
	}
}

// isReply matches on sequence and source. The kernel rewrites the ID of
// datagram ICMP sockets, so the ID is only checked on raw sockets.
func (p *ICMPProber) isReply(data []byte, peer net.Addr, ip net.IP, seq int) bool {
	reply, err := icmp.ParseMessage(protocolICMP, data)
	if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
		return false
	}

	echo, ok := reply.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq {
		return false
	}

	if p.privileged && echo.ID != p.identifier {
		return false
	}

	return peerIP(peer).Equal(ip)
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}

// NewLivenessProber returns the prober for method ("icmp", "icmp-raw" or "tcp").
func NewLivenessProber(method string, timeout time.Duration, tcpPort int, log logger.Logger) (LivenessProber, error) {
	switch method {
	case "", "icmp":
		return NewICMPProber(timeout, false, log), nil
	case "icmp-raw":
		return NewICMPProber(timeout, true, log), nil
	case "tcp":
		return NewTCPProber(tcpPort, timeout, nil, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedMethod, method)
	}
}
