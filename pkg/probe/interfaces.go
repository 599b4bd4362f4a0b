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

// Package probe provides the network primitives used by the monitors: liveness
// probes (ICMP echo or TCP connect) and the GETGEN mode query.
package probe

//go:generate mockgen -destination=mock_probe.go -package=probe github.com/carverauto/devmon/pkg/probe LivenessProber,Dialer,ModeProber

import (
	"context"
	"net"
)

// LivenessProber answers whether a host responds at all.
// Implementations never return errors; every failure is reported as false.
type LivenessProber interface {
	Probe(ctx context.Context, address string) bool
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ModeProber queries a device for its current attachment mode.
type ModeProber interface {
	ProbeMode(ctx context.Context, address string) ModeResult
}
