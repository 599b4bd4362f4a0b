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

// Package models provides data models shared by the device monitors.
package models

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ReachabilityStatus is the liveness state of an endpoint.
type ReachabilityStatus int

const (
	StatusUnknown ReachabilityStatus = iota
	StatusConnected
	StatusOffline
)

func (s ReachabilityStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusOffline:
		return "offline"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s ReachabilityStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReachabilityStatus) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "connected":
		*s = StatusConnected
	case "offline":
		*s = StatusOffline
	case "unknown", "":
		*s = StatusUnknown
	default:
		return fmt.Errorf("%w: %q", errInvalidStatus, string(b))
	}

	return nil
}

// NetMode is the physical network attachment an endpoint reports.
type NetMode int

const (
	ModeUnattached NetMode = iota
	ModeWired
	ModeWireless
)

func (m NetMode) String() string {
	switch m {
	case ModeWired:
		return "wired"
	case ModeWireless:
		return "wireless"
	case ModeUnattached:
		return "unattached"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m NetMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *NetMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "wired":
		*m = ModeWired
	case "wireless":
		*m = ModeWireless
	case "unattached", "":
		*m = ModeUnattached
	default:
		return fmt.Errorf("%w: %q", errInvalidMode, string(b))
	}

	return nil
}

// ModeFromCode maps the integer code a device reports for its attachment.
// Codes other than 0 and 1 mean the device is not attached.
func ModeFromCode(code int32) NetMode {
	switch code {
	case 0:
		return ModeWired
	case 1:
		return ModeWireless
	default:
		return ModeUnattached
	}
}

// Endpoint is a single managed device under observation. Monitors share a
// pointer to the same Endpoint so status changes are visible to every
// observer; all mutable fields are guarded by the endpoint's own lock.
type Endpoint struct {
	address string

	mu       sync.RWMutex
	status   ReachabilityStatus
	mode     NetMode
	lastSeen time.Time
}

// NewEndpoint returns an endpoint in the Unknown/Unattached state.
func NewEndpoint(address string) *Endpoint {
	return &Endpoint{address: address}
}

// Address returns the dotted-quad IPv4 address that identifies the endpoint.
func (e *Endpoint) Address() string {
	if e == nil {
		return ""
	}

	return e.address
}

func (e *Endpoint) Status() ReachabilityStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.status
}

func (e *Endpoint) Mode() NetMode {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.mode
}

func (e *Endpoint) LastSeen() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.lastSeen
}

// SetStatus stores status and, when it differs from the current value,
// stamps the last-seen time with at.
func (e *Endpoint) SetStatus(status ReachabilityStatus, at time.Time) (old ReachabilityStatus, changed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old = e.status
	if old == status {
		return old, false
	}

	e.status = status
	e.lastSeen = at

	return old, true
}

// SetMode stores mode unconditionally.
func (e *Endpoint) SetMode(mode NetMode) (old NetMode, changed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old = e.mode
	e.mode = mode

	return old, old != mode
}

// SetConnectedMode stores mode only while the endpoint is Connected. ok is
// false when the endpoint is not Connected and nothing was written, which
// keeps an Offline endpoint pinned to ModeUnattached.
func (e *Endpoint) SetConnectedMode(mode NetMode) (old NetMode, changed, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old = e.mode
	if e.status != StatusConnected {
		return old, false, false
	}

	e.mode = mode

	return old, old != mode, true
}

// EndpointState is a point-in-time copy of an endpoint's observable fields.
type EndpointState struct {
	Address  string             `json:"address"`
	Status   ReachabilityStatus `json:"status"`
	Mode     NetMode            `json:"mode"`
	LastSeen time.Time          `json:"last_seen"`
}

func (e *Endpoint) State() EndpointState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return EndpointState{
		Address:  e.address,
		Status:   e.status,
		Mode:     e.mode,
		LastSeen: e.lastSeen,
	}
}
