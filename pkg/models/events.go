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

package models

import (
	"time"
)

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL    string     `json:"url" yaml:"url"`
	Domain string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	TLS    *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	return nil
}

const (
	DefaultEventsStream        = "devices"
	SubjectReachabilityChanged = "events.devices.reachability"
	SubjectModeChanged         = "events.devices.mode"
)

// EventsConfig configures the event publishing system
type EventsConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StreamName string   `json:"stream_name" yaml:"stream_name"`
	Subjects   []string `json:"subjects" yaml:"subjects"`
}

// Validate ensures the events configuration is valid
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		c.StreamName = DefaultEventsStream
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"events.devices.*"}
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// ReachabilityChange is emitted once for every observed reachability transition.
type ReachabilityChange struct {
	Address   string             `json:"address"`
	Endpoint  *Endpoint          `json:"-"`
	Old       ReachabilityStatus `json:"old_status"`
	New       ReachabilityStatus `json:"new_status"`
	Timestamp time.Time          `json:"timestamp"`
}

// ModeChange is emitted once for every observed mode transition.
type ModeChange struct {
	Address   string    `json:"address"`
	Endpoint  *Endpoint `json:"-"`
	Old       NetMode   `json:"old_mode"`
	New       NetMode   `json:"new_mode"`
	Timestamp time.Time `json:"timestamp"`
}
