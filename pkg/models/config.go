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
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so configs can use "2s" style strings.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errInvalidDuration
	}

	if n, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}

	dur, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidDuration, err)
	}

	*d = Duration(dur)

	return nil
}

// TLSConfig holds client certificate paths.
type TLSConfig struct {
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	CAFile     string `json:"ca_file" yaml:"ca_file"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// DatabaseConfig describes the Postgres instance that stores last-seen rows.
type DatabaseConfig struct {
	Host            string            `json:"host" yaml:"host"`
	Port            int               `json:"port" yaml:"port"`
	Database        string            `json:"database" yaml:"database"`
	Username        string            `json:"username" yaml:"username"`
	Password        string            `json:"password" yaml:"password"`
	SSLMode         string            `json:"ssl_mode" yaml:"ssl_mode"`
	ApplicationName string            `json:"application_name" yaml:"application_name"`
	MaxConnections  int32             `json:"max_connections" yaml:"max_connections"`
	MinConnections  int32             `json:"min_connections" yaml:"min_connections"`
	MaxConnLifetime Duration          `json:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	RuntimeParams   map[string]string `json:"runtime_params,omitempty" yaml:"runtime_params,omitempty"`
	TLS             *TLSConfig        `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// Validate ensures the database configuration is usable.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errDatabaseHostRequired
	}

	if c.Database == "" {
		return errDatabaseNameRequired
	}

	return nil
}

// DefaultInventoryBucket is the KV bucket holding the watched address set.
const DefaultInventoryBucket = "devmon-endpoints"

// InventoryConfig enables syncing the endpoint registry from a NATS KV bucket.
type InventoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Bucket  string `json:"bucket" yaml:"bucket"`
}

// Validate fills in the default bucket.
func (c *InventoryConfig) Validate() error {
	if c.Enabled && c.Bucket == "" {
		c.Bucket = DefaultInventoryBucket
	}

	return nil
}
