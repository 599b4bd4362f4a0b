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

package service

import (
	"fmt"
	"time"

	"github.com/carverauto/devmon/pkg/inventory"
	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/monitor"
	"github.com/carverauto/devmon/pkg/probe"
)

const (
	defaultProbeTimeout    = time.Second
	defaultMethod          = "icmp"
	defaultShutdownTimeout = 10 * time.Second
)

// Config is the top-level devmon configuration document.
type Config struct {
	Logging         *logger.Config          `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics         MetricsConfig           `json:"metrics" yaml:"metrics"`
	Reachability    ReachabilityConfig      `json:"reachability" yaml:"reachability"`
	Mode            ModeConfig              `json:"mode" yaml:"mode"`
	Endpoints       []string                `json:"endpoints" yaml:"endpoints"`
	NATS            *models.NATSConfig      `json:"nats,omitempty" yaml:"nats,omitempty"`
	Events          *models.EventsConfig    `json:"events,omitempty" yaml:"events,omitempty"`
	Inventory       *models.InventoryConfig `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Database        *models.DatabaseConfig  `json:"database,omitempty" yaml:"database,omitempty"`
	ListenAddr      string                  `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	APIKey          string                  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	ShutdownTimeout models.Duration         `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

type ReachabilityConfig struct {
	Interval         models.Duration `json:"interval" yaml:"interval"`
	Timeout          models.Duration `json:"timeout" yaml:"timeout"`
	FailureThreshold int             `json:"failure_threshold" yaml:"failure_threshold"`
	MaxConcurrency   int             `json:"max_concurrency" yaml:"max_concurrency"`
	// Method is icmp, icmp-raw or tcp.
	Method  string `json:"method" yaml:"method"`
	TCPPort int    `json:"tcp_port,omitempty" yaml:"tcp_port,omitempty"`
}

type ModeConfig struct {
	Interval       models.Duration `json:"interval" yaml:"interval"`
	Port           int             `json:"port" yaml:"port"`
	DialTimeout    models.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout    models.Duration `json:"read_timeout" yaml:"read_timeout"`
	Attempts       int             `json:"attempts" yaml:"attempts"`
	RetryDelay     models.Duration `json:"retry_delay" yaml:"retry_delay"`
	SettleDelay    models.Duration `json:"settle_delay" yaml:"settle_delay"`
	MaxConcurrency int             `json:"max_concurrency" yaml:"max_concurrency"`
}

type MetricsConfig struct {
	OTel OTelMetricsConfig `json:"otel" yaml:"otel"`
}

type OTelMetricsConfig struct {
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`
	Insecure       bool              `json:"insecure" yaml:"insecure"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	TLS            *logger.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
	ExportInterval models.Duration   `json:"export_interval,omitempty" yaml:"export_interval,omitempty"`
}

// Validate fills defaults and rejects unusable values.
func (c *Config) Validate() error {
	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = models.Duration(defaultShutdownTimeout)
	}

	if err := c.Reachability.validate(); err != nil {
		return err
	}

	if err := c.Mode.validate(); err != nil {
		return err
	}

	for _, address := range c.Endpoints {
		if _, err := inventory.NormalizeAddress(address); err != nil {
			return fmt.Errorf("%w: %w", errInvalidEndpoint, err)
		}
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	if c.Events != nil {
		if c.Events.Enabled && c.NATS == nil {
			return errEventsNeedNATS
		}

		if err := c.Events.Validate(); err != nil {
			return err
		}
	}

	if c.Inventory != nil {
		if c.Inventory.Enabled && c.NATS == nil {
			return errInventoryNeedsNATS
		}

		if err := c.Inventory.Validate(); err != nil {
			return err
		}
	}

	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (c *ReachabilityConfig) validate() error {
	if c.Interval < 0 || c.Timeout < 0 {
		return fmt.Errorf("reachability: %w", errNegativeDuration)
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("reachability: %w", errNegativeConcurrency)
	}

	if c.Interval == 0 {
		c.Interval = models.Duration(monitor.DefaultReachabilityInterval)
	}

	if c.Timeout == 0 {
		c.Timeout = models.Duration(defaultProbeTimeout)
	}

	switch {
	case c.FailureThreshold == 0:
		c.FailureThreshold = monitor.DefaultFailureThreshold
	case c.FailureThreshold < 0:
		return errInvalidThreshold
	}

	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = monitor.DefaultReachabilityWorkers
	}

	switch c.Method {
	case "":
		c.Method = defaultMethod
	case "icmp", "icmp-raw", "tcp":
	default:
		return fmt.Errorf("%w: %q", errUnsupportedMethod, c.Method)
	}

	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return fmt.Errorf("reachability.tcp_port: %w", errInvalidPort)
	}

	return nil
}

func (c *ModeConfig) validate() error {
	if c.Interval < 0 || c.DialTimeout < 0 || c.ReadTimeout < 0 || c.RetryDelay < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("mode: %w", errNegativeDuration)
	}

	if c.MaxConcurrency < 0 || c.Attempts < 0 {
		return fmt.Errorf("mode: %w", errNegativeConcurrency)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("mode.port: %w", errInvalidPort)
	}

	if c.Interval == 0 {
		c.Interval = models.Duration(monitor.DefaultModeInterval)
	}

	if c.Port == 0 {
		c.Port = probe.DefaultModePort
	}

	if c.DialTimeout == 0 {
		c.DialTimeout = models.Duration(probe.DefaultModeDialTimeout)
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = models.Duration(probe.DefaultModeReadTimeout)
	}

	if c.Attempts == 0 {
		c.Attempts = probe.DefaultModeAttempts
	}

	if c.RetryDelay == 0 {
		c.RetryDelay = models.Duration(probe.DefaultModeRetryDelay)
	}

	if c.SettleDelay == 0 {
		c.SettleDelay = models.Duration(monitor.DefaultModeSettleDelay)
	}

	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = monitor.DefaultModeWorkers
	}

	return nil
}

func (c *ReachabilityConfig) monitorConfig() monitor.ReachabilityConfig {
	return monitor.ReachabilityConfig{
		Interval:         time.Duration(c.Interval),
		FailureThreshold: c.FailureThreshold,
		MaxConcurrency:   c.MaxConcurrency,
	}
}

func (c *ModeConfig) monitorConfig() monitor.ModeConfig {
	return monitor.ModeConfig{
		Interval:       time.Duration(c.Interval),
		SettleDelay:    time.Duration(c.SettleDelay),
		MaxConcurrency: c.MaxConcurrency,
	}
}

func (c *ModeConfig) proberConfig() probe.ModeProberConfig {
	return probe.ModeProberConfig{
		Port:        c.Port,
		DialTimeout: time.Duration(c.DialTimeout),
		ReadTimeout: time.Duration(c.ReadTimeout),
		Attempts:    c.Attempts,
		RetryDelay:  time.Duration(c.RetryDelay),
	}
}

func (c *OTelMetricsConfig) providerConfig() logger.MetricsConfig {
	return logger.MetricsConfig{
		Enabled:        c.Enabled,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Headers:        c.Headers,
		TLS:            c.TLS,
		ExportInterval: time.Duration(c.ExportInterval),
	}
}
