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
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/probe"
)

// Coordinator keeps both monitors watching the same endpoints, routes
// reachability transitions into the mode monitor and answers state queries.
type Coordinator struct {
	reachability *ReachabilityMonitor
	mode         *ModeMonitor
	logger       logger.Logger

	mu        sync.RWMutex
	endpoints map[string]*models.Endpoint
}

func NewCoordinator(
	reachCfg ReachabilityConfig,
	modeCfg ModeConfig,
	liveness probe.LivenessProber,
	modeProber probe.ModeProber,
	clock Clock,
	log logger.Logger,
) *Coordinator {
	if log == nil {
		log = logger.NewTestLogger()
	}

	mode := NewModeMonitor(modeCfg, modeProber, clock, log)

	return &Coordinator{
		reachability: NewReachabilityMonitor(reachCfg, liveness, mode, clock, log),
		mode:         mode,
		logger:       logger.Component(log, "coordinator"),
		endpoints:    make(map[string]*models.Endpoint),
	}
}

func (c *Coordinator) ReachabilityMonitor() *ReachabilityMonitor { return c.reachability }
func (c *Coordinator) ModeMonitor() *ModeMonitor                 { return c.mode }

// AddEndpoint registers endpoint with both monitors. It returns the endpoint
// already registered under the same address, if any.
func (c *Coordinator) AddEndpoint(endpoint *models.Endpoint) *models.Endpoint {
	address := endpoint.Address()
	if address == "" {
		return nil
	}

	c.mu.Lock()
	if existing, ok := c.endpoints[address]; ok {
		c.mu.Unlock()

		return existing
	}

	c.endpoints[address] = endpoint
	c.mu.Unlock()

	c.reachability.AddEndpoint(endpoint)
	c.mode.AddEndpoint(endpoint)

	return endpoint
}

// RemoveEndpoint unregisters address from both monitors.
func (c *Coordinator) RemoveEndpoint(address string) bool {
	c.mu.Lock()
	endpoint, ok := c.endpoints[address]
	delete(c.endpoints, address)
	c.mu.Unlock()

	if !ok {
		return false
	}

	c.reachability.RemoveEndpoint(endpoint)
	c.mode.RemoveEndpoint(endpoint)

	return true
}

// ClearEndpoints unregisters every endpoint.
func (c *Coordinator) ClearEndpoints() {
	c.mu.Lock()
	c.endpoints = make(map[string]*models.Endpoint)
	c.mu.Unlock()

	c.reachability.ClearEndpoints()
	c.mode.ClearEndpoints()
}

func (c *Coordinator) Endpoint(address string) (*models.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	endpoint, ok := c.endpoints[address]

	return endpoint, ok
}

// Status returns the reachability of address.
func (c *Coordinator) Status(address string) (models.ReachabilityStatus, bool) {
	endpoint, ok := c.Endpoint(address)
	if !ok {
		return models.StatusUnknown, false
	}

	return endpoint.Status(), true
}

// Mode returns the attachment mode of address.
func (c *Coordinator) Mode(address string) (models.NetMode, bool) {
	endpoint, ok := c.Endpoint(address)
	if !ok {
		return models.ModeUnattached, false
	}

	return endpoint.Mode(), true
}

// Snapshot returns the state of every registered endpoint ordered by address.
func (c *Coordinator) Snapshot() []models.EndpointState {
	c.mu.RLock()
	states := make([]models.EndpointState, 0, len(c.endpoints))

	for _, endpoint := range c.endpoints {
		states = append(states, endpoint.State())
	}
	c.mu.RUnlock()

	slices.SortFunc(states, func(a, b models.EndpointState) int {
		return cmp.Compare(a.Address, b.Address)
	})

	return states
}

func (c *Coordinator) SubscribeReachability() *Subscription[models.ReachabilityChange] {
	return c.reachability.Subscribe()
}

func (c *Coordinator) SubscribeMode() *Subscription[models.ModeChange] {
	return c.mode.Subscribe()
}

// Start starts the mode monitor first so it is ready for the first
// reachability signals.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.mode.Start(ctx); err != nil {
		return fmt.Errorf("start mode monitor: %w", err)
	}

	if err := c.reachability.Start(ctx); err != nil {
		c.mode.Stop()

		return fmt.Errorf("start reachability monitor: %w", err)
	}

	c.logger.Info().Int("endpoints", c.count()).Msg("Monitoring started")

	return nil
}

// Stop stops reachability first so no signals reach a stopped mode monitor.
func (c *Coordinator) Stop() {
	c.reachability.Stop()
	c.mode.Stop()
}

// Close stops both monitors and ends every subscription.
func (c *Coordinator) Close() {
	c.reachability.Close()
	c.mode.Close()
}

func (c *Coordinator) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.endpoints)
}
