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
	"context"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/probe"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultReachabilityInterval = 2 * time.Second
	DefaultFailureThreshold     = 2
	DefaultReachabilityWorkers  = 50
)

type ReachabilityConfig struct {
	Interval time.Duration
	// FailureThreshold is the number of consecutive failed probes before an
	// endpoint is declared Offline.
	FailureThreshold int
	MaxConcurrency   int
}

func (c *ReachabilityConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultReachabilityInterval
	}

	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}

	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultReachabilityWorkers
	}
}

type reachEntry struct {
	endpoint *models.Endpoint
	failures int
}

// ReachabilityMonitor probes every watched endpoint on a fixed interval and
// debounces failures before declaring an endpoint Offline.
type ReachabilityMonitor struct {
	cfg      ReachabilityConfig
	prober   probe.LivenessProber
	clock    Clock
	logger   logger.Logger
	listener TransitionListener

	watch  *watchList[reachEntry]
	bus    *Bus[models.ReachabilityChange]
	runner runner

	// sweepMu serializes sweeps so transitions apply in tick order.
	sweepMu chan struct{}
}

func NewReachabilityMonitor(
	cfg ReachabilityConfig,
	prober probe.LivenessProber,
	listener TransitionListener,
	clock Clock,
	log logger.Logger,
) *ReachabilityMonitor {
	cfg.applyDefaults()

	if clock == nil {
		clock = RealClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &ReachabilityMonitor{
		cfg:      cfg,
		prober:   prober,
		clock:    clock,
		logger:   logger.Component(log, monitorReachability),
		listener: listener,
		watch:    newWatchList[reachEntry](),
		bus:      NewBus[models.ReachabilityChange](),
		sweepMu:  make(chan struct{}, 1),
	}
}

// AddEndpoint starts watching endpoint. Adding an address that is already
// watched is a no-op.
func (m *ReachabilityMonitor) AddEndpoint(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	if _, added := m.watch.add(address, func() *reachEntry {
		return &reachEntry{endpoint: endpoint}
	}); added {
		m.logger.Debug().Str("address", address).Msg("Watching endpoint")
	}
}

// RemoveEndpoint stops watching endpoint and drops its failure count. Results
// of probes already in flight for it are discarded.
func (m *ReachabilityMonitor) RemoveEndpoint(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	if m.watch.remove(address) {
		m.logger.Debug().Str("address", address).Msg("Stopped watching endpoint")
	}
}

// ClearEndpoints stops watching every endpoint.
func (m *ReachabilityMonitor) ClearEndpoints() {
	n := m.watch.clear()

	m.logger.Debug().Int("count", n).Msg("Cleared watch list")
}

// Len returns the number of watched endpoints.
func (m *ReachabilityMonitor) Len() int {
	return m.watch.len()
}

// Failures returns the consecutive failure count for address.
func (m *ReachabilityMonitor) Failures(address string) (int, bool) {
	var n int

	ok := m.watch.lookup(address, func(e *reachEntry) { n = e.failures })

	return n, ok
}

// Subscribe returns a stream of reachability transitions.
func (m *ReachabilityMonitor) Subscribe() *Subscription[models.ReachabilityChange] {
	return m.bus.Subscribe()
}

// Start begins periodic sweeps. It returns immediately; calling Start on a
// running monitor is a no-op.
func (m *ReachabilityMonitor) Start(ctx context.Context) error {
	started, err := m.runner.start(ctx, m.clock, m.cfg.Interval, m.tick)
	if err != nil || !started {
		return err
	}

	m.logger.Info().
		Dur("interval", m.cfg.Interval).
		Int("threshold", m.cfg.FailureThreshold).
		Msg("Reachability monitor started")

	return nil
}

// Stop halts periodic sweeps after the current one completes.
func (m *ReachabilityMonitor) Stop() {
	m.runner.stop()
}

// Close stops the monitor and ends every subscription.
func (m *ReachabilityMonitor) Close() {
	if m.runner.markClosed() {
		m.bus.Close()
	}
}

func (m *ReachabilityMonitor) tick(ctx context.Context) {
	if err := m.Sweep(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Reachability sweep aborted")
	}
}

// Sweep probes every watched endpoint once and applies the results. It only
// returns an error when ctx ends before the sweep could start.
func (m *ReachabilityMonitor) Sweep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case m.sweepMu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.sweepMu }()

	start := m.clock.Now()
	targets := m.watch.snapshot(nil)

	var g errgroup.Group

	g.SetLimit(m.cfg.MaxConcurrency)

	for _, entry := range targets {
		g.Go(func() error {
			m.probeEntry(ctx, entry)

			return nil
		})
	}

	_ = g.Wait()

	elapsed := m.clock.Now().Sub(start)
	recordSweep(ctx, monitorReachability, elapsed)

	m.logger.Trace().
		Int("endpoints", len(targets)).
		Dur("elapsed", elapsed).
		Msg("Reachability sweep complete")

	return nil
}

func (m *ReachabilityMonitor) probeEntry(ctx context.Context, entry *reachEntry) {
	address := entry.endpoint.Address()
	alive := m.prober.Probe(ctx, address)

	// A cancelled sweep says nothing about the endpoint.
	if ctx.Err() != nil {
		return
	}

	outcome := "failure"
	if alive {
		outcome = "success"
	}

	recordProbe(ctx, monitorReachability, outcome)

	m.apply(ctx, address, entry, alive)
}

func (m *ReachabilityMonitor) apply(ctx context.Context, address string, entry *reachEntry, alive bool) {
	var (
		old     models.ReachabilityStatus
		next    models.ReachabilityStatus
		changed bool
	)

	now := m.clock.Now()

	applied := m.watch.with(address, entry, func(e *reachEntry) {
		if alive {
			e.failures = 0
			next = models.StatusConnected
		} else {
			e.failures++
			if e.failures < m.cfg.FailureThreshold {
				return
			}

			next = models.StatusOffline
		}

		old, changed = e.endpoint.SetStatus(next, now)
	})

	if !applied {
		m.logger.Debug().Str("address", address).Msg("Discarding probe result for unwatched endpoint")

		return
	}

	if !changed {
		return
	}

	m.logger.Info().
		Str("address", address).
		Stringer("old", old).
		Stringer("new", next).
		Msg("Reachability changed")

	recordTransition(ctx, monitorReachability, next.String())

	m.bus.Publish(models.ReachabilityChange{
		Address:   address,
		Endpoint:  entry.endpoint,
		Old:       old,
		New:       next,
		Timestamp: now,
	})

	if m.listener == nil {
		return
	}

	if next == models.StatusConnected {
		m.listener.OnEndpointBecameReachable(entry.endpoint)
	} else {
		m.listener.OnEndpointBecameUnreachable(entry.endpoint)
	}
}
