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
	DefaultModeInterval    = 2 * time.Second
	DefaultModeSettleDelay = time.Second
	DefaultModeWorkers     = 16
)

type ModeConfig struct {
	Interval time.Duration
	// SettleDelay is how long to wait after an endpoint becomes reachable
	// before the out-of-band mode probe.
	SettleDelay    time.Duration
	MaxConcurrency int
}

func (c *ModeConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultModeInterval
	}

	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}

	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultModeWorkers
	}
}

// modeEntry is guarded by the watch list lock. gen is bumped by every
// reachability signal so results of probes started earlier are discarded.
type modeEntry struct {
	endpoint *models.Endpoint
	pending  bool
	inFlight bool
	gen      uint64
}

// ModeMonitor queries the attachment mode of reachable endpoints that owe a
// mode check, and forces Unattached as soon as an endpoint goes Offline.
type ModeMonitor struct {
	cfg    ModeConfig
	prober probe.ModeProber
	clock  Clock
	logger logger.Logger

	watch  *watchList[modeEntry]
	bus    *Bus[models.ModeChange]
	runner runner

	sweepMu chan struct{}
}

var _ TransitionListener = (*ModeMonitor)(nil)

func NewModeMonitor(cfg ModeConfig, prober probe.ModeProber, clock Clock, log logger.Logger) *ModeMonitor {
	cfg.applyDefaults()

	if clock == nil {
		clock = RealClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &ModeMonitor{
		cfg:     cfg,
		prober:  prober,
		clock:   clock,
		logger:  logger.Component(log, monitorMode),
		watch:   newWatchList[modeEntry](),
		bus:     NewBus[models.ModeChange](),
		sweepMu: make(chan struct{}, 1),
	}
}

// AddEndpoint starts watching endpoint. An endpoint that is already Connected
// owes a mode check immediately.
func (m *ModeMonitor) AddEndpoint(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	if _, added := m.watch.add(address, func() *modeEntry {
		return &modeEntry{
			endpoint: endpoint,
			pending:  endpoint.Status() == models.StatusConnected,
		}
	}); added {
		m.logger.Debug().Str("address", address).Msg("Watching endpoint")
	}
}

// RemoveEndpoint stops watching endpoint and drops its pending check.
func (m *ModeMonitor) RemoveEndpoint(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	if m.watch.remove(address) {
		m.logger.Debug().Str("address", address).Msg("Stopped watching endpoint")
	}
}

// ClearEndpoints stops watching every endpoint.
func (m *ModeMonitor) ClearEndpoints() {
	n := m.watch.clear()

	m.logger.Debug().Int("count", n).Msg("Cleared watch list")
}

func (m *ModeMonitor) Len() int {
	return m.watch.len()
}

// Pending reports whether address owes a mode check.
func (m *ModeMonitor) Pending(address string) bool {
	var pending bool

	m.watch.lookup(address, func(e *modeEntry) { pending = e.pending })

	return pending
}

// Subscribe returns a stream of mode transitions.
func (m *ModeMonitor) Subscribe() *Subscription[models.ModeChange] {
	return m.bus.Subscribe()
}

func (m *ModeMonitor) Start(ctx context.Context) error {
	started, err := m.runner.start(ctx, m.clock, m.cfg.Interval, m.tick)
	if err != nil || !started {
		return err
	}

	m.logger.Info().
		Dur("interval", m.cfg.Interval).
		Dur("settle_delay", m.cfg.SettleDelay).
		Msg("Mode monitor started")

	return nil
}

// Stop halts periodic sweeps and waits for the current sweep and any
// out-of-band probes to finish.
func (m *ModeMonitor) Stop() {
	m.runner.stop()
}

// Close stops the monitor and ends every subscription.
func (m *ModeMonitor) Close() {
	if m.runner.markClosed() {
		m.bus.Close()
	}
}

// OnEndpointBecameReachable marks endpoint as owing a mode check and, while
// the monitor runs, probes it once after the settle delay.
func (m *ModeMonitor) OnEndpointBecameReachable(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	var (
		entry *modeEntry
		gen   uint64
	)

	found := m.watch.lookup(address, func(e *modeEntry) {
		if e.endpoint != endpoint {
			return
		}

		e.pending = true
		e.gen++
		entry, gen = e, e.gen
	})
	if !found || entry == nil {
		return
	}

	m.runner.spawn(func(ctx context.Context, stop <-chan struct{}) {
		select {
		case <-m.clock.After(m.cfg.SettleDelay):
		case <-stop:
			return
		case <-ctx.Done():
			return
		}

		m.probeOutOfBand(ctx, address, entry, gen)
	})
}

// OnEndpointBecameUnreachable forces endpoint to Unattached before returning
// and invalidates any probe in flight for it.
func (m *ModeMonitor) OnEndpointBecameUnreachable(endpoint *models.Endpoint) {
	address := endpoint.Address()
	if address == "" {
		return
	}

	var (
		old     models.NetMode
		changed bool
		matched bool
	)

	m.watch.lookup(address, func(e *modeEntry) {
		if e.endpoint != endpoint {
			return
		}

		matched = true
		e.pending = false
		e.gen++
		old, changed = e.endpoint.SetMode(models.ModeUnattached)
	})
	if !matched {
		// Keep the Offline implies Unattached rule even for unwatched endpoints.
		old, changed = endpoint.SetMode(models.ModeUnattached)
	}

	if changed {
		m.emit(context.Background(), endpoint, old, models.ModeUnattached)
	}
}

func (m *ModeMonitor) probeOutOfBand(ctx context.Context, address string, entry *modeEntry, gen uint64) {
	var claimed bool

	m.watch.with(address, entry, func(e *modeEntry) {
		if e.gen != gen || e.inFlight || !e.pending || e.endpoint.Status() != models.StatusConnected {
			return
		}

		e.inFlight = true
		claimed = true
	})

	if !claimed {
		return
	}

	m.logger.Debug().Str("address", address).Msg("Out-of-band mode probe")

	m.probeEntry(ctx, address, entry, gen)
}

func (m *ModeMonitor) tick(ctx context.Context) {
	if err := m.Sweep(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Mode sweep aborted")
	}
}

type modeTarget struct {
	address string
	entry   *modeEntry
	gen     uint64
}

// Sweep probes every Connected endpoint that owes a mode check and has no
// probe in flight.
func (m *ModeMonitor) Sweep(ctx context.Context) error {
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

	var targets []modeTarget

	m.watch.snapshot(func(e *modeEntry) bool {
		if !e.pending || e.inFlight || e.endpoint.Status() != models.StatusConnected {
			return false
		}

		e.inFlight = true
		targets = append(targets, modeTarget{address: e.endpoint.Address(), entry: e, gen: e.gen})

		return true
	})

	var g errgroup.Group

	g.SetLimit(m.cfg.MaxConcurrency)

	for _, t := range targets {
		g.Go(func() error {
			m.probeEntry(ctx, t.address, t.entry, t.gen)

			return nil
		})
	}

	_ = g.Wait()

	elapsed := m.clock.Now().Sub(start)
	recordSweep(ctx, monitorMode, elapsed)

	m.logger.Trace().
		Int("endpoints", len(targets)).
		Dur("elapsed", elapsed).
		Msg("Mode sweep complete")

	return nil
}

// probeEntry runs a claimed probe and applies its result. The entry's
// inFlight flag is always released, even when the result is discarded.
func (m *ModeMonitor) probeEntry(ctx context.Context, address string, entry *modeEntry, gen uint64) {
	res := m.prober.ProbeMode(ctx, address)

	recordProbe(ctx, monitorMode, res.Outcome.String())

	var (
		old     models.NetMode
		changed bool
	)

	m.watch.with(address, entry, func(e *modeEntry) {
		e.inFlight = false

		if e.gen != gen || ctx.Err() != nil {
			return
		}

		switch res.Outcome {
		case probe.OutcomeRetry:
			return
		case probe.OutcomeResolved, probe.OutcomeFailed:
			e.pending = false
			old, changed, _ = e.endpoint.SetConnectedMode(res.Mode)
		}
	})

	if res.Err != nil {
		m.logger.Debug().
			Err(res.Err).
			Str("address", address).
			Stringer("outcome", res.Outcome).
			Msg("Mode probe did not resolve")
	}

	if changed {
		m.emit(ctx, entry.endpoint, old, res.Mode)
	}
}

func (m *ModeMonitor) emit(ctx context.Context, endpoint *models.Endpoint, old, next models.NetMode) {
	now := m.clock.Now()

	m.logger.Info().
		Str("address", endpoint.Address()).
		Stringer("old", old).
		Stringer("new", next).
		Msg("Mode changed")

	recordTransition(ctx, monitorMode, next.String())

	m.bus.Publish(models.ModeChange{
		Address:   endpoint.Address(),
		Endpoint:  endpoint,
		Old:       old,
		New:       next,
		Timestamp: now,
	})
}
