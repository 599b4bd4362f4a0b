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

// Package service assembles the device monitors and their optional sinks
// into one long-running daemon.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/devmon/pkg/api"
	"github.com/carverauto/devmon/pkg/db"
	"github.com/carverauto/devmon/pkg/inventory"
	"github.com/carverauto/devmon/pkg/lifecycle"
	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/monitor"
	"github.com/carverauto/devmon/pkg/natsutil"
	"github.com/carverauto/devmon/pkg/probe"
	"github.com/carverauto/devmon/pkg/version"
)

const sinkTimeout = 5 * time.Second

// Service runs the coordinator, the endpoint registry and every configured sink.
type Service struct {
	cfg    *Config
	base   logger.Logger
	logger logger.Logger

	coordinator *monitor.Coordinator
	registry    *inventory.Registry

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	sinkWG    sync.WaitGroup
	subs      []sinkSubscription
	nc        *nats.Conn
	pool      *pgxpool.Pool
	publisher *natsutil.EventPublisher
	recorder  *db.LastSeenRecorder
	kvSource  *inventory.KVSource
	api       *api.Server
}

var _ lifecycle.Service = (*Service)(nil)

type sinkSubscription interface {
	Drain()
	Unsubscribe()
}

type options struct {
	liveness probe.LivenessProber
	mode     probe.ModeProber
	clock    monitor.Clock
}

// Option overrides a dependency New would otherwise build from Config.
type Option func(*options)

func WithLivenessProber(p probe.LivenessProber) Option {
	return func(o *options) { o.liveness = p }
}

func WithModeProber(p probe.ModeProber) Option {
	return func(o *options) { o.mode = p }
}

func WithClock(c monitor.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New validates cfg and wires the monitors. Nothing runs until Start.
func New(cfg *Config, log logger.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	o := options{clock: monitor.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.liveness == nil {
		p, err := probe.NewLivenessProber(
			cfg.Reachability.Method,
			time.Duration(cfg.Reachability.Timeout),
			cfg.Reachability.TCPPort,
			logger.Component(log, "liveness"),
		)
		if err != nil {
			return nil, err
		}

		o.liveness = p
	}

	if o.mode == nil {
		o.mode = probe.NewGetGenProber(cfg.Mode.proberConfig(), nil, logger.Component(log, "getgen"))
	}

	coordinator := monitor.NewCoordinator(
		cfg.Reachability.monitorConfig(),
		cfg.Mode.monitorConfig(),
		o.liveness,
		o.mode,
		o.clock,
		log,
	)

	registry := inventory.NewRegistry(coordinator, log)
	if err := registry.Seed(cfg.Endpoints); err != nil {
		return nil, err
	}

	return &Service{
		cfg:         cfg,
		base:        log,
		logger:      logger.Component(log, "service"),
		coordinator: coordinator,
		registry:    registry,
	}, nil
}

func (s *Service) Coordinator() *monitor.Coordinator { return s.coordinator }
func (s *Service) Registry() *inventory.Registry      { return s.registry }

// APIAddr returns the HTTP API address, or "" when the API is not running.
func (s *Service) APIAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return ""
	}

	return s.api.Addr()
}

// Start connects the configured sinks, then starts the monitors and the API.
// On failure everything already started is torn down again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true

	if err := s.startLocked(ctx, runCtx); err != nil {
		_ = s.stopLocked(context.Background())

		return err
	}

	s.logger.Info().
		Str("version", version.GetVersion()).
		Int("endpoints", s.registry.Len()).
		Msg("devmon started")

	return nil
}

func (s *Service) startLocked(ctx, runCtx context.Context) error {
	s.initMetrics(ctx)

	if err := s.connectDatabase(ctx); err != nil {
		return err
	}

	if err := s.connectNATS(ctx, runCtx); err != nil {
		return err
	}

	s.startSinks(runCtx)

	if err := s.coordinator.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start monitors: %w", err)
	}

	if s.cfg.ListenAddr != "" {
		server := api.NewServer(s.coordinator, s.base, api.WithAPIKey(s.cfg.APIKey))
		if err := server.Start(runCtx, s.cfg.ListenAddr); err != nil {
			return err
		}

		s.api = server
	}

	return nil
}

func (s *Service) initMetrics(ctx context.Context) {
	metricsCfg := s.cfg.Metrics.OTel.providerConfig()
	metricsCfg.ServiceVersion = version.GetVersion()

	_, err := logger.InitializeMetrics(ctx, metricsCfg)

	switch {
	case errors.Is(err, logger.ErrMetricsDisabled):
		s.logger.Debug().Msg("OTel metrics exporter disabled")
	case err != nil:
		s.logger.Warn().Err(err).Msg("Failed to initialize OTel metrics, continuing without export")
	}
}

func (s *Service) connectDatabase(ctx context.Context) error {
	if s.cfg.Database == nil {
		return nil
	}

	pool, err := db.NewPool(ctx, s.cfg.Database, s.base)
	if err != nil {
		return err
	}

	s.pool = pool

	recorder, err := db.NewLastSeenRecorder(pool, s.base)
	if err != nil {
		return err
	}

	if err := recorder.EnsureSchema(ctx); err != nil {
		return err
	}

	s.recorder = recorder

	return nil
}

func (s *Service) connectNATS(ctx, runCtx context.Context) error {
	eventsEnabled := s.cfg.Events != nil && s.cfg.Events.Enabled
	inventoryEnabled := s.cfg.Inventory != nil && s.cfg.Inventory.Enabled

	if s.cfg.NATS == nil || (!eventsEnabled && !inventoryEnabled) {
		return nil
	}

	nc, err := natsutil.ConnectWithSecurity(ctx, s.cfg.NATS, s.base)
	if err != nil {
		return err
	}

	s.nc = nc

	if eventsEnabled {
		publisher, err := natsutil.CreateEventPublisherWithDomain(ctx, nc,
			s.cfg.NATS.Domain, s.cfg.Events.StreamName, s.cfg.Events.Subjects)
		if err != nil {
			return err
		}

		s.publisher = publisher
	}

	if inventoryEnabled {
		js, err := natsutil.NewJetStream(nc, s.cfg.NATS.Domain)
		if err != nil {
			return err
		}

		source, err := inventory.OpenKVSource(ctx, js, s.cfg.Inventory.Bucket, s.registry, s.base)
		if err != nil {
			return err
		}

		s.kvSource = source
		goRun(&s.wg, func() {
			if err := source.Run(runCtx); err != nil {
				s.logger.Error().Err(err).Msg("Inventory KV watch stopped")
			}
		})
	}

	return nil
}

// startSinks subscribes every sink before the monitors start so no
// transition is missed.
func (s *Service) startSinks(ctx context.Context) {
	reachHandlers := []func(context.Context, models.ReachabilityChange) error{s.logReachability}
	modeHandlers := []func(context.Context, models.ModeChange) error{s.logMode}

	if s.publisher != nil {
		reachHandlers = append(reachHandlers, s.publisher.PublishReachabilityChange)
		modeHandlers = append(modeHandlers, s.publisher.PublishModeChange)
	}

	if s.recorder != nil {
		reachHandlers = append(reachHandlers, s.recorder.RecordReachability)
		modeHandlers = append(modeHandlers, s.recorder.RecordMode)
	}

	reach := s.coordinator.SubscribeReachability()
	mode := s.coordinator.SubscribeMode()
	s.subs = append(s.subs, reach, mode)

	goRun(&s.sinkWG, func() { consume(ctx, s.logger, "reachability", reach.C, reachHandlers) })
	goRun(&s.sinkWG, func() { consume(ctx, s.logger, "mode", mode.C, modeHandlers) })
}

func goRun(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)

	go func() {
		defer wg.Done()
		fn()
	}()
}

// consume hands each event to every handler in order until ch closes or ctx ends.
func consume[T any](ctx context.Context, log logger.Logger, kind string, ch <-chan T, handlers []func(context.Context, T) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}

			for _, handle := range handlers {
				hctx, cancel := context.WithTimeout(ctx, sinkTimeout)
				err := handle(hctx, event)
				cancel()

				if err != nil {
					log.Warn().Err(err).Str("event", kind).Msg("Event sink failed")
				}
			}
		}
	}
}

func (s *Service) logReachability(_ context.Context, change models.ReachabilityChange) error {
	s.logger.Info().
		Str("address", change.Address).
		Str("old_status", change.Old.String()).
		Str("new_status", change.New.String()).
		Msg("Endpoint reachability changed")

	return nil
}

func (s *Service) logMode(_ context.Context, change models.ModeChange) error {
	s.logger.Info().
		Str("address", change.Address).
		Str("old_mode", change.Old.String()).
		Str("new_mode", change.New.String()).
		Msg("Endpoint mode changed")

	return nil
}

// Stop shuts everything down in reverse start order.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	return s.stopLocked(ctx)
}

func (s *Service) stopLocked(ctx context.Context) error {
	var errs []error

	if s.api != nil {
		if err := s.api.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("api: %w", err))
		}

		s.api = nil
	}

	// Monitors publish nothing after Stop returns; sinks drain what the last
	// sweep queued before the run context ends.
	s.coordinator.Stop()

	for _, sub := range s.subs {
		sub.Drain()
	}

	if err := waitGroup(ctx, &s.sinkWG); err != nil {
		errs = append(errs, err)
	}

	s.cancel()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	s.subs = nil

	if err := waitGroup(ctx, &s.wg); err != nil {
		errs = append(errs, err)
	}

	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	s.publisher = nil
	s.recorder = nil
	s.kvSource = nil
	s.started = false

	if err := logger.ShutdownMetrics(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}

	return errors.Join(errs...)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sinks: %w", ctx.Err())
	}
}

// Close releases the monitors for good. The service cannot be restarted.
func (s *Service) Close() {
	s.coordinator.Close()
}
