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

// Package natsutil publishes device monitor events to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

const (
	eventSource               = "devmon/monitor"
	eventTypeReachability     = "com.carverauto.devmon.endpoint.reachability"
	eventTypeMode             = "com.carverauto.devmon.endpoint.mode"
	defaultEventSubjectFilter = "events.devices.*"
)

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName string) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
	}
}

// Stream returns the JetStream stream the publisher writes to.
func (p *EventPublisher) Stream() string {
	return p.stream
}

// PublishReachabilityChange publishes a reachability transition.
func (p *EventPublisher) PublishReachabilityChange(ctx context.Context, change models.ReachabilityChange) error {
	return p.publish(ctx, models.SubjectReachabilityChanged, eventTypeReachability, change.Address, change.Timestamp, change)
}

// PublishModeChange publishes a mode transition.
func (p *EventPublisher) PublishModeChange(ctx context.Context, change models.ModeChange) error {
	return p.publish(ctx, models.SubjectModeChanged, eventTypeMode, change.Address, change.Timestamp, change)
}

func (p *EventPublisher) publish(ctx context.Context, subject, eventType, address string, at time.Time, data interface{}) error {
	if at.IsZero() {
		at = time.Now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource + "/" + address,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &at,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if _, err := p.js.Publish(ctx, subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// ConnectWithSecurity creates a NATS connection from cfg, using mTLS when cfg.TLS is set.
func ConnectWithSecurity(ctx context.Context, cfg *models.NATSConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	if cfg == nil {
		return nil, errNATSConfigRequired
	}

	log = logger.Component(log, "nats")

	var opts []nats.Option

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts,
			nats.Secure(tlsConf),
			nats.RootCAs(cfg.TLS.CAFile),
			nats.ClientCert(cfg.TLS.CertFile, cfg.TLS.KeyFile),
		)
	}

	opts = append(opts,
		nats.Name("devmon"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// NewJetStream returns a JetStream context, bound to domain when one is given.
func NewJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain != "" {
		js, err := jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}

		return js, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return js, nil
}

// CreateEventPublisher creates an EventPublisher for an existing NATS connection.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, streamName string, subjects []string) (*EventPublisher, error) {
	return CreateEventPublisherWithDomain(ctx, nc, "", streamName, subjects)
}

// CreateEventPublisherWithDomain creates an EventPublisher with optional NATS domain support.
// The stream is created when missing and widened when it does not cover the device subjects.
func CreateEventPublisherWithDomain(ctx context.Context, nc *nats.Conn, domain, streamName string, subjects []string) (*EventPublisher, error) {
	js, err := NewJetStream(nc, domain)
	if err != nil {
		return nil, err
	}

	if streamName == "" {
		streamName = models.DefaultEventsStream
	}

	if len(subjects) == 0 {
		subjects = []string{defaultEventSubjectFilter}
	}

	subjects = ensureSubjectList(subjects, models.SubjectReachabilityChanged)
	subjects = ensureSubjectList(subjects, models.SubjectModeChanged)

	stream, err := js.Stream(ctx, streamName)
	switch {
	case err == nil:
		cfg := stream.CachedInfo().Config
		merged := append([]string(nil), cfg.Subjects...)

		for _, s := range subjects {
			merged = ensureSubjectList(merged, s)
		}

		if len(merged) != len(cfg.Subjects) {
			cfg.Subjects = merged
			if _, err := js.UpdateStream(ctx, cfg); err != nil {
				return nil, fmt.Errorf("failed to update stream %s: %w", streamName, err)
			}
		}
	case isStreamMissingErr(err):
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		}); err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
	default:
		return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
	}

	return NewEventPublisher(js, streamName), nil
}

func ensureSubjectList(subjects []string, subject string) []string {
	for _, existing := range subjects {
		if matchesSubject(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether the NATS subject pattern covers subject.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
