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

package inventory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/devmon/pkg/logger"
)

const (
	kvWatchInitialBackoff = 1 * time.Second
	kvWatchMaxBackoff     = 5 * time.Minute
	kvWatchBackoffFactor  = 2
	kvWatchJitterFactor   = 0.1 // 10% jitter
)

// KVSource keeps a Registry in step with a NATS KV bucket whose keys are
// endpoint addresses. A put adds the address, a delete or purge removes it.
type KVSource struct {
	kv       jetstream.KeyValue
	registry *Registry
	logger   logger.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration

	syncOnce sync.Once
	synced   chan struct{}
}

func NewKVSource(kv jetstream.KeyValue, registry *Registry, log logger.Logger) (*KVSource, error) {
	if kv == nil {
		return nil, errNilKeyValue
	}

	return &KVSource{
		kv:             kv,
		registry:       registry,
		logger:         logger.Component(log, "inventory-kv"),
		initialBackoff: kvWatchInitialBackoff,
		maxBackoff:     kvWatchMaxBackoff,
		synced:         make(chan struct{}),
	}, nil
}

// OpenKVSource binds to bucket, creating it when it does not exist yet.
func OpenKVSource(ctx context.Context, js jetstream.JetStream, bucket string, registry *Registry, log logger.Logger) (*KVSource, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	return NewKVSource(kv, registry, log)
}

// Synced is closed once the first full replay of the bucket has been applied.
func (s *KVSource) Synced() <-chan struct{} {
	return s.synced
}

// Run watches the bucket until ctx is done, re-establishing the watch with
// exponential backoff and jitter whenever it ends.
func (s *KVSource) Run(ctx context.Context) error {
	backoff := s.initialBackoff

	s.logger.Info().Str("bucket", s.kv.Bucket()).Msg("Starting KV watch with auto-reconnect")

	for {
		if ctx.Err() != nil {
			return nil
		}

		synced, err := s.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if synced {
			backoff = s.initialBackoff
		}

		delay := addJitter(backoff)

		s.logger.Warn().
			Err(err).
			Dur("delay", delay).
			Msg("KV watch ended, retrying after backoff")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		backoff = min(backoff*kvWatchBackoffFactor, s.maxBackoff)
	}
}

// watch runs one watch session and reports whether it completed the initial replay.
func (s *KVSource) watch(ctx context.Context) (bool, error) {
	watcher, err := s.kv.WatchAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to watch bucket %s: %w", s.kv.Bucket(), err)
	}

	defer func() {
		if err := watcher.Stop(); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to stop KV watcher")
		}
	}()

	synced := false

	for {
		select {
		case <-ctx.Done():
			return synced, nil
		case entry, ok := <-watcher.Updates():
			if !ok {
				return synced, nil
			}

			// nil marks the end of the initial replay
			if entry == nil {
				synced = true

				s.syncOnce.Do(func() { close(s.synced) })
				s.logger.Info().Int("endpoints", s.registry.Len()).Msg("Initial KV sync complete")

				continue
			}

			s.apply(entry)
		}
	}
}

func (s *KVSource) apply(entry jetstream.KeyValueEntry) {
	var err error

	switch entry.Operation() {
	case jetstream.KeyValuePut:
		_, err = s.registry.Add(entry.Key())
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		_, err = s.registry.Remove(entry.Key())
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("key", entry.Key()).Msg("Ignoring KV entry")
	}
}

func addJitter(d time.Duration) time.Duration {
	spread := float64(d) * kvWatchJitterFactor

	return d + time.Duration((rand.Float64()*2-1)*spread) //nolint:gosec // jitter only
}
