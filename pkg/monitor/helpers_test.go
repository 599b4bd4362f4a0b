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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/probe"
)

const (
	eventWait   = 2 * time.Second
	silenceWait = 100 * time.Millisecond
)

// nextEvent waits for one event on sub.
func nextEvent[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()

	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed while waiting for event")
		}

		return ev
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for event")
	}

	var zero T

	return zero
}

// expectNoEvent fails if sub delivers anything within a short window.
func expectNoEvent[T any](t *testing.T, sub *Subscription[T]) {
	t.Helper()

	select {
	case ev, ok := <-sub.C:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(silenceWait):
	}
}

// concurrencyTracker records how many calls run at once and which addresses
// were seen.
type concurrencyTracker struct {
	delay   time.Duration
	current atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
	seen    sync.Map
}

func (c *concurrencyTracker) enter(address string) {
	c.calls.Add(1)
	n := c.current.Add(1)

	for {
		old := c.peak.Load()
		if n <= old || c.peak.CompareAndSwap(old, n) {
			break
		}
	}

	c.seen.Store(address, struct{}{})
	time.Sleep(c.delay)
	c.current.Add(-1)
}

func (c *concurrencyTracker) seenCount() int {
	n := 0

	c.seen.Range(func(_, _ any) bool {
		n++

		return true
	})

	return n
}

type slowLivenessProber struct{ concurrencyTracker }

func (p *slowLivenessProber) Probe(_ context.Context, address string) bool {
	p.enter(address)

	return true
}

type slowModeProber struct{ concurrencyTracker }

func (p *slowModeProber) ProbeMode(_ context.Context, address string) probe.ModeResult {
	p.enter(address)

	return probe.ModeResult{Outcome: probe.OutcomeResolved, Mode: models.ModeWired}
}
