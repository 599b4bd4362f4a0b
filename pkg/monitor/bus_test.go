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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrderToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus[int]()
	a := bus.Subscribe()
	b := bus.Subscribe()

	for i := 1; i <= 100; i++ {
		bus.Publish(i)
	}

	for i := 1; i <= 100; i++ {
		assert.Equal(t, i, nextEvent(t, a))
		assert.Equal(t, i, nextEvent(t, b))
	}
}

func TestBusPublishDoesNotBlockOnIdleSubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus[int]()
	_ = bus.Subscribe()

	done := make(chan struct{})

	go func() {
		for i := 0; i < 10000; i++ {
			bus.Publish(i)
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(eventWait):
		t.Fatal("Publish blocked on a subscriber that never reads")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	bus := NewBus[string]()
	sub := bus.Subscribe()
	other := bus.Subscribe()

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 1, bus.subscribers())

	bus.Publish("still delivered")
	assert.Equal(t, "still delivered", nextEvent(t, other))
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	t.Parallel()

	bus := NewBus[int]()
	sub := bus.Subscribe()

	bus.Close()
	bus.Close()
	bus.Publish(1)

	_, ok := <-sub.C
	require.False(t, ok)

	late := bus.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok, "subscribing to a closed bus yields an ended subscription")
}

func TestBusDrainDeliversQueuedEventsThenCloses(t *testing.T) {
	t.Parallel()

	bus := NewBus[int]()
	sub := bus.Subscribe()

	for i := 1; i <= 5; i++ {
		bus.Publish(i)
	}

	sub.Drain()
	bus.Publish(6)
	assert.Equal(t, 0, bus.subscribers())

	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, nextEvent(t, sub))
	}

	select {
	case v, ok := <-sub.C:
		require.False(t, ok, "unexpected event after drain: %d", v)
	case <-time.After(eventWait):
		t.Fatal("channel not closed after queue drained")
	}
}

func TestBusDrainOnEmptyQueueClosesChannel(t *testing.T) {
	t.Parallel()

	bus := NewBus[int]()
	sub := bus.Subscribe()
	sub.Drain()

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(eventWait):
		t.Fatal("channel not closed")
	}

	sub.Unsubscribe()
}
