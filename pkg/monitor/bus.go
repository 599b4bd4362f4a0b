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

import "sync"

// Bus fans events out to subscribers. Each subscriber has its own unbounded
// queue drained by a goroutine, so Publish never blocks on a slow reader.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscription delivers events on C in publish order. C is closed after
// Unsubscribe or when the bus is closed.
type Subscription[T any] struct {
	C <-chan T

	bus   *Bus[T]
	out   chan T
	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	cond  *sync.Cond
	queue []T
	ended bool
	// draining stops new events; C closes once the queue is empty.
	draining bool
}

// Subscribe registers a new subscriber. On a closed bus the returned
// subscription is already ended.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	out := make(chan T)
	s := &Subscription[T]{
		C:    out,
		bus:  b,
		out:  out,
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.pump()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		s.end()

		return s
	}

	b.subs[s] = struct{}{}

	return s
}

// Publish enqueues v for every current subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for s := range b.subs {
		s.enqueue(v)
	}
}

// Close ends every subscription. Later Publish calls are dropped.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for s := range b.subs {
		s.end()
	}

	b.subs = nil
}

func (b *Bus[T]) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Drain detaches the subscription from the bus and closes C once every
// event already queued has been received.
func (s *Subscription[T]) Drain() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()

	s.mu.Lock()
	s.draining = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Unsubscribe stops delivery and closes C. Queued events are dropped.
// It also abandons a Drain in progress.
func (s *Subscription[T]) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()

	s.end()
}

func (s *Subscription[T]) enqueue(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.draining {
		return
	}

	s.queue = append(s.queue, v)
	s.cond.Signal()
}

func (s *Subscription[T]) end() {
	s.once.Do(func() {
		s.mu.Lock()
		s.ended = true
		s.queue = nil
		s.cond.Signal()
		s.mu.Unlock()

		close(s.done)
	})
}

func (s *Subscription[T]) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.ended && !s.draining {
			s.cond.Wait()
		}

		if s.ended || len(s.queue) == 0 {
			s.mu.Unlock()

			return
		}

		v := s.queue[0]

		var zero T

		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}
