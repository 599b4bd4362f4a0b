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
	"time"
)

// runner owns the periodic driver goroutine of a monitor.
type runner struct {
	mu      sync.Mutex
	running bool
	closed  bool
	ctx     context.Context //nolint:containedctx // scoped to the current run
	stopCh  chan struct{}
	done    chan struct{}
	aux     sync.WaitGroup
}

// start runs tick once immediately and then on every ticker fire. It reports
// whether a new driver goroutine was launched; calling start on a running
// runner is a no-op.
func (r *runner) start(ctx context.Context, clock Clock, interval time.Duration, tick func(context.Context)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrMonitorClosed
	}

	if r.running && !isClosed(r.done) {
		return false, nil
	}

	if interval <= 0 {
		return false, errInvalidInterval
	}

	ticker := clock.Ticker(interval)
	stopCh := make(chan struct{})
	done := make(chan struct{})

	r.running = true
	r.ctx = ctx
	r.stopCh = stopCh
	r.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()

		tick(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.Chan():
				select {
				case <-stopCh:
					return
				default:
				}

				tick(ctx)
			}
		}
	}()

	return true, nil
}

// stop prevents further ticks and waits for the current one, and for any
// goroutines started with spawn, to finish.
func (r *runner) stop() {
	r.mu.Lock()

	if !r.running {
		r.mu.Unlock()
		r.aux.Wait()

		return
	}

	r.running = false
	stopCh, done := r.stopCh, r.done
	close(stopCh)
	r.mu.Unlock()

	<-done
	r.aux.Wait()
}

// spawn runs fn in a goroutine tied to the current run. It reports false and
// does nothing when the runner is not running.
func (r *runner) spawn(fn func(ctx context.Context, stop <-chan struct{})) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || isClosed(r.done) {
		return false
	}

	ctx, stopCh := r.ctx, r.stopCh

	r.aux.Add(1)

	go func() {
		defer r.aux.Done()

		fn(ctx, stopCh)
	}()

	return true
}

// markClosed stops the runner for good; later starts fail with ErrMonitorClosed.
func (r *runner) markClosed() bool {
	r.stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	r.closed = true

	return true
}

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}

	select {
	case <-ch:
		return true
	default:
		return false
	}
}
