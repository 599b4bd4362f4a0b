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

// watchList is a mutex-guarded address index. All reads and writes of entry
// fields go through its methods so the lock also covers per-entry bookkeeping.
type watchList[E any] struct {
	mu      sync.Mutex
	entries map[string]*E
}

func newWatchList[E any]() *watchList[E] {
	return &watchList[E]{entries: make(map[string]*E)}
}

// add stores the entry built by create unless address is already present.
func (w *watchList[E]) add(address string, create func() *E) (*E, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.entries[address]; ok {
		return existing, false
	}

	entry := create()
	w.entries[address] = entry

	return entry, true
}

func (w *watchList[E]) remove(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.entries[address]; !ok {
		return false
	}

	delete(w.entries, address)

	return true
}

func (w *watchList[E]) clear() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.entries)
	w.entries = make(map[string]*E)

	return n
}

func (w *watchList[E]) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.entries)
}

// snapshot returns the entries accepted by pick. pick runs under the lock and
// may mutate the entry, e.g. to claim it for a probe.
func (w *watchList[E]) snapshot(pick func(*E) bool) []*E {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*E, 0, len(w.entries))

	for _, entry := range w.entries {
		if pick == nil || pick(entry) {
			out = append(out, entry)
		}
	}

	return out
}

// with runs fn under the lock if entry is still the one stored for address.
// It reports false, without calling fn, for removed or replaced entries.
func (w *watchList[E]) with(address string, entry *E, fn func(*E)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if current, ok := w.entries[address]; !ok || current != entry {
		return false
	}

	fn(entry)

	return true
}

// lookup runs fn under the lock on the entry stored for address.
func (w *watchList[E]) lookup(address string, fn func(*E)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[address]
	if !ok {
		return false
	}

	fn(entry)

	return true
}
