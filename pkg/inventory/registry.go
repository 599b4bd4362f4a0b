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

// Package inventory owns the canonical set of watched endpoint addresses.
package inventory

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

//go:generate mockgen -destination=mock_inventory.go -package=inventory github.com/carverauto/devmon/pkg/inventory EndpointSink

// EndpointSink receives endpoints as they enter and leave the registry.
type EndpointSink interface {
	AddEndpoint(endpoint *models.Endpoint) *models.Endpoint
	RemoveEndpoint(address string) bool
}

// Registry validates addresses and mirrors the endpoint set into a sink.
type Registry struct {
	sink   EndpointSink
	logger logger.Logger

	mu        sync.RWMutex
	endpoints map[string]*models.Endpoint
}

func NewRegistry(sink EndpointSink, log logger.Logger) *Registry {
	return &Registry{
		sink:      sink,
		logger:    logger.Component(log, "inventory"),
		endpoints: make(map[string]*models.Endpoint),
	}
}

// NormalizeAddress returns the canonical dotted-quad form of address.
func NormalizeAddress(address string) (string, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	return addr.String(), nil
}

// Add registers address. Adding an address twice returns the first endpoint.
func (r *Registry) Add(address string) (*models.Endpoint, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.endpoints[address]; ok {
		return existing, nil
	}

	endpoint := models.NewEndpoint(address)
	if r.sink != nil {
		endpoint = r.sink.AddEndpoint(endpoint)
	}

	r.endpoints[address] = endpoint

	r.logger.Info().Str("address", address).Msg("Endpoint added")

	return endpoint, nil
}

// Remove unregisters address and reports whether it was present.
func (r *Registry) Remove(address string) (bool, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[address]; !ok {
		return false, nil
	}

	delete(r.endpoints, address)

	if r.sink != nil {
		r.sink.RemoveEndpoint(address)
	}

	r.logger.Info().Str("address", address).Msg("Endpoint removed")

	return true, nil
}

// Get returns the endpoint registered under address.
func (r *Registry) Get(address string) (*models.Endpoint, bool) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.endpoints[address]

	return endpoint, ok
}

// List returns the registered addresses in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.endpoints))

	for address := range r.endpoints {
		out = append(out, address)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, compareAddresses)

	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.endpoints)
}

// Seed adds every address, skipping invalid ones. The returned error joins
// every rejected address.
func (r *Registry) Seed(addresses []string) error {
	var errs []error

	for _, address := range addresses {
		if _, err := r.Add(address); err != nil {
			r.logger.Warn().Err(err).Msg("Skipping seed address")

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func compareAddresses(a, b string) int {
	return netip.MustParseAddr(a).Compare(netip.MustParseAddr(b))
}
