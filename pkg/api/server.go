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

// Package api serves endpoint state over HTTP and streams transitions over WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/carverauto/devmon/pkg/inventory"
	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/carverauto/devmon/pkg/monitor"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultPingInterval = 30 * time.Second
	wsWriteWait         = 5 * time.Second
	wsReadWait          = 60 * time.Second
)

// StateSource is what the API reads from; *monitor.Coordinator satisfies it.
type StateSource interface {
	Snapshot() []models.EndpointState
	Endpoint(address string) (*models.Endpoint, bool)
	SubscribeReachability() *monitor.Subscription[models.ReachabilityChange]
	SubscribeMode() *monitor.Subscription[models.ModeChange]
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type Server struct {
	source       StateSource
	apiKey       string
	router       *mux.Router
	logger       logger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	mu       sync.Mutex
	srv      *http.Server
	cancel   context.CancelFunc
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey protects the /api routes with a shared key.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

func NewServer(source StateSource, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		source:       source,
		router:       mux.NewRouter(),
		logger:       logger.Component(log, "api"),
		pingInterval: defaultPingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(APIKeyMiddleware(s.apiKey))
	v1.HandleFunc("/endpoints", s.handleListEndpoints).Methods(http.MethodGet)
	v1.HandleFunc("/endpoints/{address}", s.handleGetEndpoint).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	s.mu.Lock()
	s.srv = srv
	s.cancel = cancel
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP API listening")

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop ends open event streams and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.srv, s.cancel
	s.srv, s.cancel, s.listener = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	cancel()

	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"endpoints": len(s.source.Snapshot()),
	})
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Snapshot())
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	address, err := inventory.NormalizeAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	endpoint, ok := s.source.Endpoint(address)
	if !ok {
		writeError(w, "endpoint not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, endpoint.State())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Message: message, Status: status})
}
