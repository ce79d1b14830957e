// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the governance lifecycle over HTTP with JSON bodies
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultListenAddress = ":8080"
	AccountHeader        = "X-Account"
	maxRequestBodyBytes  = 1 << 20
)

// Config holds the API server settings
type Config struct {
	ListenAddress string
}

// API is the governance HTTP server
type API struct {
	config     Config
	logger     *slog.Logger
	gov        Governance
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg Config,
	gov Governance,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &API{
		config: cfg,
		logger: logger,
		gov:    gov,
	}
}

// Handler returns the request router
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/v1/settings", a.handleGetSettings)
	mux.HandleFunc("PUT /api/v1/settings", a.handleUpdateSettings)
	mux.HandleFunc("GET /api/v1/proposals", a.handleListProposals)
	mux.HandleFunc("POST /api/v1/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v1/proposals/{id}", a.handleGetProposal)
	mux.HandleFunc(
		"GET /api/v1/proposals/{id}/vetoes/{account}",
		a.handleVetoStatus,
	)
	mux.HandleFunc("POST /api/v1/proposals/{id}/veto", a.handleVeto)
	mux.HandleFunc("POST /api/v1/proposals/{id}/execute", a.handleExecute)
	return mux
}

// Start binds the listener and serves in a background goroutine. The
// server shuts down when ctx is cancelled or Stop is called.
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	a.httpServer = server
	a.listenAddr = ln.Addr()
	a.mu.Unlock()
	done := stopped(server)

	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	a.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// stopped returns a channel closed when the server shuts down
func stopped(server *http.Server) <-chan struct{} {
	ch := make(chan struct{})
	server.RegisterOnShutdown(func() { close(ch) })
	return ch
}

// Addr returns the bound listen address, or nil before Start
func (a *API) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenAddr
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
