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

package node

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

	"github.com/blinklabs-io/vetogov/api"
	"github.com/blinklabs-io/vetogov/database"
	"github.com/blinklabs-io/vetogov/event"
	"github.com/blinklabs-io/vetogov/governance"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultShutdownTimeout = 30 * time.Second

// Node wires the database, voting power oracle, governance plugin, event bus
// and network listeners into a running service
type Node struct {
	config          Config
	eventBus        *event.EventBus
	db              *database.Database
	oracle          *votingpower.DatabaseOracle
	governance      *governance.Plugin
	api             *api.API
	apiMutex        sync.Mutex
	metricsServer   *http.Server
	metricsListener net.Listener
	shutdownFuncs   []func(context.Context) error
	stopCh          chan struct{}
	done            chan struct{}
	wg              sync.WaitGroup
	shutdownOnce    sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.shutdownTimeout <= 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	if cfg.blockInterval < 0 {
		return nil, errors.New("invalid configuration: negative block interval")
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	return n, nil
}

// Start opens storage, builds the governance plugin and starts the
// listeners. Stop must be called to release resources, even when Start fails.
func (n *Node) Start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	oracle, err := votingpower.NewDatabaseOracle(n.db)
	if err != nil {
		return err
	}
	n.oracle = oracle
	if err := n.seedVotingPower(); err != nil {
		return err
	}
	n.config.logger.Info(
		fmt.Sprintf("voting power head at block %d", oracle.Head()),
		"component", "node",
	)
	// Governance
	govOpts := []governance.PluginOptionFunc{
		governance.WithLogger(n.config.logger),
		governance.WithPromRegistry(n.config.promRegistry),
		governance.WithEventBus(n.eventBus),
		governance.WithAuthorizer(n.authorizer()),
	}
	if n.config.settings != nil {
		govOpts = append(
			govOpts,
			governance.WithSettings(*n.config.settings),
		)
	}
	gov, err := governance.New(
		governance.NewDatabaseStore(n.db),
		oracle,
		govOpts...,
	)
	if err != nil {
		return fmt.Errorf("failed to load governance: %w", err)
	}
	n.governance = gov
	n.subscribeEvents()
	if n.config.blockInterval > 0 {
		n.wg.Add(1)
		go n.advanceBlocks()
	}
	// Metrics listener
	if n.config.metricsAddr != "" {
		if err := n.startMetrics(); err != nil {
			return err
		}
	}
	// API listener
	apiServer := api.New(
		api.Config{ListenAddress: n.config.apiListenAddr},
		gov,
		n.config.logger,
	)
	n.apiMutex.Lock()
	n.api = apiServer
	n.apiMutex.Unlock()
	return apiServer.Start(ctx)
}

// Run starts the node and blocks until ctx is cancelled, then shuts down
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	<-ctx.Done()
	n.config.logger.Info(
		"shutdown requested, initiating graceful shutdown",
		"component", "node",
	)
	return n.Stop()
}

// Governance returns the governance plugin, or nil before Start
func (n *Node) Governance() *governance.Plugin {
	return n.governance
}

// Oracle returns the voting power oracle, or nil before Start
func (n *Node) Oracle() *votingpower.DatabaseOracle {
	return n.oracle
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ApiAddr returns the bound API listen address, or nil before Start
func (n *Node) ApiAddr() net.Addr {
	n.apiMutex.Lock()
	apiServer := n.api
	n.apiMutex.Unlock()
	if apiServer == nil {
		return nil
	}
	return apiServer.Addr()
}

// MetricsAddr returns the bound metrics listen address, or nil when the
// metrics listener is disabled
func (n *Node) MetricsAddr() net.Addr {
	if n.metricsListener == nil {
		return nil
	}
	return n.metricsListener.Addr()
}

// Done is closed once shutdown has finished
func (n *Node) Done() <-chan struct{} {
	return n.done
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.config.shutdownTimeout,
	)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	n.apiMutex.Lock()
	apiServer := n.api
	n.apiMutex.Unlock()
	if apiServer != nil {
		if stopErr := apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.metricsServer != nil {
		if stopErr := n.metricsServer.Shutdown(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("metrics shutdown: %w", stopErr))
		}
	}
	close(n.stopCh)
	n.wg.Wait()

	// Phase 2: Drain events
	n.eventBus.Stop()

	// Phase 3: Close database
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}

// authorizer grants both permissions to each admin. With no admins anyone
// may execute and nobody may update settings.
func (n *Node) authorizer() governance.Authorizer {
	auth := governance.NewStaticAuthorizer()
	if len(n.config.admins) == 0 {
		auth.Grant(governance.AnyAccount, governance.ExecuteProposalPermission)
		return auth
	}
	for _, admin := range n.config.admins {
		auth.Grant(admin, governance.UpdateSettingsPermission)
		auth.Grant(admin, governance.ExecuteProposalPermission)
	}
	return auth
}

func (n *Node) seedVotingPower() error {
	if len(n.config.votingPower) == 0 {
		return nil
	}
	checkpoints := make([]votingpower.Checkpoint, 0, len(n.config.votingPower))
	for _, seed := range n.config.votingPower {
		checkpoints = append(checkpoints, votingpower.Checkpoint{
			Account: seed.Account,
			Block:   seed.Block,
			Power:   seed.Power,
		})
	}
	if err := n.oracle.Seed(checkpoints); err != nil {
		return fmt.Errorf("failed to seed voting power: %w", err)
	}
	n.config.logger.Info(
		fmt.Sprintf(
			"applied %d voting power seeds",
			len(n.config.votingPower),
		),
		"component", "node",
	)
	return nil
}

func (n *Node) subscribeEvents() {
	for _, eventType := range []event.EventType{
		event.ProposalCreatedEventType,
		event.VetoCastEventType,
		event.ProposalExecutedEventType,
		event.SettingsUpdatedEventType,
	} {
		n.eventBus.SubscribeFunc(eventType, func(evt event.Event) {
			n.config.logger.Debug(
				fmt.Sprintf("event: %+v", evt.Data),
				"component", "node",
				"type", string(evt.Type),
			)
		})
	}
}

func (n *Node) advanceBlocks() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.config.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			head, err := n.oracle.Advance(1)
			if err != nil {
				n.config.logger.Error(
					fmt.Sprintf("failed to advance voting power head: %s", err),
					"component", "node",
				)
				continue
			}
			n.config.logger.Debug(
				fmt.Sprintf("voting power head advanced to block %d", head),
				"component", "node",
			)
		}
	}
}

func (n *Node) startMetrics() error {
	var handler http.Handler
	if gatherer, ok := n.config.promRegistry.(prometheus.Gatherer); ok {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	} else {
		handler = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	ln, err := net.Listen("tcp", n.config.metricsAddr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}
	n.metricsListener = ln
	n.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	n.config.logger.Info(
		"serving prometheus metrics on "+ln.Addr().String(),
		"component", "node",
	)
	server := n.metricsServer
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.config.logger.Error(
				fmt.Sprintf("metrics listener failed: %s", err),
				"component", "node",
			)
		}
	}()
	return nil
}
