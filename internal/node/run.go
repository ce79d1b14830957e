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
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/vetogov/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

// ConfigOptions converts the service configuration into Node options
func ConfigOptions(cfg *config.Config) ([]ConfigOptionFunc, error) {
	settings, err := cfg.GovernanceSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid governance settings: %w", err)
	}
	seeds, err := cfg.VotingPowerSeeds()
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	blockInterval, err := cfg.BlockIntervalDuration()
	if err != nil {
		return nil, err
	}
	nodeSeeds := make([]VotingPowerSeed, 0, len(seeds))
	for _, seed := range seeds {
		nodeSeeds = append(nodeSeeds, VotingPowerSeed{
			Account: seed.Account,
			Block:   seed.Block,
			Power:   seed.Power,
		})
	}
	opts := []ConfigOptionFunc{
		WithDatabasePath(cfg.DatabasePath),
		WithApiListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		WithShutdownTimeout(shutdownTimeout),
		WithBlockInterval(blockInterval),
		WithAdmins(cfg.Admins...),
		WithGovernanceSettings(settings),
		WithVotingPowerSeeds(nodeSeeds...),
		WithTracing(cfg.TracingEnabled),
		WithOtlpEndpoint(cfg.OtlpEndpoint),
		// Without an OTLP endpoint, traces go to stdout
		WithTracingStdout(cfg.OtlpEndpoint == ""),
	}
	if cfg.MetricsPort > 0 {
		opts = append(
			opts,
			WithMetricsListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort),
			),
		)
	}
	return opts, nil
}

// Run builds a node from the configuration and runs it until SIGINT or
// SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := ConfigOptions(cfg)
	if err != nil {
		return err
	}
	opts = append(
		opts,
		WithLogger(logger),
		// Enable metrics with default prometheus registry
		WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	n, err := New(NewConfig(opts...))
	if err != nil {
		return err
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	if err := n.Run(signalCtx); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
