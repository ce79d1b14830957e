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
	"log/slog"
	"time"

	"github.com/blinklabs-io/vetogov/governance"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// VotingPowerSeed is an account's voting power as of a block
type VotingPowerSeed struct {
	Power   *uint256.Int
	Account string
	Block   uint64
}

type Config struct {
	logger          *slog.Logger
	promRegistry    prometheus.Registerer
	settings        *governance.Settings
	dataDir         string
	apiListenAddr   string
	metricsAddr     string
	otlpEndpoint    string
	admins          []string
	votingPower     []VotingPowerSeed
	shutdownTimeout time.Duration
	blockInterval   time.Duration
	tracing         bool
	tracingStdout   bool
}

// ConfigOptionFunc is a type that represents functions that modify the Node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new Node config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		apiListenAddr: "127.0.0.1:0",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory. An empty path
// keeps all data in memory.
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithApiListenAddress specifies the address of the governance HTTP API
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddr = addr
	}
}

// WithMetricsListenAddress specifies the address of the prometheus metrics
// listener. Empty disables it.
func WithMetricsListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.metricsAddr = addr
	}
}

// WithTracing enables tracing. Spans are submitted over OTLP/HTTP when an
// endpoint is given with WithOtlpEndpoint, or using the OTEL_EXPORTER_OTLP_*
// env vars otherwise
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout sends spans to stdout instead of an OTLP endpoint. This also requires tracing to enabled separately
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

func WithOtlpEndpoint(endpoint string) ConfigOptionFunc {
	return func(c *Config) {
		c.otlpEndpoint = endpoint
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithBlockInterval advances the voting power head block on a timer
func WithBlockInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.blockInterval = interval
	}
}

// WithAdmins specifies the accounts allowed to update settings and execute
// proposals. With no admins anyone may execute and nobody may update
// settings.
func WithAdmins(admins ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.admins = admins
	}
}

// WithGovernanceSettings specifies the initial governance settings. Settings
// saved in the database take precedence.
func WithGovernanceSettings(settings governance.Settings) ConfigOptionFunc {
	return func(c *Config) {
		c.settings = &settings
	}
}

// WithVotingPowerSeeds specifies voting power checkpoints to write at startup
func WithVotingPowerSeeds(seeds ...VotingPowerSeed) ConfigOptionFunc {
	return func(c *Config) {
		c.votingPower = seeds
	}
}
