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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/vetogov/governance"
	"github.com/holiman/uint256"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "vetogov.config"

const (
	DefaultShutdownTimeout = "30s"
	envPrefix              = "vetogov"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// GovernanceConfig holds the initial governance settings. They only apply
// when the database has no saved settings.
type GovernanceConfig struct {
	// MinDuration is a Go duration string such as "96h"
	MinDuration            string `yaml:"minDuration"            split_words:"true"`
	MinProposerVotingPower string `yaml:"minProposerVotingPower" split_words:"true"`
	MinVetoRatio           uint32 `yaml:"minVetoRatio"           split_words:"true"`
}

// VotingPowerSeed is an account's voting power as of a block, loaded into
// the database at startup
type VotingPowerSeed struct {
	Account string `yaml:"account"`
	Power   string `yaml:"power"`
	Block   uint64 `yaml:"block"`
}

// Config is the service configuration. BlockInterval advances the voting
// power head block on a timer; empty leaves the head where the seeded
// checkpoints put it.
type Config struct {
	BindAddr        string            `yaml:"bindAddr"        split_words:"true"`
	DatabasePath    string            `yaml:"databasePath"    split_words:"true"`
	ShutdownTimeout string            `yaml:"shutdownTimeout" split_words:"true"`
	BlockInterval   string            `yaml:"blockInterval"   split_words:"true"`
	OtlpEndpoint    string            `yaml:"otlpEndpoint"    split_words:"true"`
	Admins          []string          `yaml:"admins"`
	VotingPower     []VotingPowerSeed `yaml:"votingPower"     ignored:"true"`
	Governance      GovernanceConfig  `yaml:"governance"`
	ApiPort         uint              `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint              `yaml:"metricsPort"     split_words:"true"`
	TracingEnabled  bool              `yaml:"tracingEnabled"  split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".vetogov",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
		Governance: GovernanceConfig{
			MinVetoRatio:           100_000,
			MinDuration:            "96h",
			MinProposerVotingPower: "0",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// and VETOGOV_* environment variables, in that order. With no file given it
// looks for ~/.vetogov/vetogov.yaml and then /etc/vetogov/vetogov.yaml.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".vetogov", "vetogov.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/vetogov/vetogov.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if _, err := cfg.ShutdownTimeoutDuration(); err != nil {
		return nil, err
	}
	if _, err := cfg.BlockIntervalDuration(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BlockIntervalDuration parses BlockInterval. Zero means disabled.
func (c *Config) BlockIntervalDuration() (time.Duration, error) {
	if c.BlockInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.BlockInterval)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid blockInterval %q: %w",
			c.BlockInterval,
			err,
		)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid blockInterval %q: negative", c.BlockInterval)
	}
	return d, nil
}

// ShutdownTimeoutDuration parses ShutdownTimeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid shutdownTimeout %q: %w",
			c.ShutdownTimeout,
			err,
		)
	}
	return d, nil
}

// GovernanceSettings converts the governance section and validates it
func (c *Config) GovernanceSettings() (governance.Settings, error) {
	duration, err := time.ParseDuration(c.Governance.MinDuration)
	if err != nil {
		return governance.Settings{}, fmt.Errorf(
			"invalid governance minDuration %q: %w",
			c.Governance.MinDuration,
			err,
		)
	}
	if duration < 0 {
		return governance.Settings{}, fmt.Errorf(
			"invalid governance minDuration %q: negative",
			c.Governance.MinDuration,
		)
	}
	minPower := new(uint256.Int)
	if c.Governance.MinProposerVotingPower != "" {
		minPower, err = uint256.FromDecimal(c.Governance.MinProposerVotingPower)
		if err != nil {
			return governance.Settings{}, fmt.Errorf(
				"invalid governance minProposerVotingPower %q: %w",
				c.Governance.MinProposerVotingPower,
				err,
			)
		}
	}
	settings := governance.Settings{
		MinVetoRatio:           c.Governance.MinVetoRatio,
		MinDuration:            uint64(duration / time.Second),
		MinProposerVotingPower: minPower,
	}
	if err := settings.Validate(); err != nil {
		return governance.Settings{}, err
	}
	return settings, nil
}

// ParsedVotingPowerSeed is a VotingPowerSeed with its power decoded
type ParsedVotingPowerSeed struct {
	Power   *uint256.Int
	Account string
	Block   uint64
}

// VotingPowerSeeds decodes the votingPower section. Seeds must be listed in
// non-decreasing block order.
func (c *Config) VotingPowerSeeds() ([]ParsedVotingPowerSeed, error) {
	ret := make([]ParsedVotingPowerSeed, 0, len(c.VotingPower))
	var lastBlock uint64
	for i, seed := range c.VotingPower {
		if seed.Account == "" {
			return nil, fmt.Errorf("votingPower[%d]: missing account", i)
		}
		power, err := uint256.FromDecimal(seed.Power)
		if err != nil {
			return nil, fmt.Errorf(
				"votingPower[%d]: invalid power %q: %w",
				i,
				seed.Power,
				err,
			)
		}
		if seed.Block < lastBlock {
			return nil, errors.New(
				"votingPower entries must be in block order",
			)
		}
		lastBlock = seed.Block
		ret = append(ret, ParsedVotingPowerSeed{
			Account: seed.Account,
			Block:   seed.Block,
			Power:   power,
		})
	}
	return ret, nil
}
