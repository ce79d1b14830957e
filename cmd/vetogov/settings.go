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

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/blinklabs-io/vetogov/internal/config"
	"github.com/blinklabs-io/vetogov/ratio"
	"github.com/spf13/cobra"
)

func settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Governance settings utilities",
	}
	cmd.AddCommand(settingsCheckCommand())
	return cmd
}

func settingsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "check",
		Short:        "Validate the configured governance settings",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			return settingsCheck(cmd.OutOrStdout(), cfg)
		},
	}
}

func settingsCheck(w io.Writer, cfg *config.Config) error {
	settings, err := cfg.GovernanceSettings()
	if err != nil {
		return err
	}
	if _, err := cfg.VotingPowerSeeds(); err != nil {
		return err
	}
	fmt.Fprintf(
		w,
		"minVetoRatio: %d/%d\nminDuration: %ds\nminProposerVotingPower: %s\nvotingPowerSeeds: %d\n",
		settings.MinVetoRatio,
		ratio.RatioBase,
		settings.MinDuration,
		settings.MinProposerVotingPower.Dec(),
		len(cfg.VotingPower),
	)
	return nil
}
