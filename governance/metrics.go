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

package governance

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governanceMetrics struct {
	proposalsCreated  prometheus.Counter
	vetoesCast        prometheus.Counter
	vetoPower         prometheus.Counter
	proposalsExecuted prometheus.Counter
	executionFailures prometheus.Counter
	settingsUpdates   prometheus.Counter
	rejections        *prometheus.CounterVec
}

func (p *Plugin) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	p.metrics = &governanceMetrics{
		proposalsCreated: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_proposals_created_total",
			Help: "proposals created",
		}),
		vetoesCast: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_vetoes_cast_total",
			Help: "vetoes recorded",
		}),
		vetoPower: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_veto_power_total",
			Help: "voting power accumulated by vetoes, approximated as a float",
		}),
		proposalsExecuted: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_proposals_executed_total",
			Help: "proposals marked executed",
		}),
		executionFailures: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_execution_failures_total",
			Help: "executions where the action executor returned an error",
		}),
		settingsUpdates: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "vetogov_governance_settings_updates_total",
			Help: "accepted settings updates",
		}),
		rejections: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vetogov_governance_rejections_total",
				Help: "rejected governance operations by operation and reason",
			},
			[]string{"operation", "reason"},
		),
	}
}

func (m *governanceMetrics) recordVeto(power *uint256.Int) {
	m.vetoesCast.Inc()
	f, _ := new(big.Float).SetInt(power.ToBig()).Float64()
	m.vetoPower.Add(f)
}

// reject records a rejected operation and returns err unchanged
func (p *Plugin) reject(operation string, err error) error {
	if p.metrics != nil {
		p.metrics.rejections.WithLabelValues(operation, rejectionReason(err)).Inc()
	}
	p.logger.Debug(
		"governance operation rejected",
		"component", "governance",
		"operation", operation,
		"error", err,
	)
	return err
}

func rejectionReason(err error) string {
	for _, r := range []struct {
		target error
		reason string
	}{
		{ErrDateOutOfBounds, "date_out_of_bounds"},
		{ErrDateOverflow, "date_overflow"},
		{ErrMinDurationOutOfBounds, "min_duration_out_of_bounds"},
		{ErrRatioOutOfBounds, "ratio_out_of_bounds"},
		{ErrNoVotingPower, "no_voting_power"},
		{ErrTooManyActions, "too_many_actions"},
		{ErrProposalCreationForbidden, "creation_forbidden"},
		{ErrProposalVetoingForbidden, "vetoing_forbidden"},
		{ErrProposalExecutionForbidden, "execution_forbidden"},
		{ErrUnauthorized, "unauthorized"},
	} {
		if errors.Is(err, r.target) {
			return r.reason
		}
	}
	return "other"
}
