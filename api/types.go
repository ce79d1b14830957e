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

package api

// Large integers are encoded as decimal strings and byte fields as base64.

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is returned for any failed request.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	// FailedAction is the index of the action that aborted execution
	FailedAction *int `json:"failed_action,omitempty"`
}

type SettingsBody struct {
	MinProposerVotingPower string `json:"min_proposer_voting_power"`
	MinDuration            uint64 `json:"min_duration"`
	MinVetoRatio           uint32 `json:"min_veto_ratio"`
}

type ActionBody struct {
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	Data  []byte `json:"data,omitempty"`
}

type CreateProposalRequest struct {
	AllowFailureMap string       `json:"allow_failure_map,omitempty"`
	Metadata        []byte       `json:"metadata,omitempty"`
	Actions         []ActionBody `json:"actions"`
	StartDate       uint64       `json:"start_date"`
	EndDate         uint64       `json:"end_date"`
}

type CreateProposalResponse struct {
	ID uint64 `json:"id"`
}

type ProposalResponse struct {
	Creator            string       `json:"creator"`
	State              string       `json:"state"`
	MinVotingPower     string       `json:"min_voting_power"`
	MinVetoVotingPower string       `json:"min_veto_voting_power"`
	VetoTally          string       `json:"veto_tally"`
	AllowFailureMap    string       `json:"allow_failure_map"`
	Metadata           []byte       `json:"metadata"`
	Actions            []ActionBody `json:"actions"`
	ID                 uint64       `json:"id"`
	StartDate          uint64       `json:"start_date"`
	EndDate            uint64       `json:"end_date"`
	SnapshotBlock      uint64       `json:"snapshot_block"`
	CreatedAt          uint64       `json:"created_at"`
	ExecutedAt         *uint64      `json:"executed_at"`
	MinVetoRatio       uint32       `json:"min_veto_ratio"`
	Executed           bool         `json:"executed"`
	CanExecute         bool         `json:"can_execute"`
}

type VetoStatusResponse struct {
	Account    string `json:"account"`
	ProposalID uint64 `json:"proposal_id"`
	HasVetoed  bool   `json:"has_vetoed"`
	CanVeto    bool   `json:"can_veto"`
}

type ExecuteResponse struct {
	FailureMap string   `json:"failure_map"`
	Results    [][]byte `json:"results"`
	ProposalID uint64   `json:"proposal_id"`
}
