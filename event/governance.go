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

package event

import "github.com/holiman/uint256"

const (
	ProposalCreatedEventType  EventType = "governance.proposal.created"
	VetoCastEventType         EventType = "governance.veto.cast"
	ProposalExecutedEventType EventType = "governance.proposal.executed"
	SettingsUpdatedEventType  EventType = "governance.settings.updated"
)

// ProposalAction is one action of a created proposal
type ProposalAction struct {
	Value *uint256.Int
	To    string
	Data  []byte
}

// ProposalCreatedEvent carries the complete proposal as stored, so a
// subscriber can rebuild it without querying governance
type ProposalCreatedEvent struct {
	MinVotingPower     *uint256.Int
	MinVetoVotingPower *uint256.Int
	AllowFailureMap    *uint256.Int
	Creator            string
	Metadata           []byte
	Actions            []ProposalAction
	ProposalID         uint64
	StartDate          uint64
	EndDate            uint64
	SnapshotBlock      uint64
	CreatedAt          uint64
	MinVetoRatio       uint32
}

type VetoCastEvent struct {
	VotingPower *uint256.Int
	VetoTally   *uint256.Int
	Voter       string
	ProposalID  uint64
}

type ProposalExecutedEvent struct {
	// Err is set when an action failed outside the allow-failure map
	Err        error
	Executor   string
	ProposalID uint64
	// FailureMap has bit i set when action i failed and was allowed to
	FailureMap *uint256.Int
}

type SettingsUpdatedEvent struct {
	MinProposerVotingPower *uint256.Int
	MinDuration            uint64
	MinVetoRatio           uint32
}
