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

package models

import "github.com/blinklabs-io/vetogov/database/types"

// Veto records a single account's veto on a proposal. The unique index
// enforces at most one veto per account per proposal.
type Veto struct {
	ID          uint          `gorm:"primarykey"`
	ProposalID  uint64        `gorm:"uniqueIndex:idx_veto_proposal_voter,priority:1;not null"`
	Voter       string        `gorm:"uniqueIndex:idx_veto_proposal_voter,priority:2;size:128;not null"`
	VotingPower types.Uint256 `gorm:"type:text;not null"`
	CastAt      uint64        `gorm:"not null"`
}

// TableName returns the table name
func (Veto) TableName() string {
	return "veto"
}
