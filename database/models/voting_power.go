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

// VotingPowerCheckpoint captures an account's absolute voting power from a
// block onwards, until the account's next checkpoint.
type VotingPowerCheckpoint struct {
	ID      uint          `gorm:"primarykey"`
	Account string        `gorm:"uniqueIndex:idx_vp_account_block,priority:1;size:128;not null"`
	Block   uint64        `gorm:"uniqueIndex:idx_vp_account_block,priority:2;index;not null"`
	Power   types.Uint256 `gorm:"type:text;not null"`
}

// TableName returns the table name
func (VotingPowerCheckpoint) TableName() string {
	return "voting_power_checkpoint"
}

const VotingPowerHeadID = 1

// VotingPowerHead is the block currently accepting voting power writes.
// Snapshots are only read below it.
type VotingPowerHead struct {
	ID    uint   `gorm:"primarykey"`
	Block uint64 `gorm:"not null"`
}

func (VotingPowerHead) TableName() string {
	return "voting_power_head"
}
