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

// GovernanceSettingsID is the primary key of the single settings row
const GovernanceSettingsID = 1

// GovernanceSettings is the persisted copy of the live governance settings
type GovernanceSettings struct {
	ID                     uint          `gorm:"primarykey"`
	MinVetoRatio           uint32        `gorm:"not null"`
	MinDuration            uint64        `gorm:"not null"`
	MinProposerVotingPower types.Uint256 `gorm:"type:text;not null"`
	UpdatedAt              uint64        `gorm:"not null"`
}

// TableName returns the table name
func (GovernanceSettings) TableName() string {
	return "governance_settings"
}
