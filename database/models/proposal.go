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

import (
	"errors"

	"github.com/blinklabs-io/vetogov/database/types"
)

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal holds the scalar state of an optimistic proposal. Its metadata
// and actions live in the blob store as a ProposalPayload.
type Proposal struct {
	ID                 uint64        `gorm:"primaryKey;autoIncrement:false"`
	Creator            string        `gorm:"size:128;index;not null"`
	Executed           bool          `gorm:"index;not null"`
	StartDate          uint64        `gorm:"not null"`
	EndDate            uint64        `gorm:"index;not null"`
	SnapshotBlock      uint64        `gorm:"not null"`
	MinVetoRatio       uint32        `gorm:"not null"`
	MinVotingPower     types.Uint256 `gorm:"type:text;not null"`
	MinVetoVotingPower types.Uint256 `gorm:"type:text;not null"`
	VetoTally          types.Uint256 `gorm:"type:text;not null"`
	AllowFailureMap    types.Uint256 `gorm:"type:text;not null"`
	CreatedAt          uint64        `gorm:"not null"`
	ExecutedAt         *uint64
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// ProposalAction is a single opaque call made when a proposal executes.
// Value is the big-endian encoding of a 256-bit amount.
type ProposalAction struct {
	_     struct{} `cbor:",toarray"`
	To    string
	Value []byte
	Data  []byte
}

// ProposalPayload is the blob-stored part of a proposal
type ProposalPayload struct {
	_        struct{} `cbor:",toarray"`
	Metadata []byte
	Actions  []ProposalAction
}
