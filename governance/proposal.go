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
	"bytes"

	"github.com/holiman/uint256"
)

// MaxActions is the most actions a proposal may carry, one per bit of the
// allow-failure map
const MaxActions = 256

// Action is an operation run when a proposal executes. Its fields are opaque
// to governance and interpreted by the ActionExecutor.
type Action struct {
	Value *uint256.Int
	To    string
	Data  []byte
}

// Parameters are fixed when a proposal is created
type Parameters struct {
	// MinVotingPower is the proposer threshold in force at creation
	MinVotingPower *uint256.Int
	// MinVetoVotingPower is the veto threshold computed at creation
	MinVetoVotingPower *uint256.Int
	StartDate          uint64
	EndDate            uint64
	SnapshotBlock      uint64
	MinVetoRatio       uint32
}

type Proposal struct {
	Parameters      Parameters
	VetoTally       *uint256.Int
	AllowFailureMap *uint256.Int
	Creator         string
	Metadata        []byte
	Actions         []Action
	ID              uint64
	CreatedAt       uint64
	ExecutedAt      uint64
	Executed        bool
}

// Clone returns a deep copy so callers never alias stored state
func (p *Proposal) Clone() *Proposal {
	ret := *p
	ret.Parameters.MinVotingPower = cloneInt(p.Parameters.MinVotingPower)
	ret.Parameters.MinVetoVotingPower = cloneInt(p.Parameters.MinVetoVotingPower)
	ret.VetoTally = cloneInt(p.VetoTally)
	ret.AllowFailureMap = cloneInt(p.AllowFailureMap)
	ret.Metadata = bytes.Clone(p.Metadata)
	if p.Actions != nil {
		ret.Actions = make([]Action, len(p.Actions))
		for i, action := range p.Actions {
			ret.Actions[i] = Action{
				To:    action.To,
				Value: cloneInt(action.Value),
				Data:  bytes.Clone(action.Data),
			}
		}
	}
	return &ret
}

// isOpen reports whether vetoes are accepted at now
func (p *Proposal) isOpen(now uint64) bool {
	return p.Parameters.StartDate <= now &&
		now < p.Parameters.EndDate &&
		!p.Executed
}

func (p *Proposal) isEnded(now uint64) bool {
	return now >= p.Parameters.EndDate
}

// cloneInt copies v, treating nil as zero
func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
