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
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
)

// VetoEligibility decides whether an account may veto a proposal and with
// how much power. It is only consulted for open proposals the account has
// not vetoed yet.
type VetoEligibility interface {
	Eligible(
		oracle votingpower.Oracle,
		proposal *Proposal,
		account string,
	) (bool, *uint256.Int, error)
}

// SnapshotPowerEligibility admits any account with voting power at the
// proposal's snapshot block
type SnapshotPowerEligibility struct{}

func (SnapshotPowerEligibility) Eligible(
	oracle votingpower.Oracle,
	proposal *Proposal,
	account string,
) (bool, *uint256.Int, error) {
	power, err := oracle.VotingPowerOf(account, proposal.Parameters.SnapshotBlock)
	if err != nil {
		return false, nil, err
	}
	return !power.IsZero(), power, nil
}

// MinimumPowerEligibility admits accounts holding at least Min voting power
// at the snapshot block
type MinimumPowerEligibility struct {
	Min *uint256.Int
}

func (m MinimumPowerEligibility) Eligible(
	oracle votingpower.Oracle,
	proposal *Proposal,
	account string,
) (bool, *uint256.Int, error) {
	ok, power, err := SnapshotPowerEligibility{}.Eligible(oracle, proposal, account)
	if err != nil || !ok {
		return false, power, err
	}
	if m.Min != nil && power.Lt(m.Min) {
		return false, power, nil
	}
	return true, power, nil
}
