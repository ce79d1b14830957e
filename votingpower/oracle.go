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

// Package votingpower exposes point-in-time voting power. Governance reads
// power only as of a historical snapshot block so that transfers landing in
// the same block as a governance action cannot influence it.
package votingpower

import (
	"github.com/holiman/uint256"
)

// Oracle is a read-only view of voting power as of a snapshot block.
// Implementations must return the same answer for the same past block on
// every call.
type Oracle interface {
	TotalVotingPower(snapshot uint64) (*uint256.Int, error)
	VotingPowerOf(account string, snapshot uint64) (*uint256.Int, error)
}

// SnapshotBefore returns the snapshot block used for an action taken at the
// given block, which is the block immediately before it. The second return
// value is false at block 0, which has no prior snapshot.
func SnapshotBefore(block uint64) (uint64, bool) {
	if block == 0 {
		return 0, false
	}
	return block - 1, true
}
