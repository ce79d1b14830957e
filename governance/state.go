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

// ProposalState is derived from the clock, the tally and the executed flag.
// Only the executed flag is stored.
type ProposalState int

const (
	ProposalStatePending ProposalState = iota
	ProposalStateOpen
	ProposalStateDefeated
	ProposalStateExecutable
	ProposalStateExecuted
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStatePending:
		return "pending"
	case ProposalStateOpen:
		return "open"
	case ProposalStateDefeated:
		return "defeated"
	case ProposalStateExecutable:
		return "executable"
	case ProposalStateExecuted:
		return "executed"
	default:
		return "unknown"
	}
}
