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
	"github.com/blinklabs-io/vetogov/ratio"
	"github.com/holiman/uint256"
)

const (
	day = 86400

	// MinDurationLowerBound is the shortest allowed veto window in seconds
	MinDurationLowerBound uint64 = 4 * day
	// MinDurationUpperBound is the longest allowed veto window in seconds
	MinDurationUpperBound uint64 = 365 * day
)

// Settings configures new proposals. Existing proposals keep the values
// copied into their parameters at creation.
type Settings struct {
	// MinProposerVotingPower of zero lets anyone create proposals
	MinProposerVotingPower *uint256.Int
	// MinDuration is the minimum veto window in seconds
	MinDuration uint64
	// MinVetoRatio is the veto share of total voting power, scaled by
	// ratio.RatioBase, needed to block execution
	MinVetoRatio uint32
}

// DefaultSettings returns a 10% veto ratio, a 4 day window and no proposer
// restriction
func DefaultSettings() Settings {
	return Settings{
		MinVetoRatio:           ratio.RatioBase / 10,
		MinDuration:            MinDurationLowerBound,
		MinProposerVotingPower: new(uint256.Int),
	}
}

// Validate checks the veto ratio is in (0, RatioBase] and the duration is
// within [MinDurationLowerBound, MinDurationUpperBound]
func (s Settings) Validate() error {
	if s.MinVetoRatio == 0 {
		return &RatioOutOfBoundsError{Limit: 1, Actual: s.MinVetoRatio}
	}
	if s.MinVetoRatio > ratio.RatioBase {
		return &RatioOutOfBoundsError{
			Limit:  ratio.RatioBase,
			Actual: s.MinVetoRatio,
		}
	}
	if s.MinDuration < MinDurationLowerBound {
		return &MinDurationOutOfBoundsError{
			Limit:  MinDurationLowerBound,
			Actual: s.MinDuration,
		}
	}
	if s.MinDuration > MinDurationUpperBound {
		return &MinDurationOutOfBoundsError{
			Limit:  MinDurationUpperBound,
			Actual: s.MinDuration,
		}
	}
	return nil
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	ret := s
	ret.MinProposerVotingPower = new(uint256.Int)
	if s.MinProposerVotingPower != nil {
		ret.MinProposerVotingPower.Set(s.MinProposerVotingPower)
	}
	return ret
}
