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

import "time"

// Clock supplies the current time in unix seconds and the current block.
// Voting power is read at the block before the current one.
type Clock interface {
	Now() uint64
	BlockNumber() uint64
}

// BlockSource reports the block currently accepting writes.
// votingpower.History and votingpower.DatabaseOracle both satisfy it.
type BlockSource interface {
	Head() uint64
}

// SystemClock uses wall clock time and a BlockSource for the block number
type SystemClock struct {
	Blocks BlockSource
}

func (c SystemClock) Now() uint64 {
	return uint64(time.Now().Unix()) //nolint:gosec
}

func (c SystemClock) BlockNumber() uint64 {
	if c.Blocks == nil {
		return 0
	}
	return c.Blocks.Head()
}
