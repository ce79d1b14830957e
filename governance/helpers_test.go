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
	"sync"
	"testing"

	"github.com/blinklabs-io/vetogov/ratio"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const testStartTime uint64 = 1_700_000_000

type testClock struct {
	mu    sync.Mutex
	now   uint64
	block uint64
}

func (c *testClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) BlockNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

func (c *testClock) advance(seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

func (c *testClock) setBlock(block uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = block
}

type testEnv struct {
	history *votingpower.History
	clock   *testClock
	plugin  *Plugin
}

// newTestEnv mints the given holdings at block 1 and moves the head to
// block 2 so that new proposals snapshot block 1
func newTestEnv(
	t *testing.T,
	settings Settings,
	holdings map[string]uint64,
	opts ...PluginOptionFunc,
) *testEnv {
	t.Helper()
	history := votingpower.NewHistory()
	for account, power := range holdings {
		require.NoError(t, history.Mint(account, uint256.NewInt(power)))
	}
	history.Advance(1)
	clock := &testClock{now: testStartTime, block: history.Head()}
	opts = append(
		[]PluginOptionFunc{WithClock(clock), WithSettings(settings)},
		opts...,
	)
	plugin, err := New(NewMemoryStore(), history, opts...)
	require.NoError(t, err)
	return &testEnv{
		history: history,
		clock:   clock,
		plugin:  plugin,
	}
}

func testSettings(pct uint32, minProposer uint64) Settings {
	minVetoRatio, err := ratio.FromPercent(pct)
	if err != nil {
		panic(err)
	}
	return Settings{
		MinVetoRatio:           minVetoRatio,
		MinDuration:            5 * day,
		MinProposerVotingPower: uint256.NewInt(minProposer),
	}
}

// tenHolders returns ten accounts holding 10 voting power each
func tenHolders() map[string]uint64 {
	ret := make(map[string]uint64)
	for _, name := range []string{
		"holder0", "holder1", "holder2", "holder3", "holder4",
		"holder5", "holder6", "holder7", "holder8", "holder9",
	} {
		ret[name] = 10
	}
	return ret
}
