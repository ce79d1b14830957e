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
	"testing"

	"github.com/blinklabs-io/vetogov/database"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseStoreLifecycle(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	oracle, err := votingpower.NewDatabaseOracle(db)
	require.NoError(t, err)
	for account, power := range tenHolders() {
		require.NoError(t, oracle.Set(account, uint256.NewInt(power)))
	}
	_, err = oracle.Advance(1)
	require.NoError(t, err)
	clock := &testClock{now: testStartTime, block: oracle.Head()}
	store := NewDatabaseStore(db)
	plugin, err := New(
		store,
		oracle,
		WithClock(clock),
		WithSettings(testSettings(15, 0)),
	)
	require.NoError(t, err)

	id, err := plugin.CreateProposal(
		t.Context(),
		"holder0",
		CreateProposalParams{
			Metadata:        []byte("meta"),
			Actions:         []Action{{To: "target", Value: uint256.NewInt(9), Data: []byte("call")}},
			AllowFailureMap: uint256.NewInt(1),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	require.NoError(t, plugin.Veto(t.Context(), id, "holder1"))
	require.ErrorIs(
		t,
		plugin.Veto(t.Context(), id, "holder1"),
		ErrProposalVetoingForbidden,
	)

	proposal, err := plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("meta"), proposal.Metadata)
	require.Len(t, proposal.Actions, 1)
	assert.Equal(t, uint64(9), proposal.Actions[0].Value.Uint64())
	assert.Equal(t, uint64(10), proposal.VetoTally.Uint64())
	assert.Equal(t, uint64(15), proposal.Parameters.MinVetoVotingPower.Uint64())

	clock.advance(5 * day)
	_, err = plugin.Execute(t.Context(), "holder0", id)
	require.NoError(t, err)

	// A new plugin over the same database sees the stored state
	reopened, err := New(store, oracle, WithClock(clock), WithSettings(testSettings(50, 0)))
	require.NoError(t, err)
	assert.Equal(t, testSettings(15, 0).MinVetoRatio, reopened.Settings().MinVetoRatio)
	proposal, err = reopened.GetProposal(id)
	require.NoError(t, err)
	assert.True(t, proposal.Executed)
	assert.Equal(t, testStartTime+5*day, proposal.ExecutedAt)
	count, err := reopened.ProposalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	vetoed, err := reopened.HasVetoed(id, "holder1")
	require.NoError(t, err)
	assert.True(t, vetoed)
}

func TestDatabaseStoreNotFound(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	store := NewDatabaseStore(db)
	_, err = store.Get(3)
	require.ErrorIs(t, err, ErrProposalNotFound)
	_, err = store.HasVetoed(3, "alice")
	require.ErrorIs(t, err, ErrProposalNotFound)
	require.ErrorIs(t, store.MarkExecuted(3, 1), ErrProposalNotFound)
	require.ErrorIs(
		t,
		store.RecordVeto(3, "alice", uint256.NewInt(1), 1),
		ErrProposalNotFound,
	)
	_, ok, err := store.LoadSettings()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreMarkExecuted(t *testing.T) {
	store := NewMemoryStore()
	id, err := store.Insert(&Proposal{})
	require.NoError(t, err)
	require.NoError(t, store.MarkExecuted(id, 10))
	require.ErrorIs(t, store.MarkExecuted(id, 11), ErrProposalAlreadyExecuted)
	require.ErrorIs(t, store.MarkExecuted(id+1, 11), ErrProposalNotFound)
}
