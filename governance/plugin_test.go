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
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/vetogov/event"
	"github.com/blinklabs-io/vetogov/internal/test/testutil"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSettings(t *testing.T) {
	_, err := New(
		NewMemoryStore(),
		votingpower.NewHistory(),
		WithSettings(Settings{MinVetoRatio: 0, MinDuration: MinDurationLowerBound}),
	)
	require.ErrorIs(t, err, ErrRatioOutOfBounds)
}

func TestNewPrefersSavedSettings(t *testing.T) {
	store := NewMemoryStore()
	saved := testSettings(20, 7)
	require.NoError(t, store.SaveSettings(saved))
	p, err := New(
		store,
		votingpower.NewHistory(),
		WithSettings(testSettings(5, 0)),
	)
	require.NoError(t, err)
	assert.Equal(t, saved.MinVetoRatio, p.Settings().MinVetoRatio)
	assert.Equal(t, uint64(7), p.Settings().MinProposerVotingPower.Uint64())
}

func TestNewSavesInitialSettings(t *testing.T) {
	store := NewMemoryStore()
	_, err := New(store, votingpower.NewHistory())
	require.NoError(t, err)
	saved, ok, err := store.LoadSettings()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultSettings().MinVetoRatio, saved.MinVetoRatio)
}

func TestCreateProposalDefaultDates(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	id, err := env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, testStartTime, proposal.Parameters.StartDate)
	assert.Equal(t, testStartTime+5*day, proposal.Parameters.EndDate)
	assert.Equal(t, uint64(1), proposal.Parameters.SnapshotBlock)
	assert.False(t, proposal.Executed)
	assert.True(t, proposal.VetoTally.IsZero())
}

func TestCreateProposalSequentialIDs(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	for want := range uint64(3) {
		id, err := env.plugin.CreateProposal(
			t.Context(),
			"alice",
			CreateProposalParams{},
		)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	count, err := env.plugin.ProposalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestCreateProposalRoundTrip(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	actions := []Action{
		{To: "treasury", Value: uint256.NewInt(42), Data: []byte("withdraw")},
		{To: "registry", Value: new(uint256.Int), Data: []byte{0x01, 0x02}},
	}
	params := CreateProposalParams{
		Metadata:        []byte("ipfs://metadata"),
		Actions:         actions,
		AllowFailureMap: uint256.NewInt(2),
		StartDate:       testStartTime + 10,
		EndDate:         testStartTime + 10 + 6*day,
	}
	id, err := env.plugin.CreateProposal(t.Context(), "alice", params)
	require.NoError(t, err)

	// Mutating the inputs must not reach the stored proposal
	actions[0].Data[0] = 'X'
	params.Metadata[0] = 'X'

	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, "alice", proposal.Creator)
	assert.Equal(t, []byte("ipfs://metadata"), proposal.Metadata)
	require.Len(t, proposal.Actions, 2)
	assert.Equal(t, "treasury", proposal.Actions[0].To)
	assert.Equal(t, uint64(42), proposal.Actions[0].Value.Uint64())
	assert.Equal(t, []byte("withdraw"), proposal.Actions[0].Data)
	assert.Equal(t, []byte{0x01, 0x02}, proposal.Actions[1].Data)
	assert.Equal(t, uint64(2), proposal.AllowFailureMap.Uint64())
	assert.Equal(t, testStartTime+10, proposal.Parameters.StartDate)
	assert.Equal(t, testStartTime+10+6*day, proposal.Parameters.EndDate)
	assert.Equal(t, testStartTime, proposal.CreatedAt)
}

func TestCreateProposalDateBounds(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})

	_, err := env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{StartDate: testStartTime - 1},
	)
	var dateErr *DateOutOfBoundsError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, testStartTime, dateErr.Limit)
	assert.Equal(t, testStartTime-1, dateErr.Actual)

	_, err = env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{EndDate: testStartTime + 5*day - 1},
	)
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, testStartTime+5*day, dateErr.Limit)
	assert.Equal(t, testStartTime+5*day-1, dateErr.Actual)

	_, err = env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{EndDate: testStartTime + 5*day},
	)
	require.NoError(t, err)
}

func TestCreateProposalDateOverflow(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	_, err := env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{StartDate: math.MaxUint64 - day},
	)
	require.ErrorIs(t, err, ErrDateOverflow)
	count, err := env.plugin.ProposalCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateProposalNoVotingPower(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), nil)
	_, err := env.plugin.CreateProposal(t.Context(), "alice", CreateProposalParams{})
	require.ErrorIs(t, err, ErrNoVotingPower)
}

func TestCreateProposalAtGenesisBlock(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	env.clock.setBlock(0)
	_, err := env.plugin.CreateProposal(t.Context(), "alice", CreateProposalParams{})
	require.ErrorIs(t, err, ErrNoVotingPower)
}

func TestCreateProposalTooManyActions(t *testing.T) {
	env := newTestEnv(t, testSettings(5, 0), map[string]uint64{"alice": 100})
	_, err := env.plugin.CreateProposal(
		t.Context(),
		"alice",
		CreateProposalParams{Actions: make([]Action, MaxActions+1)},
	)
	require.ErrorIs(t, err, ErrTooManyActions)
}

func TestMinVetoVotingPowerRounding(t *testing.T) {
	testDefs := []struct {
		name  string
		ratio uint32
		want  uint64
	}{
		{name: "ceiled", ratio: 300_001, want: 4},
		{name: "exact", ratio: 300_000, want: 3},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			settings := testSettings(0, 0)
			settings.MinVetoRatio = testDef.ratio
			env := newTestEnv(t, settings, map[string]uint64{"alice": 10})
			id, err := env.plugin.CreateProposal(
				t.Context(),
				"alice",
				CreateProposalParams{},
			)
			require.NoError(t, err)
			proposal, err := env.plugin.GetProposal(id)
			require.NoError(t, err)
			assert.Equal(
				t,
				testDef.want,
				proposal.Parameters.MinVetoVotingPower.Uint64(),
			)
			live, err := env.plugin.MinVetoVotingPower(id)
			require.NoError(t, err)
			assert.Equal(t, testDef.want, live.Uint64())
		})
	}
}

func TestProposerEligibility(t *testing.T) {
	env := newTestEnv(
		t,
		testSettings(5, 123),
		map[string]uint64{"alice": 123, "bob": 122},
	)
	_, err := env.plugin.CreateProposal(t.Context(), "alice", CreateProposalParams{})
	require.NoError(t, err)
	_, err = env.plugin.CreateProposal(t.Context(), "bob", CreateProposalParams{})
	var forbidden *ProposalCreationForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "bob", forbidden.Sender)
}

func TestProposerEligibilityUsesSnapshot(t *testing.T) {
	env := newTestEnv(
		t,
		testSettings(5, 123),
		map[string]uint64{"alice": 123, "bob": 100},
	)
	// Power gained at the current block is not counted
	require.NoError(t, env.history.Move("alice", "bob", uint256.NewInt(50)))
	_, err := env.plugin.CreateProposal(t.Context(), "bob", CreateProposalParams{})
	require.ErrorIs(t, err, ErrProposalCreationForbidden)
	_, err = env.plugin.CreateProposal(t.Context(), "alice", CreateProposalParams{})
	require.NoError(t, err)
}

func TestVetoThresholdReached(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder1"))
	reached, err := env.plugin.IsMinVetoRatioReached(id)
	require.NoError(t, err)
	assert.False(t, reached)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder2"))
	reached, err = env.plugin.IsMinVetoRatioReached(id)
	require.NoError(t, err)
	assert.True(t, reached)

	state, err := env.plugin.State(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStateOpen, state)

	env.clock.advance(5 * day)
	canExecute, err := env.plugin.CanExecute(id)
	require.NoError(t, err)
	assert.False(t, canExecute)
	state, err = env.plugin.State(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStateDefeated, state)

	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	var forbidden *ProposalExecutionForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, id, forbidden.ProposalID)
}

func TestVetoThresholdNotReached(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder1"))

	canExecute, err := env.plugin.CanExecute(id)
	require.NoError(t, err)
	assert.False(t, canExecute, "open proposals are not executable")

	env.clock.advance(5 * day)
	canExecute, err = env.plugin.CanExecute(id)
	require.NoError(t, err)
	assert.True(t, canExecute)
	state, err := env.plugin.State(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStateExecutable, state)

	result, err := env.plugin.Execute(t.Context(), "anyone", id)
	require.NoError(t, err)
	assert.True(t, result.FailureMap.IsZero())
	state, err = env.plugin.State(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStateExecuted, state)

	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.True(t, proposal.Executed)
	assert.Equal(t, testStartTime+5*day, proposal.ExecutedAt)
}

func TestVetoTwiceForbidden(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder1"))
	err = env.plugin.Veto(t.Context(), id, "holder1")
	var forbidden *ProposalVetoingForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "holder1", forbidden.Account)
	assert.Equal(t, id, forbidden.ProposalID)

	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), proposal.VetoTally.Uint64())
	vetoed, err := env.plugin.HasVetoed(id, "holder1")
	require.NoError(t, err)
	assert.True(t, vetoed)
	vetoed, err = env.plugin.HasVetoed(id, "holder2")
	require.NoError(t, err)
	assert.False(t, vetoed)
}

func TestVetoWindow(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	id, err := env.plugin.CreateProposal(
		t.Context(),
		"holder0",
		CreateProposalParams{StartDate: testStartTime + 100},
	)
	require.NoError(t, err)

	state, err := env.plugin.State(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatePending, state)
	canVeto, err := env.plugin.CanVeto(id, "holder1")
	require.NoError(t, err)
	assert.False(t, canVeto)
	require.ErrorIs(
		t,
		env.plugin.Veto(t.Context(), id, "holder1"),
		ErrProposalVetoingForbidden,
	)

	env.clock.advance(100)
	canVeto, err = env.plugin.CanVeto(id, "holder1")
	require.NoError(t, err)
	assert.True(t, canVeto)

	env.clock.advance(5 * day)
	canVeto, err = env.plugin.CanVeto(id, "holder1")
	require.NoError(t, err)
	assert.False(t, canVeto)
}

func TestVetoRequiresSnapshotPower(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), map[string]uint64{"alice": 100})
	id, err := env.plugin.CreateProposal(t.Context(), "alice", CreateProposalParams{})
	require.NoError(t, err)
	// carol receives power after the snapshot block
	require.NoError(t, env.history.Move("alice", "carol", uint256.NewInt(40)))
	env.history.Advance(1)
	canVeto, err := env.plugin.CanVeto(id, "carol")
	require.NoError(t, err)
	assert.False(t, canVeto)
	require.ErrorIs(
		t,
		env.plugin.Veto(t.Context(), id, "carol"),
		ErrProposalVetoingForbidden,
	)
	// alice still vetoes with her full snapshot power
	require.NoError(t, env.plugin.Veto(t.Context(), id, "alice"))
	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), proposal.VetoTally.Uint64())
}

func TestUnknownProposal(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	_, err := env.plugin.GetProposal(9)
	require.ErrorIs(t, err, ErrProposalNotFound)
	_, err = env.plugin.State(9)
	require.ErrorIs(t, err, ErrProposalNotFound)
	_, err = env.plugin.HasVetoed(9, "holder1")
	require.ErrorIs(t, err, ErrProposalNotFound)
	canVeto, err := env.plugin.CanVeto(9, "holder1")
	require.NoError(t, err)
	assert.False(t, canVeto)
	canExecute, err := env.plugin.CanExecute(9)
	require.NoError(t, err)
	assert.False(t, canExecute)
	require.ErrorIs(
		t,
		env.plugin.Veto(t.Context(), 9, "holder1"),
		ErrProposalVetoingForbidden,
	)
	_, err = env.plugin.Execute(t.Context(), "holder1", 9)
	require.ErrorIs(t, err, ErrProposalExecutionForbidden)
}

func TestExecuteOnce(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.ErrorIs(t, err, ErrProposalExecutionForbidden)
	env.clock.advance(5 * day)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.NoError(t, err)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.ErrorIs(t, err, ErrProposalExecutionForbidden)
	// Vetoing an executed proposal is not possible either
	require.ErrorIs(
		t,
		env.plugin.Veto(t.Context(), id, "holder1"),
		ErrProposalVetoingForbidden,
	)
}

func TestExecuteRunsActions(t *testing.T) {
	dispatcher := NewDispatcher()
	var calls []string
	dispatcher.Register("treasury", func(_ context.Context, a Action) ([]byte, error) {
		calls = append(calls, string(a.Data))
		return []byte("ok"), nil
	})
	dispatcher.Register("broken", func(context.Context, Action) ([]byte, error) {
		return nil, errors.New("broken")
	})
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithExecutor(dispatcher),
	)
	id, err := env.plugin.CreateProposal(
		t.Context(),
		"holder0",
		CreateProposalParams{
			Actions: []Action{
				{To: "treasury", Data: []byte("first")},
				{To: "broken"},
				{To: "treasury", Data: []byte("third")},
			},
			AllowFailureMap: uint256.NewInt(0b010),
		},
	)
	require.NoError(t, err)
	env.clock.advance(5 * day)
	result, err := env.plugin.Execute(t.Context(), "holder0", id)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, calls)
	assert.Equal(t, uint64(0b010), result.FailureMap.Uint64())
	assert.Equal(t, []byte("ok"), result.Results[2])
	assert.Nil(t, result.Results[1])
}

func TestExecuteActionFailureKeepsExecuted(t *testing.T) {
	dispatcher := NewDispatcher()
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithExecutor(dispatcher),
	)
	id, err := env.plugin.CreateProposal(
		t.Context(),
		"holder0",
		CreateProposalParams{Actions: []Action{{To: "nowhere"}}},
	)
	require.NoError(t, err)
	env.clock.advance(5 * day)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	var actionErr *ActionFailedError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 0, actionErr.Index)
	require.ErrorIs(t, err, ErrUnknownTarget)

	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.True(t, proposal.Executed)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.ErrorIs(t, err, ErrProposalExecutionForbidden)
}

func TestExecuteReentrancy(t *testing.T) {
	dispatcher := NewDispatcher()
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithExecutor(dispatcher),
	)
	var reentrantErr error
	dispatcher.Register("reenter", func(ctx context.Context, _ Action) ([]byte, error) {
		_, reentrantErr = env.plugin.Execute(ctx, "holder0", 0)
		return nil, nil
	})
	id, err := env.plugin.CreateProposal(
		t.Context(),
		"holder0",
		CreateProposalParams{Actions: []Action{{To: "reenter"}}},
	)
	require.NoError(t, err)
	env.clock.advance(5 * day)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.NoError(t, err)
	require.ErrorIs(t, reentrantErr, ErrProposalExecutionForbidden)
}

func TestExecuteRequiresPermission(t *testing.T) {
	authorizer := NewStaticAuthorizer()
	authorizer.Grant("admin", ExecuteProposalPermission)
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithAuthorizer(authorizer),
	)
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	env.clock.advance(5 * day)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	var unauthorized *UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, ExecuteProposalPermission, unauthorized.Permission)
	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.False(t, proposal.Executed)
	_, err = env.plugin.Execute(t.Context(), "admin", id)
	require.NoError(t, err)
}

func TestUpdateSettings(t *testing.T) {
	authorizer := NewStaticAuthorizer()
	authorizer.Grant("admin", UpdateSettingsPermission)
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithAuthorizer(authorizer),
	)
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)

	err = env.plugin.UpdateSettings(t.Context(), "holder0", testSettings(50, 0))
	require.ErrorIs(t, err, ErrUnauthorized)

	invalid := testSettings(50, 0)
	invalid.MinDuration = MinDurationLowerBound - 1
	err = env.plugin.UpdateSettings(t.Context(), "admin", invalid)
	require.ErrorIs(t, err, ErrMinDurationOutOfBounds)
	assert.Equal(t, testSettings(15, 0).MinVetoRatio, env.plugin.Settings().MinVetoRatio)

	require.NoError(
		t,
		env.plugin.UpdateSettings(t.Context(), "admin", testSettings(50, 0)),
	)
	assert.Equal(t, testSettings(50, 0).MinVetoRatio, env.plugin.Settings().MinVetoRatio)

	// The existing proposal keeps its own ratio
	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, testSettings(15, 0).MinVetoRatio, proposal.Parameters.MinVetoRatio)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder1"))
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder2"))
	reached, err := env.plugin.IsMinVetoRatioReached(id)
	require.NoError(t, err)
	assert.True(t, reached)

	newID, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	threshold, err := env.plugin.MinVetoVotingPower(newID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), threshold.Uint64())
}

func TestConcurrentVetoes(t *testing.T) {
	env := newTestEnv(t, testSettings(100, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	var (
		wg        sync.WaitGroup
		successMu sync.Mutex
		successes int
	)
	for range 5 {
		for account := range tenHolders() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if env.plugin.Veto(context.Background(), id, account) == nil {
					successMu.Lock()
					successes++
					successMu.Unlock()
				}
			}()
		}
	}
	wg.Wait()
	assert.Equal(t, 10, successes)
	proposal, err := env.plugin.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), proposal.VetoTally.Uint64())
}

func TestVetoTallyMonotonic(t *testing.T) {
	env := newTestEnv(t, testSettings(100, 0), tenHolders())
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	last := new(uint256.Int)
	for _, account := range []string{"holder1", "holder1", "holder2", "nobody", "holder3"} {
		_ = env.plugin.Veto(t.Context(), id, account)
		proposal, err := env.plugin.GetProposal(id)
		require.NoError(t, err)
		assert.False(t, proposal.VetoTally.Lt(last))
		last = proposal.VetoTally
	}
	assert.Equal(t, uint64(30), last.Uint64())
}

func TestListProposals(t *testing.T) {
	env := newTestEnv(t, testSettings(15, 0), tenHolders())
	for range 5 {
		_, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
		require.NoError(t, err)
	}
	proposals, err := env.plugin.ListProposals(1, 2)
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	assert.Equal(t, uint64(1), proposals[0].ID)
	assert.Equal(t, uint64(2), proposals[1].ID)
	proposals, err = env.plugin.ListProposals(4, 10)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	proposals, err = env.plugin.ListProposals(0, 0)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestPluginEvents(t *testing.T) {
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, createdCh := eventBus.Subscribe(event.ProposalCreatedEventType)
	_, vetoCh := eventBus.Subscribe(event.VetoCastEventType)
	_, executedCh := eventBus.Subscribe(event.ProposalExecutedEventType)
	_, settingsCh := eventBus.Subscribe(event.SettingsUpdatedEventType)
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithEventBus(eventBus),
	)
	params := CreateProposalParams{
		Metadata:        []byte("ipfs://proposal"),
		Actions:         []Action{{To: "x", Value: uint256.NewInt(7), Data: []byte{0x01, 0x02}}},
		AllowFailureMap: uint256.NewInt(1),
	}
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", params)
	require.NoError(t, err)
	// Later changes to the inputs must not reach the published event
	params.Metadata[0] = 'X'
	params.Actions[0].Data[0] = 0xff
	params.Actions[0].Value.SetUint64(99)
	params.AllowFailureMap.SetUint64(0)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder1"))
	require.ErrorIs(
		t,
		env.plugin.Veto(t.Context(), id, "holder1"),
		ErrProposalVetoingForbidden,
	)
	env.clock.advance(5 * day)
	_, err = env.plugin.Execute(t.Context(), "holder0", id)
	require.NoError(t, err)
	require.NoError(t, env.plugin.UpdateSettings(t.Context(), "admin", testSettings(20, 0)))

	created := receiveEvent(t, createdCh).Data.(event.ProposalCreatedEvent)
	assert.Equal(t, id, created.ProposalID)
	assert.Equal(t, "holder0", created.Creator)
	assert.Equal(t, []byte("ipfs://proposal"), created.Metadata)
	require.Len(t, created.Actions, 1)
	assert.Equal(t, "x", created.Actions[0].To)
	assert.Equal(t, uint64(7), created.Actions[0].Value.Uint64())
	assert.Equal(t, []byte{0x01, 0x02}, created.Actions[0].Data)
	assert.Equal(t, uint64(1), created.AllowFailureMap.Uint64())
	assert.Equal(t, testStartTime, created.StartDate)
	assert.Equal(t, testStartTime+5*day, created.EndDate)
	assert.Equal(t, testStartTime, created.CreatedAt)
	assert.Equal(t, uint64(1), created.SnapshotBlock)
	assert.True(t, created.MinVotingPower.IsZero())
	assert.Equal(t, uint64(15), created.MinVetoVotingPower.Uint64())
	assert.Equal(t, testSettings(15, 0).MinVetoRatio, created.MinVetoRatio)
	vetoed := receiveEvent(t, vetoCh).Data.(event.VetoCastEvent)
	assert.Equal(t, "holder1", vetoed.Voter)
	assert.Equal(t, uint64(10), vetoed.VetoTally.Uint64())
	testutil.RequireNoReceive(t, vetoCh, 50*time.Millisecond, "rejected veto")
	executed := receiveEvent(t, executedCh).Data.(event.ProposalExecutedEvent)
	assert.NoError(t, executed.Err)
	assert.Equal(t, uint64(1), executed.FailureMap.Uint64())
	updated := receiveEvent(t, settingsCh).Data.(event.SettingsUpdatedEvent)
	assert.Equal(t, testSettings(20, 0).MinVetoRatio, updated.MinVetoRatio)
}

func receiveEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	return testutil.RequireReceive(t, ch, time.Second, "governance event")
}

func TestPluginMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(
		t,
		testSettings(15, 0),
		tenHolders(),
		WithPromRegistry(reg),
	)
	id, err := env.plugin.CreateProposal(t.Context(), "holder0", CreateProposalParams{})
	require.NoError(t, err)
	require.NoError(t, env.plugin.Veto(t.Context(), id, "holder2"))
	_ = env.plugin.Veto(t.Context(), 5, "holder1")
	assert.InDelta(t, 1, promtestutil.ToFloat64(env.plugin.metrics.proposalsCreated), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(env.plugin.metrics.vetoesCast), 0)
	assert.InDelta(t, 10, promtestutil.ToFloat64(env.plugin.metrics.vetoPower), 0)
	assert.InDelta(
		t,
		1,
		promtestutil.ToFloat64(
			env.plugin.metrics.rejections.WithLabelValues("veto", "vetoing_forbidden"),
		),
		0,
	)
}

func TestMinimumPowerEligibility(t *testing.T) {
	env := newTestEnv(
		t,
		testSettings(15, 0),
		map[string]uint64{"whale": 90, "minnow": 10},
		WithVetoEligibility(MinimumPowerEligibility{Min: uint256.NewInt(50)}),
	)
	id, err := env.plugin.CreateProposal(t.Context(), "whale", CreateProposalParams{})
	require.NoError(t, err)
	canVeto, err := env.plugin.CanVeto(id, "minnow")
	require.NoError(t, err)
	assert.False(t, canVeto)
	canVeto, err = env.plugin.CanVeto(id, "whale")
	require.NoError(t, err)
	assert.True(t, canVeto)
}
