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

package node

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/vetogov/api"
	"github.com/blinklabs-io/vetogov/governance"
	"github.com/blinklabs-io/vetogov/internal/config"
	"github.com/blinklabs-io/vetogov/internal/test/testutil"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeeds() []VotingPowerSeed {
	return []VotingPowerSeed{
		{Account: "alice", Block: 1, Power: uint256.NewInt(60)},
		{Account: "bob", Block: 1, Power: uint256.NewInt(40)},
	}
}

func startTestNode(t *testing.T, opts ...ConfigOptionFunc) *Node {
	t.Helper()
	baseOpts := []ConfigOptionFunc{
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithApiListenAddress("127.0.0.1:0"),
		WithMetricsListenAddress("127.0.0.1:0"),
		WithAdmins("admin"),
		WithGovernanceSettings(governance.Settings{
			MinVetoRatio:           500_000,
			MinDuration:            governance.MinDurationLowerBound,
			MinProposerVotingPower: uint256.NewInt(1),
		}),
	}
	n, err := New(NewConfig(append(baseOpts, opts...)...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Stop() })
	require.NoError(t, n.Start(t.Context()))
	return n
}

func doRequest(
	t *testing.T,
	n *Node,
	method string,
	path string,
	account string,
	body any,
) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(
		t.Context(),
		method,
		"http://"+n.ApiAddr().String()+path,
		&reqBody,
	)
	require.NoError(t, err)
	if account != "" {
		req.Header.Set(api.AccountHeader, account)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNodeLifecycle(t *testing.T) {
	n := startTestNode(t, WithVotingPowerSeeds(testSeeds()...))
	assert.Equal(t, uint64(2), n.Oracle().Head())

	resp := doRequest(
		t, n, http.MethodPost, "/api/v1/proposals", "alice",
		api.CreateProposalRequest{},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created api.CreateProposalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, uint64(0), created.ID)

	resp = doRequest(
		t, n, http.MethodPost, "/api/v1/proposals/0/veto", "bob", nil,
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doRequest(
		t, n, http.MethodPost, "/api/v1/proposals/0/veto", "bob", nil,
	)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, n, http.MethodGet, "/api/v1/proposals/0", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var proposal api.ProposalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposal))
	assert.Equal(t, "40", proposal.VetoTally)
	assert.Equal(t, "50", proposal.MinVetoVotingPower)
	assert.Equal(t, uint64(1), proposal.SnapshotBlock)

	// Only admins may update settings
	resp = doRequest(
		t, n, http.MethodPut, "/api/v1/settings", "alice",
		api.SettingsBody{
			MinVetoRatio:           100_000,
			MinDuration:            governance.MinDurationLowerBound,
			MinProposerVotingPower: "0",
		},
	)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	metricsResp, err := http.Get(
		"http://" + n.MetricsAddr().String() + "/metrics",
	)
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	metrics, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(
		t,
		string(metrics),
		"vetogov_governance_proposals_created_total 1",
	)
	assert.Contains(
		t,
		string(metrics),
		"vetogov_governance_vetoes_cast_total 1",
	)

	require.NoError(t, n.Stop())
	select {
	case <-n.Done():
	default:
		t.Fatal("done channel not closed after Stop")
	}
	// Repeated Stop is a no-op
	require.NoError(t, n.Stop())
}

func TestNodePersistence(t *testing.T) {
	dataDir := t.TempDir()
	n := startTestNode(
		t,
		WithDatabasePath(dataDir),
		WithVotingPowerSeeds(testSeeds()...),
	)
	_, err := n.Governance().CreateProposal(
		t.Context(),
		"alice",
		governance.CreateProposalParams{Metadata: []byte("ipfs://meta")},
	)
	require.NoError(t, err)
	newSettings := governance.Settings{
		MinVetoRatio:           250_000,
		MinDuration:            governance.MinDurationLowerBound,
		MinProposerVotingPower: uint256.NewInt(0),
	}
	require.NoError(
		t,
		n.Governance().UpdateSettings(t.Context(), "admin", newSettings),
	)
	require.NoError(t, n.Stop())

	// Restart without seeds: checkpoints, proposals and settings come back
	n = startTestNode(t, WithDatabasePath(dataDir))
	assert.Equal(t, uint64(2), n.Oracle().Head())
	count, err := n.Governance().ProposalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	proposal, err := n.Governance().GetProposal(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("ipfs://meta"), proposal.Metadata)
	assert.Equal(t, uint32(250_000), n.Governance().Settings().MinVetoRatio)
	require.NoError(t, n.Stop())
}

func TestNodeBlockInterval(t *testing.T) {
	n := startTestNode(
		t,
		WithVotingPowerSeeds(testSeeds()...),
		WithBlockInterval(10*time.Millisecond),
	)
	testutil.WaitForCondition(
		t,
		func() bool { return n.Oracle().Head() > 3 },
		5*time.Second,
		"head block did not advance",
	)
	require.NoError(t, n.Stop())
}

func TestNodeRestartKeepsSnapshots(t *testing.T) {
	dataDir := t.TempDir()
	n := startTestNode(
		t,
		WithDatabasePath(dataDir),
		WithVotingPowerSeeds(testSeeds()...),
		WithBlockInterval(5*time.Millisecond),
	)
	testutil.WaitForCondition(
		t,
		func() bool { return n.Oracle().Head() > 5 },
		5*time.Second,
		"head block did not advance",
	)
	id, err := n.Governance().CreateProposal(
		t.Context(),
		"alice",
		governance.CreateProposalParams{},
	)
	require.NoError(t, err)
	proposal, err := n.Governance().GetProposal(id)
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	headBeforeRestart := n.Oracle().Head()
	require.Greater(t, headBeforeRestart, proposal.Parameters.SnapshotBlock)

	// Same seeds, no block interval: the head must not fall back
	n = startTestNode(
		t,
		WithDatabasePath(dataDir),
		WithVotingPowerSeeds(testSeeds()...),
	)
	assert.Equal(t, headBeforeRestart, n.Oracle().Head())
	canVeto, err := n.Governance().CanVeto(id, "bob")
	require.NoError(t, err)
	assert.True(t, canVeto)
	require.NoError(t, n.Governance().Veto(t.Context(), id, "bob"))
	require.NoError(t, n.Stop())

	// Seeds that rewrite history below the head are refused
	conflicting, err := New(NewConfig(
		WithDatabasePath(dataDir),
		WithApiListenAddress("127.0.0.1:0"),
		WithVotingPowerSeeds(VotingPowerSeed{
			Account: "bob",
			Block:   1,
			Power:   uint256.NewInt(1000),
		}),
	))
	require.NoError(t, err)
	err = conflicting.Start(t.Context())
	require.ErrorIs(t, err, votingpower.ErrHistoricalWrite)
	require.NoError(t, conflicting.Stop())
}

func TestNodeStartFailure(t *testing.T) {
	n, err := New(NewConfig(
		WithGovernanceSettings(governance.Settings{
			MinVetoRatio:           0,
			MinDuration:            governance.MinDurationLowerBound,
			MinProposerVotingPower: uint256.NewInt(0),
		}),
	))
	require.NoError(t, err)
	err = n.Start(t.Context())
	require.ErrorIs(t, err, governance.ErrRatioOutOfBounds)
	require.NoError(t, n.Stop())
}

func TestNodeRun(t *testing.T) {
	n, err := New(NewConfig(
		WithApiListenAddress("127.0.0.1:0"),
	))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	testutil.WaitForCondition(
		t,
		func() bool { return n.ApiAddr() != nil },
		5*time.Second,
		"API listener did not start",
	)
	cancel()
	require.NoError(t, testutil.RequireReceive(t, errCh, 10*time.Second, "node stop"))
}

func TestConfigOptions(t *testing.T) {
	cfg := &config.Config{
		BindAddr:        "127.0.0.1",
		ApiPort:         9000,
		MetricsPort:     9001,
		ShutdownTimeout: "5s",
		BlockInterval:   "20s",
		Admins:          []string{"admin"},
		Governance: config.GovernanceConfig{
			MinVetoRatio:           100_000,
			MinDuration:            "96h",
			MinProposerVotingPower: "10",
		},
		VotingPower: []config.VotingPowerSeed{
			{Account: "alice", Block: 3, Power: "7"},
		},
	}
	opts, err := ConfigOptions(cfg)
	require.NoError(t, err)
	nodeCfg := NewConfig(opts...)
	assert.Equal(t, "127.0.0.1:9000", nodeCfg.apiListenAddr)
	assert.Equal(t, "127.0.0.1:9001", nodeCfg.metricsAddr)
	assert.Equal(t, 5*time.Second, nodeCfg.shutdownTimeout)
	assert.Equal(t, 20*time.Second, nodeCfg.blockInterval)
	assert.Equal(t, []string{"admin"}, nodeCfg.admins)
	require.NotNil(t, nodeCfg.settings)
	assert.Equal(t, uint32(100_000), nodeCfg.settings.MinVetoRatio)
	require.Len(t, nodeCfg.votingPower, 1)
	assert.Equal(t, uint64(7), nodeCfg.votingPower[0].Power.Uint64())
	assert.False(t, nodeCfg.tracing)

	cfg.Governance.MinVetoRatio = 0
	_, err = ConfigOptions(cfg)
	require.ErrorIs(t, err, governance.ErrRatioOutOfBounds)
}
