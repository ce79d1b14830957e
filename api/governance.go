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

package api

import (
	"context"

	"github.com/blinklabs-io/vetogov/governance"
)

// Governance is the lifecycle surface the API serves. *governance.Plugin
// implements it.
type Governance interface {
	Settings() governance.Settings
	UpdateSettings(ctx context.Context, caller string, settings governance.Settings) error
	CreateProposal(
		ctx context.Context,
		sender string,
		params governance.CreateProposalParams,
	) (uint64, error)
	Veto(ctx context.Context, id uint64, account string) error
	Execute(
		ctx context.Context,
		caller string,
		id uint64,
	) (*governance.ExecutionResult, error)
	GetProposal(id uint64) (*governance.Proposal, error)
	ListProposals(offset uint64, limit int) ([]*governance.Proposal, error)
	ProposalCount() (uint64, error)
	State(id uint64) (governance.ProposalState, error)
	HasVetoed(id uint64, account string) (bool, error)
	CanVeto(id uint64, account string) (bool, error)
	CanExecute(id uint64) (bool, error)
}
