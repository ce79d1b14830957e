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

// Package governance implements optimistic governance: proposals execute
// once their veto window closes unless enough voting power vetoed them.
package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/blinklabs-io/vetogov/event"
	"github.com/blinklabs-io/vetogov/ratio"
	"github.com/blinklabs-io/vetogov/votingpower"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/vetogov/governance"

// CreateProposalParams are the caller-supplied inputs for a new proposal.
// Zero dates select the defaults: now for the start and the earliest
// allowed end.
type CreateProposalParams struct {
	AllowFailureMap *uint256.Int
	Metadata        []byte
	Actions         []Action
	StartDate       uint64
	EndDate         uint64
}

// Plugin runs the proposal lifecycle. Mutations are serialized by a single
// lock. Reads share it.
type Plugin struct {
	mu           sync.RWMutex
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *governanceMetrics
	tracer       trace.Tracer
	eventBus     *event.EventBus
	store        Store
	oracle       votingpower.Oracle
	clock        Clock
	authorizer   Authorizer
	executor     ActionExecutor
	eligibility  VetoEligibility
	settings     Settings
}

// New creates a Plugin. Settings saved in the store take precedence over
// WithSettings, which takes precedence over DefaultSettings. The chosen
// settings are validated and saved.
func New(
	store Store,
	oracle votingpower.Oracle,
	opts ...PluginOptionFunc,
) (*Plugin, error) {
	if store == nil {
		return nil, errors.New("governance: store is required")
	}
	if oracle == nil {
		return nil, errors.New("governance: voting power oracle is required")
	}
	p := &Plugin{
		store:    store,
		oracle:   oracle,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if p.promRegistry != nil {
		p.initMetrics(p.promRegistry)
	}
	p.tracer = otel.Tracer(tracerName)
	if p.clock == nil {
		blocks, _ := oracle.(BlockSource)
		p.clock = SystemClock{Blocks: blocks}
	}
	if p.authorizer == nil {
		p.authorizer = AllowAll{}
	}
	if p.executor == nil {
		p.executor = NewDispatcher()
	}
	if p.eligibility == nil {
		p.eligibility = SnapshotPowerEligibility{}
	}
	saved, ok, err := store.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if ok {
		p.settings = saved
	}
	if err := p.settings.Validate(); err != nil {
		return nil, err
	}
	if !ok {
		if err := store.SaveSettings(p.settings); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
	}
	return p, nil
}

// Settings returns a copy of the live settings
func (p *Plugin) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

// UpdateSettings validates and replaces the live settings. Existing
// proposals are unaffected.
func (p *Plugin) UpdateSettings(
	ctx context.Context,
	caller string,
	settings Settings,
) (err error) {
	_, span := p.tracer.Start(ctx, "governance.UpdateSettings")
	defer func() { endSpan(span, err) }()
	if !p.authorizer.IsGranted(caller, UpdateSettingsPermission) {
		return p.reject("update_settings", &UnauthorizedError{
			Account:    caller,
			Permission: UpdateSettingsPermission,
		})
	}
	settings = settings.Clone()
	if err := settings.Validate(); err != nil {
		return p.reject("update_settings", err)
	}
	p.mu.Lock()
	if err := p.store.SaveSettings(settings); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	p.settings = settings
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.settingsUpdates.Inc()
	}
	p.logger.Info(
		"governance settings updated",
		"component", "governance",
		"caller", caller,
		"min_veto_ratio", settings.MinVetoRatio,
		"min_duration", settings.MinDuration,
		"min_proposer_voting_power", settings.MinProposerVotingPower.Dec(),
	)
	p.publish(event.SettingsUpdatedEventType, event.SettingsUpdatedEvent{
		MinVetoRatio:           settings.MinVetoRatio,
		MinDuration:            settings.MinDuration,
		MinProposerVotingPower: settings.MinProposerVotingPower.Clone(),
	})
	return nil
}

// CreateProposal validates dates and proposer eligibility against the
// voting power snapshot before the current block, then stores a new open
// proposal and returns its ID
func (p *Plugin) CreateProposal(
	ctx context.Context,
	sender string,
	params CreateProposalParams,
) (id uint64, err error) {
	_, span := p.tracer.Start(ctx, "governance.CreateProposal")
	defer func() { endSpan(span, err) }()
	if len(params.Actions) > MaxActions {
		return 0, p.reject(
			"create",
			fmt.Errorf("%w: %d", ErrTooManyActions, len(params.Actions)),
		)
	}
	p.mu.Lock()
	proposal, err := p.newProposal(sender, params)
	if err != nil {
		p.mu.Unlock()
		return 0, p.reject("create", err)
	}
	id, err = p.store.Insert(proposal)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	proposal.ID = id
	span.SetAttributes(attribute.Int64("proposal.id", int64(id))) //nolint:gosec
	if p.metrics != nil {
		p.metrics.proposalsCreated.Inc()
	}
	p.logger.Info(
		"proposal created",
		"component", "governance",
		"proposal_id", id,
		"creator", sender,
		"start_date", proposal.Parameters.StartDate,
		"end_date", proposal.Parameters.EndDate,
		"snapshot_block", proposal.Parameters.SnapshotBlock,
		"min_veto_voting_power", proposal.Parameters.MinVetoVotingPower.Dec(),
	)
	p.publish(event.ProposalCreatedEventType, proposalCreatedEvent(proposal))
	return id, nil
}

// proposalCreatedEvent copies the proposal so subscribers never share its
// integers or byte slices
func proposalCreatedEvent(proposal *Proposal) event.ProposalCreatedEvent {
	proposal = proposal.Clone()
	actions := make([]event.ProposalAction, 0, len(proposal.Actions))
	for _, action := range proposal.Actions {
		actions = append(actions, event.ProposalAction{
			To:    action.To,
			Value: action.Value,
			Data:  action.Data,
		})
	}
	return event.ProposalCreatedEvent{
		ProposalID:         proposal.ID,
		Creator:            proposal.Creator,
		Metadata:           proposal.Metadata,
		Actions:            actions,
		AllowFailureMap:    proposal.AllowFailureMap,
		StartDate:          proposal.Parameters.StartDate,
		EndDate:            proposal.Parameters.EndDate,
		SnapshotBlock:      proposal.Parameters.SnapshotBlock,
		CreatedAt:          proposal.CreatedAt,
		MinVotingPower:     proposal.Parameters.MinVotingPower,
		MinVetoVotingPower: proposal.Parameters.MinVetoVotingPower,
		MinVetoRatio:       proposal.Parameters.MinVetoRatio,
	}
}

// newProposal builds the proposal record. Callers hold p.mu.
func (p *Plugin) newProposal(
	sender string,
	params CreateProposalParams,
) (*Proposal, error) {
	now := p.clock.Now()
	startDate := params.StartDate
	if startDate == 0 {
		startDate = now
	} else if startDate < now {
		return nil, &DateOutOfBoundsError{Limit: now, Actual: startDate}
	}
	earliestEndDate, carry := bits.Add64(startDate, p.settings.MinDuration, 0)
	if carry != 0 {
		return nil, fmt.Errorf(
			"%w: start %d plus duration %d",
			ErrDateOverflow,
			startDate,
			p.settings.MinDuration,
		)
	}
	endDate := params.EndDate
	if endDate == 0 {
		endDate = earliestEndDate
	} else if endDate < earliestEndDate {
		return nil, &DateOutOfBoundsError{
			Limit:  earliestEndDate,
			Actual: endDate,
		}
	}
	snapshot, ok := votingpower.SnapshotBefore(p.clock.BlockNumber())
	if !ok {
		return nil, ErrNoVotingPower
	}
	minProposerPower := cloneInt(p.settings.MinProposerVotingPower)
	if !minProposerPower.IsZero() {
		power, err := p.oracle.VotingPowerOf(sender, snapshot)
		if err != nil {
			return nil, fmt.Errorf("voting power of %s: %w", sender, err)
		}
		if power.Lt(minProposerPower) {
			return nil, &ProposalCreationForbiddenError{Sender: sender}
		}
	}
	total, err := p.oracle.TotalVotingPower(snapshot)
	if err != nil {
		return nil, fmt.Errorf("total voting power: %w", err)
	}
	if total.IsZero() {
		return nil, ErrNoVotingPower
	}
	minVetoPower, err := ratio.ApplyRatioCeiled(total, p.settings.MinVetoRatio)
	if err != nil {
		return nil, err
	}
	proposal := &Proposal{
		Creator: sender,
		Parameters: Parameters{
			StartDate:          startDate,
			EndDate:            endDate,
			SnapshotBlock:      snapshot,
			MinVetoRatio:       p.settings.MinVetoRatio,
			MinVotingPower:     minProposerPower,
			MinVetoVotingPower: minVetoPower,
		},
		VetoTally:       new(uint256.Int),
		AllowFailureMap: cloneInt(params.AllowFailureMap),
		Metadata:        params.Metadata,
		Actions:         params.Actions,
		CreatedAt:       now,
	}
	return proposal.Clone(), nil
}

// Veto records account's veto with its snapshot voting power
func (p *Plugin) Veto(
	ctx context.Context,
	id uint64,
	account string,
) (err error) {
	_, span := p.tracer.Start(
		ctx,
		"governance.Veto",
		trace.WithAttributes(attribute.Int64("proposal.id", int64(id))), //nolint:gosec
	)
	defer func() { endSpan(span, err) }()
	forbidden := &ProposalVetoingForbiddenError{ProposalID: id, Account: account}
	p.mu.Lock()
	proposal, err := p.store.Get(id)
	if err != nil {
		p.mu.Unlock()
		if errors.Is(err, ErrProposalNotFound) {
			return p.reject("veto", forbidden)
		}
		return err
	}
	now := p.clock.Now()
	ok, power, err := p.canVeto(proposal, account, now)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if !ok {
		p.mu.Unlock()
		return p.reject("veto", forbidden)
	}
	power = cloneInt(power)
	if err := p.store.RecordVeto(id, account, power, now); err != nil {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()
	tally := new(uint256.Int).Add(cloneInt(proposal.VetoTally), power)
	if p.metrics != nil {
		p.metrics.recordVeto(power)
	}
	p.logger.Info(
		"veto cast",
		"component", "governance",
		"proposal_id", id,
		"voter", account,
		"voting_power", power.Dec(),
		"veto_tally", tally.Dec(),
	)
	p.publish(event.VetoCastEventType, event.VetoCastEvent{
		ProposalID:  id,
		Voter:       account,
		VotingPower: power,
		VetoTally:   tally,
	})
	return nil
}

// Execute marks an ended, unvetoed proposal executed and then runs its
// actions. The executed flag is stored before the executor runs and stays
// set if the executor fails.
func (p *Plugin) Execute(
	ctx context.Context,
	caller string,
	id uint64,
) (result *ExecutionResult, err error) {
	ctx, span := p.tracer.Start(
		ctx,
		"governance.Execute",
		trace.WithAttributes(attribute.Int64("proposal.id", int64(id))), //nolint:gosec
	)
	defer func() { endSpan(span, err) }()
	if !p.authorizer.IsGranted(caller, ExecuteProposalPermission) {
		return nil, p.reject("execute", &UnauthorizedError{
			Account:    caller,
			Permission: ExecuteProposalPermission,
		})
	}
	forbidden := &ProposalExecutionForbiddenError{ProposalID: id}
	p.mu.Lock()
	proposal, err := p.store.Get(id)
	if err != nil {
		p.mu.Unlock()
		if errors.Is(err, ErrProposalNotFound) {
			return nil, p.reject("execute", forbidden)
		}
		return nil, err
	}
	now := p.clock.Now()
	ok, err := p.canExecute(proposal, now)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if !ok {
		p.mu.Unlock()
		return nil, p.reject("execute", forbidden)
	}
	if err := p.store.MarkExecuted(id, now); err != nil {
		p.mu.Unlock()
		if errors.Is(err, ErrProposalAlreadyExecuted) {
			return nil, p.reject("execute", forbidden)
		}
		return nil, err
	}
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.proposalsExecuted.Inc()
	}
	result, execErr := p.executor.Execute(
		ctx,
		id,
		proposal.Actions,
		proposal.AllowFailureMap,
	)
	executedEvent := event.ProposalExecutedEvent{
		ProposalID: id,
		Executor:   caller,
		Err:        execErr,
	}
	if execErr != nil {
		if p.metrics != nil {
			p.metrics.executionFailures.Inc()
		}
		p.logger.Error(
			"proposal actions failed",
			"component", "governance",
			"proposal_id", id,
			"error", execErr,
		)
	} else {
		if result == nil {
			result = &ExecutionResult{}
		}
		if result.FailureMap == nil {
			result.FailureMap = new(uint256.Int)
		}
		executedEvent.FailureMap = result.FailureMap.Clone()
		p.logger.Info(
			"proposal executed",
			"component", "governance",
			"proposal_id", id,
			"executor", caller,
			"failure_map", result.FailureMap.Hex(),
		)
	}
	p.publish(event.ProposalExecutedEventType, executedEvent)
	if execErr != nil {
		return nil, fmt.Errorf("execute proposal %d: %w", id, execErr)
	}
	return result, nil
}

// GetProposal returns a copy of a proposal
func (p *Plugin) GetProposal(id uint64) (*Proposal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Get(id)
}

// ListProposals returns up to limit proposals in ID order from offset
func (p *Plugin) ListProposals(offset uint64, limit int) ([]*Proposal, error) {
	if limit <= 0 {
		return nil, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.List(offset, limit)
}

func (p *Plugin) ProposalCount() (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.Count()
}

func (p *Plugin) HasVetoed(id uint64, account string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.HasVetoed(id, account)
}

// CanVeto reports whether account may veto now. Unknown proposals report
// false.
func (p *Plugin) CanVeto(id uint64, account string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proposal, err := p.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrProposalNotFound) {
			return false, nil
		}
		return false, err
	}
	ok, _, err := p.canVeto(proposal, account, p.clock.Now())
	return ok, err
}

// CanExecute reports whether the proposal may be executed now. Unknown
// proposals report false.
func (p *Plugin) CanExecute(id uint64) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proposal, err := p.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrProposalNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.canExecute(proposal, p.clock.Now())
}

// IsMinVetoRatioReached reports whether the veto tally has reached the
// proposal's threshold
func (p *Plugin) IsMinVetoRatioReached(id uint64) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proposal, err := p.store.Get(id)
	if err != nil {
		return false, err
	}
	return p.isMinVetoRatioReached(proposal)
}

// MinVetoVotingPower returns the veto power needed to block the proposal
func (p *Plugin) MinVetoVotingPower(id uint64) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proposal, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	return p.minVetoVotingPower(proposal)
}

// State derives the proposal's lifecycle state at the current time
func (p *Plugin) State(id uint64) (ProposalState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proposal, err := p.store.Get(id)
	if err != nil {
		return 0, err
	}
	now := p.clock.Now()
	switch {
	case proposal.Executed:
		return ProposalStateExecuted, nil
	case now < proposal.Parameters.StartDate:
		return ProposalStatePending, nil
	case proposal.isOpen(now):
		return ProposalStateOpen, nil
	}
	reached, err := p.isMinVetoRatioReached(proposal)
	if err != nil {
		return 0, err
	}
	if reached {
		return ProposalStateDefeated, nil
	}
	return ProposalStateExecutable, nil
}

// TotalVotingPower returns the total voting power at a snapshot block
func (p *Plugin) TotalVotingPower(snapshot uint64) (*uint256.Int, error) {
	return p.oracle.TotalVotingPower(snapshot)
}

func (p *Plugin) canVeto(
	proposal *Proposal,
	account string,
	now uint64,
) (bool, *uint256.Int, error) {
	if !proposal.isOpen(now) {
		return false, nil, nil
	}
	vetoed, err := p.store.HasVetoed(proposal.ID, account)
	if err != nil {
		return false, nil, err
	}
	if vetoed {
		return false, nil, nil
	}
	return p.eligibility.Eligible(p.oracle, proposal, account)
}

func (p *Plugin) canExecute(proposal *Proposal, now uint64) (bool, error) {
	if proposal.Executed || !proposal.isEnded(now) {
		return false, nil
	}
	reached, err := p.isMinVetoRatioReached(proposal)
	if err != nil {
		return false, err
	}
	return !reached, nil
}

func (p *Plugin) minVetoVotingPower(proposal *Proposal) (*uint256.Int, error) {
	total, err := p.oracle.TotalVotingPower(proposal.Parameters.SnapshotBlock)
	if err != nil {
		return nil, fmt.Errorf("total voting power: %w", err)
	}
	return ratio.ApplyRatioCeiled(total, proposal.Parameters.MinVetoRatio)
}

func (p *Plugin) isMinVetoRatioReached(proposal *Proposal) (bool, error) {
	threshold, err := p.minVetoVotingPower(proposal)
	if err != nil {
		return false, err
	}
	return !cloneInt(proposal.VetoTally).Lt(threshold), nil
}

func (p *Plugin) publish(eventType event.EventType, data any) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
