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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/vetogov/governance"
	"github.com/holiman/uint256"
)

var (
	errMissingAccount = errors.New("missing " + AccountHeader + " header")
	errInvalidID      = errors.New("invalid proposal id")
	errInvalidNumber  = errors.New("invalid decimal number")
)

// writeJSON writes a JSON response with the given status.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeGovernanceError maps a governance error to an HTTP status
func (a *API) writeGovernanceError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, governance.ErrProposalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, governance.ErrUnauthorized),
		errors.Is(err, errMissingAccount):
		status = http.StatusUnauthorized
	case errors.Is(err, governance.ErrProposalCreationForbidden),
		errors.Is(err, governance.ErrProposalVetoingForbidden),
		errors.Is(err, governance.ErrProposalExecutionForbidden):
		status = http.StatusForbidden
	case errors.Is(err, governance.ErrDateOutOfBounds),
		errors.Is(err, governance.ErrDateOverflow),
		errors.Is(err, governance.ErrMinDurationOutOfBounds),
		errors.Is(err, governance.ErrRatioOutOfBounds),
		errors.Is(err, governance.ErrNoVotingPower),
		errors.Is(err, governance.ErrTooManyActions),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidNumber),
		errors.Is(err, ErrInvalidPaginationParameters):
		status = http.StatusBadRequest
	case errors.Is(err, governance.ErrActionFailed):
		// The proposal is already marked executed at this point
		resp := ErrorResponse{
			StatusCode: http.StatusConflict,
			Error:      http.StatusText(http.StatusConflict),
			Message:    err.Error(),
		}
		var actionErr *governance.ActionFailedError
		if errors.As(err, &actionErr) {
			idx := actionErr.Index
			resp.FailedAction = &idx
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	default:
		a.logger.Error(
			"request failed",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			err.Error(),
		)
		return
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

func caller(r *http.Request) (string, error) {
	account := r.Header.Get(AccountHeader)
	if account == "" {
		return "", errMissingAccount
	}
	return account, nil
}

func proposalID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidID, r.PathValue("id"))
	}
	return id, nil
}

func parseDecimal(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	ret, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	return ret, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	return nil
}

// handleHealth handles GET /health.
func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

// handleGetSettings handles GET /api/v1/settings.
func (a *API) handleGetSettings(
	w http.ResponseWriter,
	_ *http.Request,
) {
	settings := a.gov.Settings()
	writeJSON(w, http.StatusOK, SettingsBody{
		MinVetoRatio:           settings.MinVetoRatio,
		MinDuration:            settings.MinDuration,
		MinProposerVotingPower: settings.MinProposerVotingPower.Dec(),
	})
}

// handleUpdateSettings handles PUT /api/v1/settings.
func (a *API) handleUpdateSettings(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := caller(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	var body SettingsBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	minPower, err := parseDecimal(body.MinProposerVotingPower)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	settings := governance.Settings{
		MinVetoRatio:           body.MinVetoRatio,
		MinDuration:            body.MinDuration,
		MinProposerVotingPower: minPower,
	}
	if err := a.gov.UpdateSettings(r.Context(), account, settings); err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	a.handleGetSettings(w, r)
}

// handleListProposals handles GET /api/v1/proposals.
func (a *API) handleListProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	count, err := a.gov.ProposalCount()
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	proposals, err := a.gov.ListProposals(params.Offset, params.Limit)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	ret := make([]ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		resp, err := a.proposalResponse(proposal)
		if err != nil {
			a.writeGovernanceError(w, err)
			return
		}
		ret = append(ret, resp)
	}
	SetPaginationHeaders(w, count)
	writeJSON(w, http.StatusOK, ret)
}

// handleCreateProposal handles POST /api/v1/proposals.
func (a *API) handleCreateProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := caller(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	var body CreateProposalRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	allowFailureMap, err := parseDecimal(body.AllowFailureMap)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	params := governance.CreateProposalParams{
		Metadata:        body.Metadata,
		AllowFailureMap: allowFailureMap,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		Actions:         make([]governance.Action, 0, len(body.Actions)),
	}
	for _, action := range body.Actions {
		value, err := parseDecimal(action.Value)
		if err != nil {
			a.writeGovernanceError(w, err)
			return
		}
		params.Actions = append(params.Actions, governance.Action{
			To:    action.To,
			Value: value,
			Data:  action.Data,
		})
	}
	id, err := a.gov.CreateProposal(r.Context(), account, params)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateProposalResponse{ID: id})
}

// handleGetProposal handles GET /api/v1/proposals/{id}.
func (a *API) handleGetProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := proposalID(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	proposal, err := a.gov.GetProposal(id)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	resp, err := a.proposalResponse(proposal)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVetoStatus handles GET /api/v1/proposals/{id}/vetoes/{account}.
func (a *API) handleVetoStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := proposalID(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	account := r.PathValue("account")
	hasVetoed, err := a.gov.HasVetoed(id, account)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	canVeto, err := a.gov.CanVeto(id, account)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VetoStatusResponse{
		ProposalID: id,
		Account:    account,
		HasVetoed:  hasVetoed,
		CanVeto:    canVeto,
	})
}

// handleVeto handles POST /api/v1/proposals/{id}/veto.
func (a *API) handleVeto(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := caller(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	id, err := proposalID(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	if err := a.gov.Veto(r.Context(), id, account); err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VetoStatusResponse{
		ProposalID: id,
		Account:    account,
		HasVetoed:  true,
	})
}

// handleExecute handles POST /api/v1/proposals/{id}/execute.
func (a *API) handleExecute(
	w http.ResponseWriter,
	r *http.Request,
) {
	account, err := caller(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	id, err := proposalID(r)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	result, err := a.gov.Execute(r.Context(), account, id)
	if err != nil {
		a.writeGovernanceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		ProposalID: id,
		FailureMap: result.FailureMap.Dec(),
		Results:    result.Results,
	})
}

func (a *API) proposalResponse(
	proposal *governance.Proposal,
) (ProposalResponse, error) {
	state, err := a.gov.State(proposal.ID)
	if err != nil {
		return ProposalResponse{}, err
	}
	resp := ProposalResponse{
		ID:                 proposal.ID,
		Creator:            proposal.Creator,
		Executed:           proposal.Executed,
		State:              state.String(),
		CanExecute:         state == governance.ProposalStateExecutable,
		StartDate:          proposal.Parameters.StartDate,
		EndDate:            proposal.Parameters.EndDate,
		SnapshotBlock:      proposal.Parameters.SnapshotBlock,
		MinVetoRatio:       proposal.Parameters.MinVetoRatio,
		MinVotingPower:     proposal.Parameters.MinVotingPower.Dec(),
		MinVetoVotingPower: proposal.Parameters.MinVetoVotingPower.Dec(),
		VetoTally:          proposal.VetoTally.Dec(),
		AllowFailureMap:    proposal.AllowFailureMap.Dec(),
		Metadata:           proposal.Metadata,
		Actions:            make([]ActionBody, 0, len(proposal.Actions)),
		CreatedAt:          proposal.CreatedAt,
	}
	if proposal.Executed {
		executedAt := proposal.ExecutedAt
		resp.ExecutedAt = &executedAt
	}
	for _, action := range proposal.Actions {
		resp.Actions = append(resp.Actions, ActionBody{
			To:    action.To,
			Value: action.Value.Dec(),
			Data:  action.Data,
		})
	}
	return resp, nil
}
