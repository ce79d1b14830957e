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

package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/vetogov/database/models"
	"github.com/blinklabs-io/vetogov/database/types"
	"github.com/fxamacker/cbor/v2"
)

const proposalPayloadKeyPrefix = "gp"

// ErrVetoExists is returned when an account vetoes the same proposal twice
var ErrVetoExists = errors.New("veto already recorded")

func proposalPayloadKey(id uint64) []byte {
	key := make([]byte, len(proposalPayloadKeyPrefix)+8)
	copy(key, proposalPayloadKeyPrefix)
	binary.BigEndian.PutUint64(key[len(proposalPayloadKeyPrefix):], id)
	return key
}

// CreateProposal stores a proposal's scalar state and its CBOR-encoded
// payload in a single transaction
func (d *Database) CreateProposal(
	proposal *models.Proposal,
	payload *models.ProposalPayload,
	txn *Txn,
) error {
	if proposal == nil {
		return errors.New("nil proposal")
	}
	if payload == nil {
		payload = &models.ProposalPayload{}
	}
	payloadCbor, err := cbor.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode proposal payload: %w", err)
	}
	return d.withTxn(txn, true, func(txn *Txn) error {
		existing, err := d.metadata.GetProposal(proposal.ID, txn.Metadata())
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("proposal %d already exists", proposal.ID)
		}
		if err := d.blob.Set(
			txn.Blob(),
			proposalPayloadKey(proposal.ID),
			payloadCbor,
		); err != nil {
			return fmt.Errorf("store proposal payload: %w", err)
		}
		return d.metadata.CreateProposal(proposal, txn.Metadata())
	})
}

// GetProposal returns a proposal's scalar state, or models.ErrProposalNotFound
func (d *Database) GetProposal(id uint64, txn *Txn) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		proposal, err := d.metadata.GetProposal(id, txn.Metadata())
		if err != nil {
			return err
		}
		if proposal == nil {
			return models.ErrProposalNotFound
		}
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetProposalPayload returns a proposal's metadata and actions
func (d *Database) GetProposalPayload(
	id uint64,
	txn *Txn,
) (*models.ProposalPayload, error) {
	var ret models.ProposalPayload
	err := d.withTxn(txn, false, func(txn *Txn) error {
		payloadCbor, err := d.blob.Get(txn.Blob(), proposalPayloadKey(id))
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return models.ErrProposalNotFound
			}
			return err
		}
		if err := cbor.Unmarshal(payloadCbor, &ret); err != nil {
			return fmt.Errorf("decode proposal payload: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetProposalCount returns the number of stored proposals
func (d *Database) GetProposalCount(txn *Txn) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposalCount(txn.Metadata())
		return err
	})
	return ret, err
}

// GetProposals returns up to limit proposals with IDs starting at offset
func (d *Database) GetProposals(
	offset uint64,
	limit int,
	txn *Txn,
) ([]*models.Proposal, error) {
	var ret []*models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposals(offset, limit, txn.Metadata())
		return err
	})
	return ret, err
}

// AddVeto records a veto and stores the proposal's new tally
func (d *Database) AddVeto(
	veto *models.Veto,
	newTally types.Uint256,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		existing, err := d.metadata.GetVeto(
			veto.ProposalID,
			veto.Voter,
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrVetoExists
		}
		if err := d.metadata.CreateVeto(veto, txn.Metadata()); err != nil {
			return err
		}
		return d.metadata.SetProposalVetoTally(
			veto.ProposalID,
			newTally,
			txn.Metadata(),
		)
	})
}

// GetVeto returns an account's veto on a proposal, or nil if none
func (d *Database) GetVeto(
	proposalID uint64,
	voter string,
	txn *Txn,
) (*models.Veto, error) {
	var ret *models.Veto
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVeto(proposalID, voter, txn.Metadata())
		return err
	})
	return ret, err
}

// GetVetoes returns all vetoes recorded on a proposal
func (d *Database) GetVetoes(proposalID uint64, txn *Txn) ([]*models.Veto, error) {
	var ret []*models.Veto
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVetoes(proposalID, txn.Metadata())
		return err
	})
	return ret, err
}

// SetProposalExecuted marks a proposal executed and reports whether this
// call changed it
func (d *Database) SetProposalExecuted(
	id uint64,
	executedAt uint64,
	txn *Txn,
) (bool, error) {
	var ret bool
	err := d.withTxn(txn, true, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.SetProposalExecuted(id, executedAt, txn.Metadata())
		return err
	})
	return ret, err
}
