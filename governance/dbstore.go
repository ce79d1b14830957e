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
	"errors"
	"fmt"

	"github.com/blinklabs-io/vetogov/database"
	"github.com/blinklabs-io/vetogov/database/models"
	"github.com/blinklabs-io/vetogov/database/types"
	"github.com/holiman/uint256"
)

// DatabaseStore persists proposals through the database package. Scalar
// state and vetoes go to SQLite and actions and metadata go to badger.
type DatabaseStore struct {
	db *database.Database
}

func NewDatabaseStore(db *database.Database) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Insert(p *Proposal) (uint64, error) {
	var id uint64
	txn := s.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		count, err := s.db.GetProposalCount(txn)
		if err != nil {
			return err
		}
		id = count
		model, payload := proposalToModel(p)
		model.ID = id
		return s.db.CreateProposal(model, payload, txn)
	})
	if err != nil {
		return 0, fmt.Errorf("insert proposal: %w", err)
	}
	return id, nil
}

func (s *DatabaseStore) Get(id uint64) (*Proposal, error) {
	var ret *Proposal
	txn := s.db.Transaction(false)
	err := txn.Do(func(txn *database.Txn) error {
		model, err := s.db.GetProposal(id, txn)
		if err != nil {
			return err
		}
		payload, err := s.db.GetProposalPayload(id, txn)
		if err != nil {
			return err
		}
		ret = proposalFromModel(model, payload)
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("get proposal %d: %w", id, err)
	}
	return ret, nil
}

func (s *DatabaseStore) Count() (uint64, error) {
	return s.db.GetProposalCount(nil)
}

func (s *DatabaseStore) List(offset uint64, limit int) ([]*Proposal, error) {
	var ret []*Proposal
	txn := s.db.Transaction(false)
	err := txn.Do(func(txn *database.Txn) error {
		proposals, err := s.db.GetProposals(offset, limit, txn)
		if err != nil {
			return err
		}
		for _, model := range proposals {
			payload, err := s.db.GetProposalPayload(model.ID, txn)
			if err != nil {
				return err
			}
			ret = append(ret, proposalFromModel(model, payload))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return ret, nil
}

func (s *DatabaseStore) RecordVeto(
	id uint64,
	account string,
	power *uint256.Int,
	castAt uint64,
) error {
	txn := s.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		model, err := s.db.GetProposal(id, txn)
		if err != nil {
			return err
		}
		tally := model.VetoTally.Big()
		if _, overflow := tally.AddOverflow(tally, power); overflow {
			return errors.New("veto tally overflows uint256")
		}
		veto := &models.Veto{
			ProposalID:  id,
			Voter:       account,
			VotingPower: types.NewUint256(power),
			CastAt:      castAt,
		}
		return s.db.AddVeto(veto, types.NewUint256(tally), txn)
	})
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return ErrProposalNotFound
		}
		return fmt.Errorf("record veto: %w", err)
	}
	return nil
}

func (s *DatabaseStore) HasVetoed(id uint64, account string) (bool, error) {
	var ret bool
	txn := s.db.Transaction(false)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := s.db.GetProposal(id, txn); err != nil {
			return err
		}
		veto, err := s.db.GetVeto(id, account, txn)
		if err != nil {
			return err
		}
		ret = veto != nil
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return false, ErrProposalNotFound
		}
		return false, err
	}
	return ret, nil
}

func (s *DatabaseStore) MarkExecuted(id uint64, executedAt uint64) error {
	txn := s.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := s.db.GetProposal(id, txn); err != nil {
			return err
		}
		changed, err := s.db.SetProposalExecuted(id, executedAt, txn)
		if err != nil {
			return err
		}
		if !changed {
			return ErrProposalAlreadyExecuted
		}
		return nil
	})
	if errors.Is(err, models.ErrProposalNotFound) {
		return ErrProposalNotFound
	}
	return err
}

func (s *DatabaseStore) SaveSettings(settings Settings) error {
	return s.db.SetGovernanceSettings(
		&models.GovernanceSettings{
			MinVetoRatio:           settings.MinVetoRatio,
			MinDuration:            settings.MinDuration,
			MinProposerVotingPower: types.NewUint256(settings.MinProposerVotingPower),
		},
		nil,
	)
}

func (s *DatabaseStore) LoadSettings() (Settings, bool, error) {
	model, err := s.db.GetGovernanceSettings(nil)
	if err != nil {
		return Settings{}, false, err
	}
	if model == nil {
		return Settings{}, false, nil
	}
	return Settings{
		MinVetoRatio:           model.MinVetoRatio,
		MinDuration:            model.MinDuration,
		MinProposerVotingPower: model.MinProposerVotingPower.Big(),
	}, true, nil
}

func proposalToModel(p *Proposal) (*models.Proposal, *models.ProposalPayload) {
	model := &models.Proposal{
		ID:                 p.ID,
		Creator:            p.Creator,
		Executed:           p.Executed,
		StartDate:          p.Parameters.StartDate,
		EndDate:            p.Parameters.EndDate,
		SnapshotBlock:      p.Parameters.SnapshotBlock,
		MinVetoRatio:       p.Parameters.MinVetoRatio,
		MinVotingPower:     types.NewUint256(p.Parameters.MinVotingPower),
		MinVetoVotingPower: types.NewUint256(p.Parameters.MinVetoVotingPower),
		VetoTally:          types.NewUint256(p.VetoTally),
		AllowFailureMap:    types.NewUint256(p.AllowFailureMap),
		CreatedAt:          p.CreatedAt,
	}
	if p.Executed {
		executedAt := p.ExecutedAt
		model.ExecutedAt = &executedAt
	}
	payload := &models.ProposalPayload{
		Metadata: p.Metadata,
		Actions:  make([]models.ProposalAction, 0, len(p.Actions)),
	}
	for _, action := range p.Actions {
		payload.Actions = append(payload.Actions, models.ProposalAction{
			To:    action.To,
			Value: cloneInt(action.Value).Bytes(),
			Data:  action.Data,
		})
	}
	return model, payload
}

func proposalFromModel(
	model *models.Proposal,
	payload *models.ProposalPayload,
) *Proposal {
	ret := &Proposal{
		ID:      model.ID,
		Creator: model.Creator,
		Parameters: Parameters{
			StartDate:          model.StartDate,
			EndDate:            model.EndDate,
			SnapshotBlock:      model.SnapshotBlock,
			MinVetoRatio:       model.MinVetoRatio,
			MinVotingPower:     model.MinVotingPower.Big(),
			MinVetoVotingPower: model.MinVetoVotingPower.Big(),
		},
		VetoTally:       model.VetoTally.Big(),
		AllowFailureMap: model.AllowFailureMap.Big(),
		Executed:        model.Executed,
		CreatedAt:       model.CreatedAt,
		Metadata:        payload.Metadata,
	}
	if model.ExecutedAt != nil {
		ret.ExecutedAt = *model.ExecutedAt
	}
	if len(payload.Actions) > 0 {
		ret.Actions = make([]Action, len(payload.Actions))
		for i, action := range payload.Actions {
			ret.Actions[i] = Action{
				To:    action.To,
				Value: new(uint256.Int).SetBytes(action.Value),
				Data:  action.Data,
			}
		}
	}
	return ret
}
