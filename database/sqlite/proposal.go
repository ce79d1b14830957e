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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/vetogov/database/models"
	"github.com/blinklabs-io/vetogov/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProposal retrieves a proposal by ID. Returns nil if it does not exist.
func (d *MetadataStoreSqlite) GetProposal(
	id uint64,
	txn *gorm.DB,
) (*models.Proposal, error) {
	var proposal models.Proposal
	result := d.resolve(txn).Where("id = ?", id).First(&proposal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.recordError(result.Error)
	}
	return &proposal, nil
}

// CreateProposal inserts a new proposal row. The ID must be unused.
func (d *MetadataStoreSqlite) CreateProposal(
	proposal *models.Proposal,
	txn *gorm.DB,
) error {
	if result := d.resolve(txn).Create(proposal); result.Error != nil {
		return d.recordError(result.Error)
	}
	return nil
}

// GetProposalCount returns the number of stored proposals
func (d *MetadataStoreSqlite) GetProposalCount(txn *gorm.DB) (uint64, error) {
	var count int64
	result := d.resolve(txn).Model(&models.Proposal{}).Count(&count)
	if result.Error != nil {
		return 0, d.recordError(result.Error)
	}
	return uint64(count), nil //nolint:gosec
}

// GetProposals returns up to limit proposals in ascending ID order starting
// at offset
func (d *MetadataStoreSqlite) GetProposals(
	offset uint64,
	limit int,
	txn *gorm.DB,
) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	result := d.resolve(txn).
		Where("id >= ?", offset).
		Order("id ASC").
		Limit(limit).
		Find(&proposals)
	if result.Error != nil {
		return nil, d.recordError(result.Error)
	}
	return proposals, nil
}

// SetProposalExecuted marks a proposal executed. It only matches rows that
// are not yet executed, and reports whether a row changed.
func (d *MetadataStoreSqlite) SetProposalExecuted(
	id uint64,
	executedAt uint64,
	txn *gorm.DB,
) (bool, error) {
	result := d.resolve(txn).
		Model(&models.Proposal{}).
		Where("id = ? AND executed = ?", id, false).
		Updates(map[string]any{
			"executed":    true,
			"executed_at": executedAt,
		})
	if result.Error != nil {
		return false, d.recordError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SetProposalVetoTally replaces a proposal's veto tally
func (d *MetadataStoreSqlite) SetProposalVetoTally(
	id uint64,
	tally types.Uint256,
	txn *gorm.DB,
) error {
	result := d.resolve(txn).
		Model(&models.Proposal{}).
		Where("id = ?", id).
		Update("veto_tally", tally)
	if result.Error != nil {
		return d.recordError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrProposalNotFound
	}
	return nil
}

// GetVeto returns an account's veto on a proposal, or nil if none
func (d *MetadataStoreSqlite) GetVeto(
	proposalID uint64,
	voter string,
	txn *gorm.DB,
) (*models.Veto, error) {
	var veto models.Veto
	result := d.resolve(txn).
		Where("proposal_id = ? AND voter = ?", proposalID, voter).
		First(&veto)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.recordError(result.Error)
	}
	return &veto, nil
}

// GetVetoes returns all vetoes on a proposal in insertion order
func (d *MetadataStoreSqlite) GetVetoes(
	proposalID uint64,
	txn *gorm.DB,
) ([]*models.Veto, error) {
	var vetoes []*models.Veto
	result := d.resolve(txn).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&vetoes)
	if result.Error != nil {
		return nil, d.recordError(result.Error)
	}
	return vetoes, nil
}

// CreateVeto inserts a veto. A second veto by the same account on the same
// proposal violates the unique index and fails.
func (d *MetadataStoreSqlite) CreateVeto(
	veto *models.Veto,
	txn *gorm.DB,
) error {
	if result := d.resolve(txn).Create(veto); result.Error != nil {
		return d.recordError(result.Error)
	}
	return nil
}

// GetGovernanceSettings returns the persisted settings, or nil if none
func (d *MetadataStoreSqlite) GetGovernanceSettings(
	txn *gorm.DB,
) (*models.GovernanceSettings, error) {
	var settings models.GovernanceSettings
	result := d.resolve(txn).
		Where("id = ?", models.GovernanceSettingsID).
		First(&settings)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.recordError(result.Error)
	}
	return &settings, nil
}

// SetGovernanceSettings creates or replaces the settings row
func (d *MetadataStoreSqlite) SetGovernanceSettings(
	settings *models.GovernanceSettings,
	txn *gorm.DB,
) error {
	settings.ID = models.GovernanceSettingsID
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_veto_ratio",
			"min_duration",
			"min_proposer_voting_power",
			"updated_at",
		}),
	}
	if result := d.resolve(txn).Clauses(onConflict).Create(settings); result.Error != nil {
		return d.recordError(result.Error)
	}
	return nil
}
