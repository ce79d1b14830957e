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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetVotingPowerCheckpoint creates or replaces an account's checkpoint at a
// block
func (d *MetadataStoreSqlite) SetVotingPowerCheckpoint(
	checkpoint *models.VotingPowerCheckpoint,
	txn *gorm.DB,
) error {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account"},
			{Name: "block"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"power"}),
	}
	if result := d.resolve(txn).Clauses(onConflict).Create(checkpoint); result.Error != nil {
		return d.recordError(result.Error)
	}
	return nil
}

// GetVotingPowerCheckpoint returns the latest checkpoint for an account at
// or before the given block, or nil if the account has none
func (d *MetadataStoreSqlite) GetVotingPowerCheckpoint(
	account string,
	block uint64,
	txn *gorm.DB,
) (*models.VotingPowerCheckpoint, error) {
	var checkpoint models.VotingPowerCheckpoint
	result := d.resolve(txn).
		Where("account = ? AND block <= ?", account, block).
		Order("block DESC").
		First(&checkpoint)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.recordError(result.Error)
	}
	return &checkpoint, nil
}

// GetVotingPowerCheckpointsAt returns, for every account, its latest
// checkpoint at or before the given block
func (d *MetadataStoreSqlite) GetVotingPowerCheckpointsAt(
	block uint64,
	txn *gorm.DB,
) ([]*models.VotingPowerCheckpoint, error) {
	var checkpoints []*models.VotingPowerCheckpoint
	result := d.resolve(txn).Raw(`
		SELECT c.* FROM voting_power_checkpoint AS c
		JOIN (
			SELECT account, MAX(block) AS block
			FROM voting_power_checkpoint
			WHERE block <= ?
			GROUP BY account
		) AS latest ON latest.account = c.account AND latest.block = c.block
		ORDER BY c.account ASC
	`, block).Scan(&checkpoints)
	if result.Error != nil {
		return nil, d.recordError(result.Error)
	}
	return checkpoints, nil
}

// GetVotingPowerCheckpoints returns all checkpoints in block order
func (d *MetadataStoreSqlite) GetVotingPowerCheckpoints(
	txn *gorm.DB,
) ([]*models.VotingPowerCheckpoint, error) {
	var checkpoints []*models.VotingPowerCheckpoint
	result := d.resolve(txn).
		Order("block ASC, id ASC").
		Find(&checkpoints)
	if result.Error != nil {
		return nil, d.recordError(result.Error)
	}
	return checkpoints, nil
}

// GetLatestVotingPowerBlock returns the highest checkpointed block and
// whether any checkpoint exists
func (d *MetadataStoreSqlite) GetLatestVotingPowerBlock(
	txn *gorm.DB,
) (uint64, bool, error) {
	var checkpoint models.VotingPowerCheckpoint
	result := d.resolve(txn).Order("block DESC").First(&checkpoint)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, d.recordError(result.Error)
	}
	return checkpoint.Block, true, nil
}

// GetVotingPowerHead returns the saved head block and whether one exists
func (d *MetadataStoreSqlite) GetVotingPowerHead(
	txn *gorm.DB,
) (uint64, bool, error) {
	var head models.VotingPowerHead
	result := d.resolve(txn).
		Where("id = ?", models.VotingPowerHeadID).
		First(&head)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, d.recordError(result.Error)
	}
	return head.Block, true, nil
}

// SetVotingPowerHead creates or replaces the head block row
func (d *MetadataStoreSqlite) SetVotingPowerHead(
	block uint64,
	txn *gorm.DB,
) error {
	head := &models.VotingPowerHead{
		ID:    models.VotingPowerHeadID,
		Block: block,
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"block"}),
	}
	if result := d.resolve(txn).Clauses(onConflict).Create(head); result.Error != nil {
		return d.recordError(result.Error)
	}
	return nil
}
