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
	"errors"

	"github.com/blinklabs-io/vetogov/database/models"
	"github.com/blinklabs-io/vetogov/database/types"
	"github.com/holiman/uint256"
)

// ErrVotingPowerOverflow is returned when summed voting power exceeds 256 bits
var ErrVotingPowerOverflow = errors.New("total voting power overflows uint256")

// SetVotingPower records an account's voting power as of a block
func (d *Database) SetVotingPower(
	account string,
	block uint64,
	power *uint256.Int,
	txn *Txn,
) error {
	checkpoint := &models.VotingPowerCheckpoint{
		Account: account,
		Block:   block,
		Power:   types.NewUint256(power),
	}
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetVotingPowerCheckpoint(checkpoint, txn.Metadata())
	})
}

// GetVotingPower returns an account's voting power as of a block. Accounts
// without a checkpoint at or before the block have zero power.
func (d *Database) GetVotingPower(
	account string,
	block uint64,
	txn *Txn,
) (*uint256.Int, error) {
	ret := new(uint256.Int)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		checkpoint, err := d.metadata.GetVotingPowerCheckpoint(
			account,
			block,
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		if checkpoint != nil {
			ret = checkpoint.Power.Big()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetTotalVotingPower sums every account's voting power as of a block
func (d *Database) GetTotalVotingPower(
	block uint64,
	txn *Txn,
) (*uint256.Int, error) {
	ret := new(uint256.Int)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		checkpoints, err := d.metadata.GetVotingPowerCheckpointsAt(
			block,
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		for _, checkpoint := range checkpoints {
			if _, overflow := ret.AddOverflow(ret, &checkpoint.Power.Int); overflow {
				return ErrVotingPowerOverflow
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetVotingPowerCheckpoints returns every stored checkpoint in block order
func (d *Database) GetVotingPowerCheckpoints(
	txn *Txn,
) ([]*models.VotingPowerCheckpoint, error) {
	var ret []*models.VotingPowerCheckpoint
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVotingPowerCheckpoints(txn.Metadata())
		return err
	})
	return ret, err
}

// GetLatestVotingPowerBlock returns the highest block with a checkpoint and
// whether any checkpoint exists
func (d *Database) GetLatestVotingPowerBlock(txn *Txn) (uint64, bool, error) {
	var (
		block uint64
		ok    bool
	)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		block, ok, err = d.metadata.GetLatestVotingPowerBlock(txn.Metadata())
		return err
	})
	return block, ok, err
}

// GetVotingPowerHead returns the saved head block and whether one exists
func (d *Database) GetVotingPowerHead(txn *Txn) (uint64, bool, error) {
	var (
		block uint64
		ok    bool
	)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		block, ok, err = d.metadata.GetVotingPowerHead(txn.Metadata())
		return err
	})
	return block, ok, err
}

// SetVotingPowerHead saves the head block
func (d *Database) SetVotingPowerHead(block uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetVotingPowerHead(block, txn.Metadata())
	})
}
