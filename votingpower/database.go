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

package votingpower

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/vetogov/database"
	"github.com/holiman/uint256"
)

// ErrHistoricalWrite is returned when a checkpoint would change voting power
// at a block below the head, where snapshots may already have been taken
var ErrHistoricalWrite = errors.New("voting power write below head block")

// Checkpoint is an account's voting power as of a block
type Checkpoint struct {
	Power   *uint256.Int
	Account string
	Block   uint64
}

// DatabaseOracle serves voting power from persisted checkpoints. Like
// History, writes land on the head block and reads are limited to blocks
// before it. The head is saved with every move so snapshots taken before a
// restart stay readable after it.
type DatabaseOracle struct {
	mu   sync.RWMutex
	db   *database.Database
	head uint64
}

// NewDatabaseOracle returns an oracle whose head is the saved head block, or
// the block after the latest checkpoint if that is higher. An empty database
// starts at block 1.
func NewDatabaseOracle(db *database.Database) (*DatabaseOracle, error) {
	head := uint64(1)
	saved, ok, err := db.GetVotingPowerHead(nil)
	if err != nil {
		return nil, fmt.Errorf("load voting power head: %w", err)
	}
	if ok {
		head = max(head, saved)
	}
	latest, ok, err := db.GetLatestVotingPowerBlock(nil)
	if err != nil {
		return nil, fmt.Errorf("load latest voting power block: %w", err)
	}
	if ok {
		head = max(head, latest+1)
	}
	return &DatabaseOracle{
		db:   db,
		head: head,
	}, nil
}

// Head returns the block currently accepting writes
func (o *DatabaseOracle) Head() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.head
}

// Advance moves the head forward by n blocks, saves it and returns the new
// head. On error the head is unchanged.
func (o *DatabaseOracle) Advance(n uint64) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	head := o.head + n
	if err := o.db.SetVotingPowerHead(head, nil); err != nil {
		return o.head, fmt.Errorf("save voting power head: %w", err)
	}
	o.head = head
	return o.head, nil
}

// Set records an account's absolute voting power at the head block
func (o *DatabaseOracle) Set(account string, power *uint256.Int) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.db.SetVotingPower(account, o.head, power, nil)
}

// Seed writes checkpoints in one transaction and moves the head past the
// highest seeded block. A checkpoint below the head is accepted only when it
// matches the power already recorded for that block, so the same seeds can
// be applied on every start without rewriting history.
func (o *DatabaseOracle) Seed(checkpoints []Checkpoint) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	head := o.head
	txn := o.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		for _, cp := range checkpoints {
			if cp.Block < o.head {
				current, err := o.db.GetVotingPower(cp.Account, cp.Block, txn)
				if err != nil {
					return err
				}
				if current.Eq(cp.Power) {
					continue
				}
				return fmt.Errorf(
					"%w: %s at block %d (head %d)",
					ErrHistoricalWrite,
					cp.Account,
					cp.Block,
					o.head,
				)
			}
			if err := o.db.SetVotingPower(
				cp.Account,
				cp.Block,
				cp.Power,
				txn,
			); err != nil {
				return err
			}
			head = max(head, cp.Block+1)
		}
		if head == o.head {
			return nil
		}
		return o.db.SetVotingPowerHead(head, txn)
	})
	if err != nil {
		return err
	}
	o.head = head
	return nil
}

// TotalVotingPower implements Oracle
func (o *DatabaseOracle) TotalVotingPower(snapshot uint64) (*uint256.Int, error) {
	if err := o.checkSnapshot(snapshot); err != nil {
		return nil, err
	}
	return o.db.GetTotalVotingPower(snapshot, nil)
}

// VotingPowerOf implements Oracle
func (o *DatabaseOracle) VotingPowerOf(
	account string,
	snapshot uint64,
) (*uint256.Int, error) {
	if err := o.checkSnapshot(snapshot); err != nil {
		return nil, err
	}
	return o.db.GetVotingPower(account, snapshot, nil)
}

func (o *DatabaseOracle) checkSnapshot(snapshot uint64) error {
	if snapshot >= o.Head() {
		return fmt.Errorf("%w: %d", ErrFutureLookup, snapshot)
	}
	return nil
}
