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
	"sort"
	"sync"

	"github.com/holiman/uint256"
)

var (
	ErrInsufficientPower = errors.New("insufficient voting power")
	ErrFutureLookup      = errors.New("voting power lookup at or after head block")
)

type checkpoint struct {
	block uint64
	power *uint256.Int
}

// checkpoints is kept sorted by block with at most one entry per block
type checkpoints []checkpoint

func (c checkpoints) at(block uint64) *uint256.Int {
	// Index of the first checkpoint after block
	idx := sort.Search(len(c), func(i int) bool {
		return c[i].block > block
	})
	if idx == 0 {
		return new(uint256.Int)
	}
	return c[idx-1].power.Clone()
}

func (c checkpoints) latest() *uint256.Int {
	if len(c) == 0 {
		return new(uint256.Int)
	}
	return c[len(c)-1].power.Clone()
}

func (c *checkpoints) write(block uint64, power *uint256.Int) {
	n := len(*c)
	if n > 0 && (*c)[n-1].block == block {
		(*c)[n-1].power = power
		return
	}
	*c = append(*c, checkpoint{block: block, power: power})
}

// History is an in-memory checkpointed voting power ledger. Writes always
// land on the current head block; reads are only served for blocks strictly
// before the head, which are immutable.
type History struct {
	mu       sync.RWMutex
	head     uint64
	accounts map[string]*checkpoints
	total    checkpoints
}

// NewHistory returns an empty history with its head at block 1, so that
// block 0 is the first readable snapshot
func NewHistory() *History {
	return &History{
		head:     1,
		accounts: make(map[string]*checkpoints),
	}
}

// Head returns the block currently accepting writes
func (h *History) Head() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.head
}

// Advance moves the head forward by n blocks and returns the new head
func (h *History) Advance(n uint64) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head += n
	return h.head
}

// Mint adds voting power to an account at the head block
func (h *History) Mint(account string, amount *uint256.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.adjust(account, amount, true)
}

// Burn removes voting power from an account at the head block
func (h *History) Burn(account string, amount *uint256.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.adjust(account, amount, false)
}

// Move shifts voting power between two accounts at the head block, as a
// transfer or a delegation change would
func (h *History) Move(from, to string, amount *uint256.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.adjust(from, amount, false); err != nil {
		return err
	}
	return h.adjust(to, amount, true)
}

// Set records an absolute voting power for an account at a block at or
// after the head, moving the head to that block. It is used to load
// persisted checkpoints in block order.
func (h *History) Set(account string, block uint64, power *uint256.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if block < h.head {
		return fmt.Errorf(
			"cannot write block %d behind head %d",
			block,
			h.head,
		)
	}
	h.head = block
	current := h.accountCheckpoints(account).latest()
	if power.Gt(current) {
		return h.adjust(account, new(uint256.Int).Sub(power, current), true)
	}
	return h.adjust(account, new(uint256.Int).Sub(current, power), false)
}

func (h *History) accountCheckpoints(account string) *checkpoints {
	cp, ok := h.accounts[account]
	if !ok {
		cp = &checkpoints{}
		h.accounts[account] = cp
	}
	return cp
}

func (h *History) adjust(account string, amount *uint256.Int, add bool) error {
	cp := h.accountCheckpoints(account)
	balance := cp.latest()
	total := h.total.latest()
	if add {
		if _, overflow := total.AddOverflow(total, amount); overflow {
			return fmt.Errorf("total voting power overflows 256 bits")
		}
		balance.Add(balance, amount)
	} else {
		if balance.Lt(amount) {
			return fmt.Errorf(
				"%w: %s has %s, needs %s",
				ErrInsufficientPower,
				account,
				balance.Dec(),
				amount.Dec(),
			)
		}
		balance.Sub(balance, amount)
		total.Sub(total, amount)
	}
	cp.write(h.head, balance)
	h.total.write(h.head, total)
	return nil
}

// TotalVotingPower implements Oracle
func (h *History) TotalVotingPower(snapshot uint64) (*uint256.Int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if snapshot >= h.head {
		return nil, fmt.Errorf("%w: %d", ErrFutureLookup, snapshot)
	}
	return h.total.at(snapshot), nil
}

// VotingPowerOf implements Oracle
func (h *History) VotingPowerOf(
	account string,
	snapshot uint64,
) (*uint256.Int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if snapshot >= h.head {
		return nil, fmt.Errorf("%w: %d", ErrFutureLookup, snapshot)
	}
	cp, ok := h.accounts[account]
	if !ok {
		return new(uint256.Int), nil
	}
	return cp.at(snapshot), nil
}
