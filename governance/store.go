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
	"sync"

	"github.com/holiman/uint256"
)

var ErrProposalAlreadyExecuted = errors.New("proposal already executed")

// Store owns proposal records, their veto sets and the live settings.
// Proposal IDs are assigned sequentially from 0. Returned proposals are
// copies. Callers serialize mutations.
type Store interface {
	// Insert assigns the next ID to p, stores it and returns the ID
	Insert(p *Proposal) (uint64, error)
	// Get returns ErrProposalNotFound for unused IDs
	Get(id uint64) (*Proposal, error)
	Count() (uint64, error)
	// List returns up to limit proposals with IDs from offset upward
	List(offset uint64, limit int) ([]*Proposal, error)
	// RecordVeto adds account to the voter set and power to the tally. It
	// does not check for a previous veto by the same account.
	RecordVeto(id uint64, account string, power *uint256.Int, castAt uint64) error
	HasVetoed(id uint64, account string) (bool, error)
	// MarkExecuted sets the executed flag, failing with
	// ErrProposalAlreadyExecuted if it is already set
	MarkExecuted(id uint64, executedAt uint64) error
	SaveSettings(s Settings) error
	// LoadSettings reports false when no settings were saved
	LoadSettings() (Settings, bool, error)
}

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	proposals []*Proposal
	voters    []map[string]struct{}
	settings  *Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(p *Proposal) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := p.Clone()
	stored.ID = uint64(len(s.proposals))
	s.proposals = append(s.proposals, stored)
	s.voters = append(s.voters, make(map[string]struct{}))
	return stored.ID, nil
}

func (s *MemoryStore) get(id uint64) (*Proposal, error) {
	if id >= uint64(len(s.proposals)) {
		return nil, ErrProposalNotFound
	}
	return s.proposals[id], nil
}

func (s *MemoryStore) Get(id uint64) (*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.proposals)), nil
}

func (s *MemoryStore) List(offset uint64, limit int) ([]*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []*Proposal
	for id := offset; id < uint64(len(s.proposals)) && len(ret) < limit; id++ {
		ret = append(ret, s.proposals[id].Clone())
	}
	return ret, nil
}

func (s *MemoryStore) RecordVeto(
	id uint64,
	account string,
	power *uint256.Int,
	_ uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(id)
	if err != nil {
		return err
	}
	tally := cloneInt(p.VetoTally)
	if _, overflow := tally.AddOverflow(tally, power); overflow {
		return errors.New("veto tally overflows uint256")
	}
	s.voters[id][account] = struct{}{}
	p.VetoTally = tally
	return nil
}

func (s *MemoryStore) HasVetoed(id uint64, account string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.get(id); err != nil {
		return false, err
	}
	_, ok := s.voters[id][account]
	return ok, nil
}

func (s *MemoryStore) MarkExecuted(id uint64, executedAt uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(id)
	if err != nil {
		return err
	}
	if p.Executed {
		return ErrProposalAlreadyExecuted
	}
	p.Executed = true
	p.ExecutedAt = executedAt
	return nil
}

func (s *MemoryStore) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := settings.Clone()
	s.settings = &tmp
	return nil
}

func (s *MemoryStore) LoadSettings() (Settings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return Settings{}, false, nil
	}
	return s.settings.Clone(), true, nil
}
