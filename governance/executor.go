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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

var ErrUnknownTarget = errors.New("no handler for action target")

// ExecutionResult is the outcome of running a proposal's actions
type ExecutionResult struct {
	// FailureMap has bit i set when action i failed and its failure was
	// allowed
	FailureMap *uint256.Int
	// Results holds each action's return data, nil for failed actions
	Results [][]byte
}

// ActionExecutor runs a proposal's actions. callID identifies the proposal.
type ActionExecutor interface {
	Execute(
		ctx context.Context,
		callID uint64,
		actions []Action,
		allowFailureMap *uint256.Int,
	) (*ExecutionResult, error)
}

// ActionHandler runs a single action
type ActionHandler func(ctx context.Context, action Action) ([]byte, error)

// Dispatcher routes each action to the handler registered for its target
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]ActionHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]ActionHandler),
	}
}

// Register sets the handler for a target, replacing any previous one
func (d *Dispatcher) Register(target string, handler ActionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[target] = handler
}

func (d *Dispatcher) handler(target string) (ActionHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[target]
	return h, ok
}

// Execute runs actions in order. A failing action aborts with an
// *ActionFailedError unless its bit is set in allowFailureMap.
func (d *Dispatcher) Execute(
	ctx context.Context,
	_ uint64,
	actions []Action,
	allowFailureMap *uint256.Int,
) (*ExecutionResult, error) {
	if len(actions) > MaxActions {
		return nil, fmt.Errorf("%w: %d", ErrTooManyActions, len(actions))
	}
	if allowFailureMap == nil {
		allowFailureMap = new(uint256.Int)
	}
	ret := &ExecutionResult{
		FailureMap: new(uint256.Int),
		Results:    make([][]byte, len(actions)),
	}
	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			result []byte
			err    error
		)
		if h, ok := d.handler(action.To); ok {
			result, err = h(ctx, action)
		} else {
			err = fmt.Errorf("%w: %s", ErrUnknownTarget, action.To)
		}
		if err != nil {
			bit := new(uint256.Int).Lsh(uint256.NewInt(1), uint(i)) //nolint:gosec
			if new(uint256.Int).And(allowFailureMap, bit).IsZero() {
				return nil, &ActionFailedError{Index: i, Err: err}
			}
			ret.FailureMap.Or(ret.FailureMap, bit)
			continue
		}
		ret.Results[i] = result
	}
	return ret, nil
}
