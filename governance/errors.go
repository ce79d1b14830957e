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
)

var (
	ErrDateOutOfBounds            = errors.New("date out of bounds")
	ErrMinDurationOutOfBounds     = errors.New("min duration out of bounds")
	ErrRatioOutOfBounds           = errors.New("ratio out of bounds")
	ErrNoVotingPower              = errors.New("no voting power")
	ErrProposalNotFound           = errors.New("proposal not found")
	ErrDateOverflow               = errors.New("date arithmetic overflow")
	ErrTooManyActions             = errors.New("too many actions")
	ErrProposalCreationForbidden  = errors.New("proposal creation forbidden")
	ErrProposalVetoingForbidden   = errors.New("proposal vetoing forbidden")
	ErrProposalExecutionForbidden = errors.New("proposal execution forbidden")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrActionFailed               = errors.New("action failed")
)

type DateOutOfBoundsError struct {
	Limit  uint64
	Actual uint64
}

func (e *DateOutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"date out of bounds: limit %d, actual %d",
		e.Limit,
		e.Actual,
	)
}

func (e *DateOutOfBoundsError) Is(target error) bool {
	return target == ErrDateOutOfBounds
}

type MinDurationOutOfBoundsError struct {
	Limit  uint64
	Actual uint64
}

func (e *MinDurationOutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"min duration out of bounds: limit %d, actual %d",
		e.Limit,
		e.Actual,
	)
}

func (e *MinDurationOutOfBoundsError) Is(target error) bool {
	return target == ErrMinDurationOutOfBounds
}

type RatioOutOfBoundsError struct {
	Limit  uint32
	Actual uint32
}

func (e *RatioOutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"ratio out of bounds: limit %d, actual %d",
		e.Limit,
		e.Actual,
	)
}

func (e *RatioOutOfBoundsError) Is(target error) bool {
	return target == ErrRatioOutOfBounds
}

type ProposalCreationForbiddenError struct {
	Sender string
}

func (e *ProposalCreationForbiddenError) Error() string {
	return fmt.Sprintf("proposal creation forbidden for %q", e.Sender)
}

func (e *ProposalCreationForbiddenError) Is(target error) bool {
	return target == ErrProposalCreationForbidden
}

type ProposalVetoingForbiddenError struct {
	Account    string
	ProposalID uint64
}

func (e *ProposalVetoingForbiddenError) Error() string {
	return fmt.Sprintf(
		"vetoing proposal %d forbidden for %q",
		e.ProposalID,
		e.Account,
	)
}

func (e *ProposalVetoingForbiddenError) Is(target error) bool {
	return target == ErrProposalVetoingForbidden
}

type ProposalExecutionForbiddenError struct {
	ProposalID uint64
}

func (e *ProposalExecutionForbiddenError) Error() string {
	return fmt.Sprintf("execution of proposal %d forbidden", e.ProposalID)
}

func (e *ProposalExecutionForbiddenError) Is(target error) bool {
	return target == ErrProposalExecutionForbidden
}

type UnauthorizedError struct {
	Account    string
	Permission Permission
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%q lacks permission %s", e.Account, e.Permission)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ActionFailedError reports the first action that failed without its bit
// set in the allow-failure map
type ActionFailedError struct {
	Err   error
	Index int
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %d failed: %v", e.Index, e.Err)
}

func (e *ActionFailedError) Is(target error) bool {
	return target == ErrActionFailed
}

func (e *ActionFailedError) Unwrap() error {
	return e.Err
}
