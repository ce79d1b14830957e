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

// Package ratio provides fixed-point ratio arithmetic on 256-bit unsigned
// integers. Ratios are expressed in parts per RatioBase, so RatioBase
// represents 100%.
package ratio

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// RatioBase is the fixed-point scale of a ratio (10^6 == 100%)
const RatioBase uint32 = 1_000_000

var (
	ErrRatioOutOfBounds = errors.New("ratio out of bounds")
	ErrOverflow         = errors.New("ratio multiplication overflows 256 bits")
)

// OutOfBoundsError reports a ratio above RatioBase
type OutOfBoundsError struct {
	Limit  uint32
	Actual uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"ratio out of bounds: limit %d, actual %d",
		e.Limit,
		e.Actual,
	)
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrRatioOutOfBounds
}

var ratioBase = uint256.NewInt(uint64(RatioBase))

// ApplyRatioCeiled returns ceil(amount * ratio / RatioBase). The result is
// never rounded down, which lets callers express "more than X%" with a >=
// comparison against the returned threshold.
func ApplyRatioCeiled(amount *uint256.Int, r uint32) (*uint256.Int, error) {
	if r > RatioBase {
		return nil, &OutOfBoundsError{Limit: RatioBase, Actual: r}
	}
	if amount == nil {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(
		amount,
		uint256.NewInt(uint64(r)),
	)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %d", ErrOverflow, amount.Dec(), r)
	}
	quotient, remainder := new(uint256.Int), new(uint256.Int)
	quotient.DivMod(product, ratioBase, remainder)
	if !remainder.IsZero() {
		// quotient <= product / RatioBase, so this cannot wrap
		quotient.AddUint64(quotient, 1)
	}
	return quotient, nil
}

// ApplyRatioFloored returns floor(amount * ratio / RatioBase)
func ApplyRatioFloored(amount *uint256.Int, r uint32) (*uint256.Int, error) {
	if r > RatioBase {
		return nil, &OutOfBoundsError{Limit: RatioBase, Actual: r}
	}
	if amount == nil {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(
		amount,
		uint256.NewInt(uint64(r)),
	)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %d", ErrOverflow, amount.Dec(), r)
	}
	return product.Div(product, ratioBase), nil
}

// FromPercent converts a whole percentage into parts per RatioBase.
// Percentages above 100 return ErrRatioOutOfBounds.
func FromPercent(pct uint32) (uint32, error) {
	if pct > 100 {
		return 0, fmt.Errorf("%w: %d%%", ErrRatioOutOfBounds, pct)
	}
	return pct * (RatioBase / 100), nil
}
