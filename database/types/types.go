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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Uint256 stores a 256-bit unsigned integer as a decimal string column
//
//nolint:recvcheck
type Uint256 struct {
	uint256.Int
}

// NewUint256 copies v into a Uint256. A nil v yields zero.
func NewUint256(v *uint256.Int) Uint256 {
	var ret Uint256
	if v != nil {
		ret.Set(v)
	}
	return ret
}

// Big returns a copy of the underlying value
func (u Uint256) Big() *uint256.Int {
	return u.Clone()
}

func (u Uint256) Value() (driver.Value, error) {
	return u.Dec(), nil
}

func (u *Uint256) Scan(val any) error {
	var v string
	switch tmp := val.(type) {
	case string:
		v = tmp
	case []byte:
		v = string(tmp)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if err := u.SetFromDecimal(v); err != nil {
		return fmt.Errorf("failed to set uint256 value from string %q: %w", v, err)
	}
	return nil
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrTxnFinished is returned when a committed or rolled back transaction is reused
var ErrTxnFinished = errors.New("transaction already finished")
