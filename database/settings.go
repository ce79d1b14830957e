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
	"github.com/blinklabs-io/vetogov/database/models"
)

// GetGovernanceSettings returns the persisted settings, or nil if none have
// been stored yet
func (d *Database) GetGovernanceSettings(
	txn *Txn,
) (*models.GovernanceSettings, error) {
	var ret *models.GovernanceSettings
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetGovernanceSettings(txn.Metadata())
		return err
	})
	return ret, err
}

// SetGovernanceSettings replaces the persisted settings
func (d *Database) SetGovernanceSettings(
	settings *models.GovernanceSettings,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetGovernanceSettings(settings, txn.Metadata())
	})
}
