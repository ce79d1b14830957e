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

import "sync"

type Permission string

const (
	UpdateSettingsPermission  Permission = "UPDATE_SETTINGS"
	ExecuteProposalPermission Permission = "EXECUTE_PROPOSAL"
)

// AnyAccount grants a permission to every caller when passed to
// StaticAuthorizer.Grant
const AnyAccount = "*"

// Authorizer decides whether an account holds a permission
type Authorizer interface {
	IsGranted(account string, permission Permission) bool
}

// AllowAll grants every permission to every account
type AllowAll struct{}

func (AllowAll) IsGranted(string, Permission) bool {
	return true
}

// StaticAuthorizer holds an explicit set of grants
type StaticAuthorizer struct {
	mu     sync.RWMutex
	grants map[Permission]map[string]struct{}
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{
		grants: make(map[Permission]map[string]struct{}),
	}
}

func (a *StaticAuthorizer) Grant(account string, permission Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.grants[permission]; !ok {
		a.grants[permission] = make(map[string]struct{})
	}
	a.grants[permission][account] = struct{}{}
}

func (a *StaticAuthorizer) Revoke(account string, permission Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grants[permission], account)
}

func (a *StaticAuthorizer) IsGranted(
	account string,
	permission Permission,
) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	accounts := a.grants[permission]
	if _, ok := accounts[AnyAccount]; ok {
		return true
	}
	_, ok := accounts[account]
	return ok
}
