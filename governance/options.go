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
	"log/slog"

	"github.com/blinklabs-io/vetogov/event"
	"github.com/prometheus/client_golang/prometheus"
)

type PluginOptionFunc func(*Plugin)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PluginOptionFunc {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) PluginOptionFunc {
	return func(p *Plugin) {
		p.promRegistry = registry
	}
}

// WithEventBus specifies the bus that receives governance events
func WithEventBus(eventBus *event.EventBus) PluginOptionFunc {
	return func(p *Plugin) {
		p.eventBus = eventBus
	}
}

// WithClock specifies the source of the current time and block
func WithClock(clock Clock) PluginOptionFunc {
	return func(p *Plugin) {
		p.clock = clock
	}
}

// WithSettings specifies the settings used when the store has none saved
func WithSettings(settings Settings) PluginOptionFunc {
	return func(p *Plugin) {
		p.settings = settings.Clone()
	}
}

// WithAuthorizer specifies the permission gate for settings updates and
// execution. The default is AllowAll.
func WithAuthorizer(authorizer Authorizer) PluginOptionFunc {
	return func(p *Plugin) {
		p.authorizer = authorizer
	}
}

// WithExecutor specifies what runs a proposal's actions on execution
func WithExecutor(executor ActionExecutor) PluginOptionFunc {
	return func(p *Plugin) {
		p.executor = executor
	}
}

// WithVetoEligibility replaces the default SnapshotPowerEligibility policy
func WithVetoEligibility(eligibility VetoEligibility) PluginOptionFunc {
	return func(p *Plugin) {
		p.eligibility = eligibility
	}
}
