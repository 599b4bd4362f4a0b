/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package monitor tracks endpoint reachability and attachment mode and
// publishes a change event for every observed transition.
package monitor

//go:generate mockgen -destination=mock_monitor.go -package=monitor github.com/carverauto/devmon/pkg/monitor Clock,Ticker,TransitionListener

import (
	"time"

	"github.com/carverauto/devmon/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// TransitionListener is told about reachability transitions as soon as the
// reachability monitor applies them. Calls are synchronous and must not block.
type TransitionListener interface {
	OnEndpointBecameReachable(endpoint *models.Endpoint)
	OnEndpointBecameUnreachable(endpoint *models.Endpoint)
}
