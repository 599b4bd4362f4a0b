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

package service

import "errors"

var (
	errInvalidThreshold    = errors.New("reachability.failure_threshold must be at least 1")
	errNegativeDuration    = errors.New("durations must not be negative")
	errNegativeConcurrency = errors.New("max_concurrency must not be negative")
	errInvalidPort         = errors.New("port must be between 1 and 65535")
	errUnsupportedMethod   = errors.New("unsupported reachability method")
	errEventsNeedNATS      = errors.New("events require a nats block")
	errInventoryNeedsNATS  = errors.New("inventory requires a nats block")
	errInvalidEndpoint     = errors.New("invalid seed endpoint")
)
