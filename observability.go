// Copyright 2025 The Rivaas Authors
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

package routing

import "context"

// Outcome classifies how a dispatch ended.
type Outcome string

const (
	OutcomeMatched  Outcome = "matched"
	OutcomeMiss     Outcome = "miss"      // a miss route handled it
	OutcomeNotFound Outcome = "not_found" // nothing handled it
	OutcomeError    Outcome = "error"     // the pipeline returned an error
)

// Route patterns reported for dispatches that matched no route.
const (
	PatternMiss     = "_miss"
	PatternNotFound = "_not_found"
)

// DispatchInfo describes a finished dispatch.
type DispatchInfo struct {
	Method  string
	Path    string
	Domain  string
	Pattern string // matched template, or PatternMiss / PatternNotFound
	RouteID string
	Outcome Outcome
	Err     error
}

// ObservabilityRecorder receives dispatch lifecycle hooks.
//
// Lifecycle:
//  1. Router calls OnDispatchStart(ctx, method, path) and continues with the
//     returned context, whatever the state.
//  2. The route is resolved and its pipeline runs.
//  3. Router calls OnDispatchEnd(ctx, state, info) only if state != nil.
//
// Returning a nil state excludes the dispatch from observation.
// Implementations should use info.Pattern, not the raw path, for metric
// labels to keep cardinality bounded.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	OnDispatchStart(ctx context.Context, method, path string) (context.Context, any)
	OnDispatchEnd(ctx context.Context, state any, info DispatchInfo)
}
