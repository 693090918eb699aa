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

// DiagnosticEvent represents a build-time anomaly or cache event.
// Diagnostics are informational; the router behaves the same whether they
// are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// Registration diagnostics
	DiagDuplicateStatic  DiagnosticKind = "route_duplicate_static"
	DiagDynamicCollision DiagnosticKind = "route_dynamic_collision"
	DiagHighParamCount   DiagnosticKind = "route_param_count_high"

	// Cache diagnostics
	DiagCacheHit     DiagnosticKind = "route_cache_hit"
	DiagCacheRebuild DiagnosticKind = "route_cache_rebuild"
)

// DiagnosticHandler receives diagnostic events from the router.
//
// Example with metrics:
//
//	handler := routing.DiagnosticHandlerFunc(func(e routing.DiagnosticEvent) {
//	    counter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(e.Kind))))
//	})
//	r := routing.MustNew(routing.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}

func (r *Router) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics != nil {
		r.diagnostics.OnDiagnostic(DiagnosticEvent{
			Kind:    kind,
			Message: message,
			Fields:  fields,
		})
	}
}
