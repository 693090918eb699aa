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

import (
	"log/slog"

	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/pipeline"
)

// WithLogger sets the logger for build warnings and cache activity.
// The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDiagnostics sets a diagnostic handler for the router.
//
// Example with logging:
//
//	handler := routing.DiagnosticHandlerFunc(func(e routing.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := routing.MustNew(routing.WithDiagnostics(handler))
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = handler
	}
}

// WithCaseSensitive makes literal path segments match case-sensitively.
// By default both templates and request paths are folded to lower case;
// captured variable values keep their original case either way.
func WithCaseSensitive(enabled bool) Option {
	return func(r *Router) {
		r.caseSensitive = enabled
	}
}

// WithDefaultPattern sets the fragment used for variables without a
// constraint. The default is [^/]+.
func WithDefaultPattern(fragment string) Option {
	return func(r *Router) {
		r.defaultPattern = fragment
	}
}

// WithObservability installs dispatch lifecycle hooks.
func WithObservability(recorder ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = recorder
	}
}

// WithInvoker sets the collaborator that turns handler references into
// callables. The default is an empty [invoke.Registry], which only resolves
// live functions.
func WithInvoker(inv pipeline.Invoker) Option {
	return func(r *Router) {
		if inv != nil {
			r.invoker = inv
		}
	}
}

// WithRouteCache stores the subtree of every loaded [Source] in c under
// scope, and restores it on later builds while the source is unchanged.
//
// Example:
//
//	store := cache.NewFileStore(".cache/routes")
//	r := routing.MustNew(routing.WithRouteCache(cache.New(store), "api"))
func WithRouteCache(c *cache.Cache, scope string) Option {
	return func(r *Router) {
		r.cache = c
		r.cacheScope = scope
	}
}

// WithParamCountWarning sets the variable count above which a route emits
// [DiagHighParamCount]. The default is 8.
func WithParamCountWarning(n int) Option {
	return func(r *Router) {
		r.paramWarnThreshold = n
	}
}
