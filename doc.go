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

// Package routing resolves a (path, method, domain, suffix) tuple to one
// handler and runs it behind its middleware chain.
//
// Routes are declared during a single-threaded bootstrap phase, compiled
// once by [Router.Build], and then dispatched concurrently without locks.
//
// # Key Features
//
//   - Static routes matched by exact lookup, dynamic routes by anchored
//     regular expressions bucketed by segment count
//   - Optional trailing variables: /archive/{year}/{month?}
//   - Nested groups whose prefixes, methods, domains, suffixes, patterns and
//     middleware are inherited by every descendant
//   - Deferred group closures, so declaration order never changes the tree
//   - Cross-module attachment by parent id, resolved in a finalize pass
//   - Miss routes per method, or for every method with "*"
//   - A persistent route cache keyed by the content hash of each source
//
// # Dispatch
//
// The inbound path is split at its first dot into match path and suffix and
// normalized. A static hit is selected directly; otherwise the dynamic bucket
// for the path's segment count is scanned in order and the first match wins.
// Siblings are ordered by descending sort priority before registration, so a
// higher priority route shadows a lower one that matches the same paths.
// Method, domain and suffix constraints are then checked. Any failure,
// including a constraint mismatch, resolves to the miss route for the method
// or to [ErrRouteNotFound].
//
// # Quick Start
//
//	r := routing.MustNew()
//	r.GET("/", route.Func(home))
//	r.Group("/api", func(api *route.Builder) {
//	    api.GET("/users/{id}", route.Func(showUser)).WhereInt("id")
//	}).Use(route.Func(auth))
//	r.Miss(route.Func(notFound))
//
//	if err := r.Build(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	out, err := r.Dispatch(ctx, "/api/users/42", "GET", "example.com", nil, nil)
package routing
