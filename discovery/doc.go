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

// Package discovery turns annotated Go source into route registrations.
//
// A struct type annotated with routing:controller becomes a group; each of
// its methods annotated with routing:route becomes a route in that group.
// Package-level functions may carry routing:route too and are registered
// directly under the unit.
//
//	//routing:controller /users -id=users -middleware=auth
//	type UserController struct{ repo *Repo }
//
//	//routing:route GET /{id} -where=id:int -title="Show user"
//	func (c *UserController) Show(ctx context.Context, p route.Params) (any, error)
//
//	//routing:route GET,HEAD /health
//	func Health(route.Params) any
//
// Pointer receivers produce [route.Bound] references to an instance named
// after the type (lower-cased first letter, or -instance); value receivers
// produce [route.Static] references; functions produce [route.NamedFunc]
// references qualified by package name. The invoker must have matching
// registrations.
//
// Each [File] is a routing.Source: its bytes key the route cache, and the
// file is parsed only when the cache has no entry for its current content.
//
// Supported flags: -id, -parent, -methods, -domains, -suffixes,
// -middleware, -sort, -where=name:fragment (or a constraint name such as
// int, uuid or slug), -meta=key:value, -title, -description, -hidden and,
// on controllers, -instance. Flags that take lists are comma-separated.
package discovery
