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

// Package route defines the registration data model: routes, groups, the
// handler references they carry and the [Builder] used to declare them.
//
// Every declaration goes through a Builder, which is the explicit
// registration target. A group's builder closure does not run when the
// group is declared; it runs during the router's build walk with a Builder
// targeting that group, so the order in which groups are declared in source
// does not change the shape of the final tree.
//
//	b.Group("/api", func(api *route.Builder) {
//	    api.GET("/users/{id}", route.Func(showUser)).WhereInt("id")
//	    api.Group("/admin", func(admin *route.Builder) {
//	        admin.POST("/flush", route.Bound("cache", "Flush"))
//	    }).Use(route.NamedFunc("auth"))
//	}).SetSort(10)
//
// A child copies its parent's paths, methods, domains, suffixes, patterns
// and middleware at the moment it is attached. Later changes to the parent do
// not reach children that already exist.
package route
