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

package route

import "net/http"

// Builder is the registration context. Every declaration made through a
// Builder is attached to its target group at the moment of the call.
type Builder struct {
	target *Group
}

// NewBuilder returns a Builder that attaches declarations to target.
func NewBuilder(target *Group) *Builder {
	return &Builder{target: target}
}

// Target returns the group declarations are attached to.
func (b *Builder) Target() *Group {
	return b.target
}

// Add declares a route reachable at every path in paths. An empty methods
// list inherits the target's methods.
func (b *Builder) Add(paths []string, handler HandlerRef, methods ...string) *Route {
	r := newRoute(paths, handler, methods)
	b.target.Adopt(r)

	return r
}

// Handle declares a route for a single method and path.
func (b *Builder) Handle(method, path string, handler HandlerRef) *Route {
	return b.Add([]string{path}, handler, method)
}

// Any declares a route for every method.
func (b *Builder) Any(path string, handler HandlerRef) *Route {
	return b.Add([]string{path}, handler, Any)
}

// GET declares a GET route.
func (b *Builder) GET(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodGet, path, handler)
}

// POST declares a POST route.
func (b *Builder) POST(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodPost, path, handler)
}

// PUT declares a PUT route.
func (b *Builder) PUT(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodPut, path, handler)
}

// PATCH declares a PATCH route.
func (b *Builder) PATCH(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodPatch, path, handler)
}

// DELETE declares a DELETE route.
func (b *Builder) DELETE(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodDelete, path, handler)
}

// OPTIONS declares an OPTIONS route.
func (b *Builder) OPTIONS(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodOptions, path, handler)
}

// HEAD declares a HEAD route.
func (b *Builder) HEAD(path string, handler HandlerRef) *Route {
	return b.Handle(http.MethodHead, path, handler)
}

// Group declares a group under prefix. fn runs later, during the build
// walk, with a Builder targeting the new group; settings applied to the
// returned group before then are visible to every child fn declares.
func (b *Builder) Group(prefix string, fn func(*Builder)) *Group {
	return b.GroupPaths([]string{prefix}, fn)
}

// GroupPaths declares a group with several alternative prefixes.
func (b *Builder) GroupPaths(prefixes []string, fn func(*Builder)) *Group {
	g := newGroup(prefixes, fn)
	b.target.Adopt(g)

	return g
}
