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

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNotSymbolic is returned by [Declare] when a handler or middleware holds
// a live function value and so cannot be stored.
var ErrNotSymbolic = errors.New("route: handler reference is not symbolic")

// Declaration is the declared (not effective) state of a node and its
// subtree. It is what a route cache stores: replaying it through a Builder
// recomputes inheritance against whatever parent it is replayed under.
type Declaration struct {
	Kind        NodeKind          `msgpack:"kind"`
	ID          string            `msgpack:"id,omitempty"`
	ParentID    string            `msgpack:"parent_id,omitempty"`
	Paths       []string          `msgpack:"paths"`
	Methods     []string          `msgpack:"methods"`
	Domains     []string          `msgpack:"domains"`
	Suffixes    []string          `msgpack:"suffixes"`
	Patterns    map[string]string `msgpack:"patterns,omitempty"`
	Middlewares []HandlerRef      `msgpack:"middlewares,omitempty"`
	Meta        map[string]any    `msgpack:"meta,omitempty"`
	Sort        int               `msgpack:"sort,omitempty"`
	Hidden      bool              `msgpack:"hidden,omitempty"`
	Title       string            `msgpack:"title,omitempty"`
	Description string            `msgpack:"description,omitempty"`
	Handler     HandlerRef        `msgpack:"handler,omitempty"`
	Children    []Declaration     `msgpack:"children,omitempty"`
}

// Declare captures n and its expanded subtree. Deferred groups are expanded
// first.
func Declare(n Node) (Declaration, error) {
	d := n.Def()
	out := Declaration{
		Kind:        d.kind,
		ID:          d.id,
		ParentID:    d.parentID,
		Paths:       slices.Clone(d.paths),
		Methods:     slices.Clone(d.methods),
		Domains:     slices.Clone(d.domains),
		Suffixes:    slices.Clone(d.suffixes),
		Patterns:    maps.Clone(d.patterns),
		Middlewares: slices.Clone(d.middlewares),
		Meta:        maps.Clone(d.meta),
		Sort:        d.sort,
		Hidden:      d.hidden,
		Title:       d.title,
		Description: d.description,
	}
	for _, mw := range d.middlewares {
		if !mw.Symbolic() {
			return Declaration{}, fmt.Errorf("%w: middleware %s", ErrNotSymbolic, mw)
		}
	}

	switch node := n.(type) {
	case *Route:
		if !node.handler.Symbolic() {
			return Declaration{}, fmt.Errorf("%w: handler %s", ErrNotSymbolic, node.handler)
		}
		out.Handler = node.handler
	case *Group:
		node.Expand()
		for _, child := range node.children {
			cd, err := Declare(child)
			if err != nil {
				return Declaration{}, err
			}
			out.Children = append(out.Children, cd)
		}
	}

	return out, nil
}

// Declare replays d under the builder's target and returns the new node.
func (b *Builder) Declare(d Declaration) Node {
	switch d.Kind {
	case NodeRoute:
		r := newRoute(d.Paths, d.Handler, nil)
		d.apply(&r.Definition)
		b.target.Adopt(r)
		return r
	default:
		children := d.Children
		g := newGroup(d.Paths, func(sub *Builder) {
			for _, c := range children {
				sub.Declare(c)
			}
		})
		d.apply(&g.Definition)
		b.target.Adopt(g)
		return g
	}
}

func (d Declaration) apply(def *Definition) {
	def.id = d.ID
	def.parentID = d.ParentID
	def.methods = slices.Clone(d.Methods)
	def.domains = slices.Clone(d.Domains)
	def.suffixes = slices.Clone(d.Suffixes)
	def.patterns = maps.Clone(d.Patterns)
	def.middlewares = slices.Clone(d.Middlewares)
	def.meta = maps.Clone(d.Meta)
	def.sort = d.Sort
	def.hidden = d.Hidden
	def.title = d.Title
	def.description = d.Description
}

// Count returns the number of routes in d's subtree.
func (d Declaration) Count() int {
	if d.Kind == NodeRoute {
		return 1
	}
	n := 0
	for _, c := range d.Children {
		n += c.Count()
	}

	return n
}
