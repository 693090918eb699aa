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
	"maps"
	"slices"
	"sort"
	"strings"
)

// Group is a definition whose paths prefix every descendant and whose
// constraints are inherited by them.
type Group struct {
	Definition
	children []Node
	build    func(*Builder)
	expanded bool
}

// NewRoot creates the root group of a registration tree.
func NewRoot(caseSensitive bool) *Group {
	g := &Group{Definition: newDefinition(NodeGroup, []string{"/"})}
	g.caseSensitive = caseSensitive
	g.expanded = true

	return g
}

func newGroup(prefixes []string, build func(*Builder)) *Group {
	return &Group{
		Definition: newDefinition(NodeGroup, prefixes),
		build:      build,
	}
}

// NewDetached creates a group that is not attached anywhere yet. It is used
// for registrations that name their parent by id.
func NewDetached(parentID string, caseSensitive bool, build func(*Builder)) *Group {
	g := newGroup(nil, build)
	g.parentID = parentID
	g.caseSensitive = caseSensitive

	return g
}

// snapshot returns the constraints a child attached now inherits.
func (g *Group) snapshot() inheritance {
	var patterns map[string]string
	if p := g.Patterns(); len(p) > 0 {
		patterns = maps.Clone(p)
	}

	return inheritance{
		prefixes:    slices.Clone(g.Paths()),
		methods:     declaredOrNil(g.Methods()),
		domains:     declaredOrNil(g.Domains()),
		suffixes:    declaredOrNil(g.Suffixes()),
		patterns:    patterns,
		middlewares: slices.Clone(g.Middlewares()),
	}
}

func declaredOrNil(values []string) []string {
	if len(values) == 1 && values[0] == Any {
		return nil
	}

	return slices.Clone(values)
}

// Children returns the attached children in their current order.
func (g *Group) Children() []Node {
	return slices.Clone(g.children)
}

// Adopt attaches n as the last child of g, replacing any inherited snapshot
// n held before. When n is a group whose children already exist, their
// snapshots are retaken so they see n's new position.
func (g *Group) Adopt(n Node) {
	n.Def().attach(g)
	g.children = append(g.children, n)
	if sub, ok := n.(*Group); ok {
		sub.rebase()
	}
}

func (g *Group) rebase() {
	for _, child := range g.children {
		child.Def().attach(g)
		if sub, ok := child.(*Group); ok {
			sub.rebase()
		}
	}
}

// Remove detaches n from g. It reports whether n was a child.
func (g *Group) Remove(n Node) bool {
	i := slices.Index(g.children, n)
	if i < 0 {
		return false
	}
	g.children = slices.Delete(g.children, i, i+1)
	n.Def().parent = nil

	return true
}

// Deferred reports whether the builder closure has not run yet.
func (g *Group) Deferred() bool {
	return !g.expanded && g.build != nil
}

// Expand runs the builder closure once with a Builder targeting g.
// It reports whether the closure ran.
func (g *Group) Expand() bool {
	if g.expanded {
		return false
	}
	g.expanded = true
	if g.build == nil {
		return false
	}
	g.build(NewBuilder(g))

	return true
}

// ExpandAll expands g and every descendant group.
func (g *Group) ExpandAll() {
	g.Expand()
	for _, child := range g.children {
		if sub, ok := child.(*Group); ok {
			sub.ExpandAll()
		}
	}
}

// SortChildren orders children by descending priority, keeping
// declaration order between equal priorities.
func (g *Group) SortChildren() {
	sort.SliceStable(g.children, func(i, j int) bool {
		return g.children[i].Def().Sort() > g.children[j].Def().Sort()
	})
}

// Walk visits g's descendants depth-first in child order.
func (g *Group) Walk(fn func(Node) bool) {
	for _, child := range g.children {
		if !fn(child) {
			continue
		}
		if sub, ok := child.(*Group); ok {
			sub.Walk(fn)
		}
	}
}

func upper(s string) string {
	return strings.ToUpper(s)
}
