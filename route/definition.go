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
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"rivaas.dev/routing/compiler"
)

// Any is the wildcard entry for methods, domains and suffixes.
const Any = "*"

// NodeKind distinguishes routes from groups.
type NodeKind uint8

const (
	// NodeRoute is a leaf carrying a handler.
	NodeRoute NodeKind = iota + 1
	// NodeGroup holds child definitions.
	NodeGroup
)

// Node is implemented by [*Route] and [*Group].
type Node interface {
	Def() *Definition
}

// inheritance is the snapshot a child takes from its parent when attached.
type inheritance struct {
	prefixes    []string
	methods     []string
	domains     []string
	suffixes    []string
	patterns    map[string]string
	middlewares []HandlerRef
}

// sealed holds effective values computed once the build phase is over.
type sealed struct {
	id          string
	paths       []string
	methods     []string
	domains     []string
	suffixes    []string
	patterns    map[string]string
	middlewares []HandlerRef
	methodSet   map[string]struct{}
	domainSet   map[string]struct{}
	suffixSet   map[string]struct{}
}

// Definition is the state shared by routes and groups. Setters record the
// declared value; getters return the effective value, which combines the
// declared value with the snapshot inherited from the parent.
type Definition struct {
	kind        NodeKind
	id          string
	parentID    string
	paths       []string
	methods     []string
	domains     []string
	suffixes    []string
	patterns    map[string]string
	middlewares []HandlerRef
	meta        map[string]any
	sort        int
	hidden      bool
	title       string
	description string

	caseSensitive bool
	inherited     inheritance
	parent        *Group
	frozen        *sealed
}

func newDefinition(kind NodeKind, paths []string) Definition {
	return Definition{
		kind:  kind,
		paths: slices.Clone(paths),
	}
}

// Def returns d.
func (d *Definition) Def() *Definition {
	return d
}

// Kind returns whether d is a route or a group.
func (d *Definition) Kind() NodeKind {
	return d.kind
}

// Parent returns the group d is attached to, or nil.
func (d *Definition) Parent() *Group {
	return d.parent
}

// attach records parent and snapshots its effective constraints.
func (d *Definition) attach(parent *Group) {
	d.parent = parent
	d.caseSensitive = parent.caseSensitive
	d.inherited = parent.snapshot()
}

func (d *Definition) mustNotBeSealed() {
	if d.frozen != nil {
		panic(fmt.Sprintf("route: definition %q modified after build", d.ID()))
	}
}

// ID returns the explicit id, or a stable id derived from the access paths.
func (d *Definition) ID() string {
	if d.frozen != nil {
		return d.frozen.id
	}
	if d.id != "" {
		return d.id
	}

	key := strings.Join(d.Paths(), "|")
	if d.kind == NodeGroup {
		key = "group:" + key
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// ExplicitID returns the id set with SetID, or "".
func (d *Definition) ExplicitID() string {
	return d.id
}

// ParentID returns the id of an externally declared parent group, or "".
func (d *Definition) ParentID() string {
	return d.parentID
}

// DeclaredPaths returns the paths as declared, relative to the parent.
func (d *Definition) DeclaredPaths() []string {
	return slices.Clone(d.paths)
}

// Paths returns the normalized absolute access paths: the cross product of
// the inherited prefixes and the declared paths, in order, without duplicates.
func (d *Definition) Paths() []string {
	if d.frozen != nil {
		return d.frozen.paths
	}

	prefixes := d.inherited.prefixes
	if len(prefixes) == 0 {
		prefixes = []string{"/"}
	}
	own := d.paths
	if len(own) == 0 {
		own = []string{""}
	}

	out := make([]string, 0, len(prefixes)*len(own))
	for _, prefix := range prefixes {
		for _, p := range own {
			joined := compiler.Join(prefix, p, d.caseSensitive)
			if !slices.Contains(out, joined) {
				out = append(out, joined)
			}
		}
	}

	return out
}

// Methods returns the effective method set; [Any] when unrestricted.
func (d *Definition) Methods() []string {
	if d.frozen != nil {
		return d.frozen.methods
	}
	return orAny(pick(d.methods, d.inherited.methods))
}

// Domains returns the effective domain set; [Any] when unrestricted.
func (d *Definition) Domains() []string {
	if d.frozen != nil {
		return d.frozen.domains
	}
	return orAny(pick(d.domains, d.inherited.domains))
}

// Suffixes returns the effective suffix set; [Any] when unrestricted.
func (d *Definition) Suffixes() []string {
	if d.frozen != nil {
		return d.frozen.suffixes
	}
	return orAny(pick(d.suffixes, d.inherited.suffixes))
}

// Patterns returns the inherited patterns overlaid with the declared ones.
func (d *Definition) Patterns() map[string]string {
	if d.frozen != nil {
		return d.frozen.patterns
	}
	out := make(map[string]string, len(d.inherited.patterns)+len(d.patterns))
	maps.Copy(out, d.inherited.patterns)
	maps.Copy(out, d.patterns)

	return out
}

// Middlewares returns inherited middleware followed by the declared ones.
func (d *Definition) Middlewares() []HandlerRef {
	if d.frozen != nil {
		return d.frozen.middlewares
	}
	out := make([]HandlerRef, 0, len(d.inherited.middlewares)+len(d.middlewares))
	out = append(out, d.inherited.middlewares...)

	return append(out, d.middlewares...)
}

// Meta returns the value stored under key.
func (d *Definition) Meta(key string) (any, bool) {
	v, ok := d.meta[key]
	return v, ok
}

// MetaMap returns a copy of all metadata.
func (d *Definition) MetaMap() map[string]any {
	return maps.Clone(d.meta)
}

// Sort returns the priority; higher sorts first among siblings.
func (d *Definition) Sort() int { return d.sort }

// Hidden reports whether d is excluded from documentation.
func (d *Definition) Hidden() bool { return d.hidden }

// Title returns the documentation title.
func (d *Definition) Title() string { return d.title }

// Description returns the documentation description.
func (d *Definition) Description() string { return d.description }

// SetID overrides the derived id.
func (d *Definition) SetID(id string) *Definition {
	d.mustNotBeSealed()
	d.id = id
	return d
}

// SetParent declares that d belongs under the group with the given id,
// wherever that group is declared. The link is resolved after every group
// is known.
func (d *Definition) SetParent(id string) *Definition {
	d.mustNotBeSealed()
	d.parentID = id
	return d
}

// SetMethods replaces the inherited method set.
func (d *Definition) SetMethods(methods ...string) *Definition {
	d.mustNotBeSealed()
	d.methods = normalizeSet(methods, strings.ToUpper)
	return d
}

// SetDomains replaces the inherited domain set.
func (d *Definition) SetDomains(domains ...string) *Definition {
	d.mustNotBeSealed()
	d.domains = normalizeSet(domains, strings.ToLower)
	return d
}

// SetSuffixes replaces the inherited suffix set. A leading dot is ignored.
func (d *Definition) SetSuffixes(suffixes ...string) *Definition {
	d.mustNotBeSealed()
	d.suffixes = normalizeSet(suffixes, func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "."))
	})
	return d
}

// Where sets the regex fragment used for variable name.
func (d *Definition) Where(name, fragment string) *Definition {
	d.mustNotBeSealed()
	if d.patterns == nil {
		d.patterns = make(map[string]string)
	}
	d.patterns[name] = fragment
	return d
}

// Use appends middleware after the inherited middleware.
func (d *Definition) Use(middlewares ...HandlerRef) *Definition {
	d.mustNotBeSealed()
	d.middlewares = append(d.middlewares, middlewares...)
	return d
}

// SetMeta stores a metadata value.
func (d *Definition) SetMeta(key string, value any) *Definition {
	d.mustNotBeSealed()
	if d.meta == nil {
		d.meta = make(map[string]any)
	}
	d.meta[key] = value
	return d
}

// SetSort sets the priority among siblings.
func (d *Definition) SetSort(sort int) *Definition {
	d.mustNotBeSealed()
	d.sort = sort
	return d
}

// SetHidden excludes d from documentation.
func (d *Definition) SetHidden(hidden bool) *Definition {
	d.mustNotBeSealed()
	d.hidden = hidden
	return d
}

// SetTitle sets the documentation title.
func (d *Definition) SetTitle(title string) *Definition {
	d.mustNotBeSealed()
	d.title = title
	return d
}

// SetDescription sets the documentation description.
func (d *Definition) SetDescription(desc string) *Definition {
	d.mustNotBeSealed()
	d.description = desc
	return d
}

// Seal computes the effective values and makes d immutable.
// It is called by the router once the build walk has reached d.
func (d *Definition) Seal() {
	if d.frozen != nil {
		return
	}
	s := &sealed{
		id:          d.ID(),
		paths:       d.Paths(),
		methods:     d.Methods(),
		domains:     d.Domains(),
		suffixes:    d.Suffixes(),
		patterns:    d.Patterns(),
		middlewares: d.Middlewares(),
	}
	s.methodSet = toSet(s.methods)
	s.domainSet = toSet(s.domains)
	s.suffixSet = toSet(s.suffixes)
	d.frozen = s
}

// Sealed reports whether Seal has been called.
func (d *Definition) Sealed() bool {
	return d.frozen != nil
}

// Accepts reports whether method, domain and suffix satisfy the effective
// constraints. method is compared upper-case, domain and suffix lower-case.
func (d *Definition) Accepts(method, domain, suffix string) bool {
	if d.frozen == nil {
		d.Seal()
	}
	s := d.frozen

	return inSet(s.methodSet, strings.ToUpper(method)) &&
		inSet(s.domainSet, strings.ToLower(domain)) &&
		inSet(s.suffixSet, strings.ToLower(suffix))
}

func inSet(set map[string]struct{}, v string) bool {
	if _, ok := set[Any]; ok {
		return true
	}
	_, ok := set[v]

	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}

func pick(own, inherited []string) []string {
	if own != nil {
		return slices.Clone(own)
	}

	return slices.Clone(inherited)
}

func orAny(values []string) []string {
	if len(values) == 0 {
		return []string{Any}
	}

	return values
}

func normalizeSet(values []string, fold func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		v = fold(v)
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}

	return out
}
