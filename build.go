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
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/compiler"
	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// entry is one access path of a route. A route with several paths owns
// several entries sharing one pipeline.
type entry struct {
	route    *route.Route
	template string
	pattern  *compiler.Pattern // nil for static templates
	run      pipeline.Next
	shadowed bool // replaced in every index it was inserted into
}

// compiled is the immutable result of Build.
type compiled struct {
	table         *compiler.Table
	entries       []*entry
	misses        map[string]pipeline.Next
	caseSensitive bool
}

// Build compiles every registration into the dispatch tables.
//
// Build runs deferred group closures, orders siblings by descending sort,
// resolves parent ids, resolves every handler and middleware reference
// through the invoker and composes their pipelines. All fatal problems are
// reported together in a *BuildError. Duplicate paths are not fatal: the
// last registration wins and a warning is logged.
//
// Build must complete before the router serves traffic. It can succeed only
// once.
func (r *Router) Build(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Built() {
		return ErrAlreadyBuilt
	}

	b := &build{
		r:      r,
		ctx:    ctx,
		table:  compiler.NewTable(),
		groups:  make(map[string][]*route.Group),
		dropped: make(map[route.Node]struct{}),
	}
	if err := b.loadSources(); err != nil {
		return err
	}

	for _, g := range r.detached {
		b.pending = append(b.pending, g)
	}
	b.walk(r.root)
	b.finalize()
	b.index(r.root)
	misses := b.compileMisses()

	if len(b.errs) > 0 {
		return &BuildError{Errs: b.errs}
	}

	b.table.Freeze()
	c := &compiled{
		table:         b.table,
		entries:       b.entries,
		misses:        misses,
		caseSensitive: r.caseSensitive,
	}
	r.compiled.Store(c)

	stats := b.table.Stats()
	r.logger.InfoContext(ctx, "routes compiled",
		"entries", len(b.entries),
		"static", stats.Static,
		"dynamic", stats.Dynamic,
		"buckets", len(stats.Buckets),
		"miss_routes", len(misses),
	)

	return nil
}

type build struct {
	r       *Router
	ctx     context.Context
	table   *compiler.Table
	entries []*entry
	groups  map[string][]*route.Group
	pending []route.Node
	dropped map[route.Node]struct{} // duplicate ids, never indexed
	errs    []error
}

// loadSources registers every source under the root, from the cache when
// the stored content hash still matches.
func (b *build) loadSources() error {
	r := b.r
	for _, src := range r.sources {
		unit := src.Identity()
		content, err := src.Content()
		if err != nil {
			return fmt.Errorf("source %s: %w", unit, err)
		}
		hash := cache.ContentHash(content)

		if r.cache != nil {
			decl, err := r.cache.Load(b.ctx, r.cacheScope, unit, hash)
			if err == nil {
				r.builder.Declare(decl)
				r.emit(DiagCacheHit, "routes restored from cache", map[string]any{
					"scope":  r.cacheScope,
					"unit":   unit,
					"routes": decl.Count(),
				})
				continue
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				r.logger.WarnContext(b.ctx, "route cache unavailable, rebuilding", "unit", unit, "error", err)
			}
		}

		g := r.builder.GroupPaths(nil, nil)
		g.SetID("source:" + unit)
		if err := src.Register(route.NewBuilder(g)); err != nil {
			return fmt.Errorf("source %s: %w", unit, err)
		}

		if r.cache == nil {
			continue
		}
		err = r.cache.Save(b.ctx, r.cacheScope, unit, hash, g)
		switch {
		case errors.Is(err, cache.ErrSnapshotUnsupported):
			r.logger.DebugContext(b.ctx, "source not cacheable", "unit", unit, "error", err)
		case err != nil:
			r.logger.WarnContext(b.ctx, "route cache write failed", "unit", unit, "error", err)
		default:
			r.emit(DiagCacheRebuild, "routes rebuilt and cached", map[string]any{
				"scope": r.cacheScope,
				"unit":  unit,
				"hash":  fmt.Sprintf("%016x", hash),
			})
		}
	}

	return nil
}

// walk expands g, defers children that name their parent by id, sorts the
// rest and visits child groups depth-first. Routes are registered later by
// index.
func (b *build) walk(g *route.Group) {
	g.Expand()
	for _, child := range g.Children() {
		if child.Def().ParentID() != "" {
			g.Remove(child)
			b.pending = append(b.pending, child)
		}
	}
	g.SortChildren()

	seen := make(map[string]struct{}, len(g.Children()))
	for _, child := range g.Children() {
		id := child.Def().ID()
		if _, dup := seen[id]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %q under %v", ErrDuplicateID, id, g.Paths()))
			b.dropped[child] = struct{}{}
			continue
		}
		seen[id] = struct{}{}
		b.visit(child)
	}
	g.Seal()
}

func (b *build) visit(n route.Node) {
	if g, ok := n.(*route.Group); ok {
		b.groups[g.ID()] = append(b.groups[g.ID()], g)
		b.walk(g)
	}
}

// index registers every route depth-first in sibling order. It runs after
// finalize so that attached definitions compete by sort with the siblings
// declared in place.
func (b *build) index(g *route.Group) {
	for _, child := range g.Children() {
		if _, skip := b.dropped[child]; skip {
			continue
		}
		switch node := child.(type) {
		case *route.Group:
			b.index(node)
		case *route.Route:
			b.register(node)
		}
	}
}

// finalize attaches deferred definitions to their parents. A definition may
// name a group that is itself deferred, so attachment repeats until no
// progress is made.
func (b *build) finalize() {
	adopters := make(map[*route.Group]struct{})
	defer func() {
		for g := range adopters {
			g.SortChildren()
		}
	}()

	for len(b.pending) > 0 {
		var next []route.Node
		progressed := false
		for _, n := range b.pending {
			pid := n.Def().ParentID()
			targets := b.groups[pid]
			switch len(targets) {
			case 0:
				next = append(next, n)
				continue
			case 1:
			default:
				b.errs = append(b.errs, fmt.Errorf("%w: %q names %d groups", ErrAmbiguousParent, pid, len(targets)))
				progressed = true
				continue
			}

			parent := targets[0]
			id := n.Def().ID()
			if slices.ContainsFunc(parent.Children(), func(c route.Node) bool { return c.Def().ID() == id }) {
				b.errs = append(b.errs, fmt.Errorf("%w: %q under %v", ErrDuplicateID, id, parent.Paths()))
				progressed = true
				continue
			}
			parent.Adopt(n)
			adopters[parent] = struct{}{}
			b.visit(n)
			progressed = true
		}
		b.pending = next
		if !progressed {
			for _, n := range next {
				b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrUnresolvedParent, n.Def().ParentID()))
			}
			return
		}
	}
}

// register seals rt, composes its pipeline and inserts one entry per path.
func (b *build) register(rt *route.Route) {
	r := b.r
	rt.Seal()

	run, err := pipeline.Build(r.invoker, rt.Middlewares(), rt.Handler())
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("route %s %v: %w", rt.ID(), rt.Paths(), err))
		return
	}

	for _, path := range rt.Paths() {
		tmpl, err := compiler.Parse(path)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("route %s: %w", rt.ID(), err))
			continue
		}

		slot := len(b.entries)
		e := &entry{route: rt, template: path, run: run}

		if tmpl.IsStatic() {
			b.entries = append(b.entries, e)
			if c, replaced := b.table.AddStatic(path, slot); replaced {
				b.entries[c.Previous].shadowed = true
				b.warnConflict(DiagDuplicateStatic, "static path registered twice, last registration wins", c)
			}
			continue
		}

		var opts []compiler.CompileOption
		if !r.caseSensitive {
			opts = append(opts, compiler.WithFoldedLiterals())
		}
		p, err := compiler.Compile(tmpl, rt.Patterns(), r.defaultPattern, opts...)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("route %s: %w", rt.ID(), err))
			continue
		}
		e.pattern = p
		b.entries = append(b.entries, e)

		if n := len(p.Vars); n > r.paramWarnThreshold {
			r.logger.WarnContext(b.ctx, "route has many variables", "path", path, "param_count", n)
			r.emit(DiagHighParamCount, fmt.Sprintf("route has more than %d variables", r.paramWarnThreshold), map[string]any{
				"path":           path,
				"param_count":    n,
				"recommendation": "consider moving optional data to the parameter bag",
			})
		}

		conflicts := b.table.AddDynamic(p, slot)
		for _, c := range conflicts {
			b.warnConflict(DiagDynamicCollision, "dynamic pattern registered twice in bucket, last registration wins", c)
		}
		// equal sources span equal buckets, so one conflict means full replacement
		if len(conflicts) > 0 {
			b.entries[conflicts[0].Previous].shadowed = true
		}
	}
}

func (b *build) warnConflict(kind DiagnosticKind, msg string, c compiler.Conflict) {
	prev := b.entries[c.Previous]
	cur := b.entries[c.Current]
	b.r.logger.WarnContext(b.ctx, msg,
		"path", c.Path,
		"bucket", c.Bucket,
		"previous_route", prev.route.ID(),
		"route", cur.route.ID(),
	)
	b.r.emit(kind, msg, map[string]any{
		"path":           c.Path,
		"bucket":         c.Bucket,
		"previous_route": prev.route.ID(),
		"route":          cur.route.ID(),
	})
}

func (b *build) compileMisses() map[string]pipeline.Next {
	misses := make(map[string]pipeline.Next)
	for _, m := range b.r.misses {
		run, err := b.r.invoker.Handler(m.handler)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("miss route %s: %w", m.handler, err))
			continue
		}
		for _, method := range m.methods {
			misses[strings.ToUpper(strings.TrimSpace(method))] = run
		}
	}

	return misses
}
