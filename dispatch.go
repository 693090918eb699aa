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
	"net"
	"strings"

	"rivaas.dev/routing/compiler"
	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// Match is a resolved route.
type Match struct {
	Route    *route.Route
	Template string            // the access path that matched
	Captures map[string]string // empty for static matches
	Suffix   string

	entry *entry
}

// Static reports whether the match came from the static index.
func (m *Match) Static() bool {
	return m.entry.pattern == nil
}

// CaptureFunc observes a match before its pipeline runs.
type CaptureFunc func(m *Match)

// Resolve finds the route for path, method and domain without running it.
// It returns a *NotFoundError when nothing resolves; miss routes are not
// consulted.
func (r *Router) Resolve(path, method, domain string) (*Match, error) {
	c := r.compiled.Load()
	if c == nil {
		return nil, ErrNotBuilt
	}

	return c.resolve(path, method, domain)
}

func (c *compiled) resolve(path, method, domain string) (*Match, error) {
	raw, suffix := compiler.SplitSuffix(path)
	original := compiler.Normalize(raw, true)
	folded := original
	if !c.caseSensitive {
		folded = strings.ToLower(original)
	}

	var captures map[string]string
	slot, ok := c.table.LookupStatic(folded)
	if !ok {
		slot, captures, ok = c.table.MatchDynamic(original)
	}
	if !ok {
		return nil, &NotFoundError{Method: method, Path: path, Domain: domain, Suffix: suffix}
	}

	e := c.entries[slot]
	if !e.route.Accepts(method, hostOnly(domain), suffix) {
		return nil, &NotFoundError{Method: method, Path: path, Domain: domain, Suffix: suffix}
	}
	if captures == nil {
		captures = map[string]string{}
	}

	return &Match{
		Route:    e.route,
		Template: e.template,
		Captures: captures,
		Suffix:   suffix,
		entry:    e,
	}, nil
}

func (c *compiled) miss(method string) (pipeline.Next, bool) {
	if run, ok := c.misses[strings.ToUpper(method)]; ok {
		return run, true
	}
	run, ok := c.misses[route.Any]

	return run, ok
}

// Dispatch resolves path and runs the matched pipeline.
//
// Captured variables are merged into params, which is allocated when nil,
// and onCapture, when set, observes the match before the pipeline runs.
// When nothing resolves, the miss route for method, or else for "*", runs
// with an empty parameter bag. Without one, a *NotFoundError matching
// ErrRouteNotFound is returned.
//
// Dispatch imposes no deadline; callers enforce cancellation through ctx.
func (r *Router) Dispatch(ctx context.Context, path, method, domain string, params route.Params, onCapture CaptureFunc) (any, error) {
	c := r.compiled.Load()
	if c == nil {
		return nil, ErrNotBuilt
	}

	var state any
	if r.observability != nil {
		ctx, state = r.observability.OnDispatchStart(ctx, method, path)
	}
	info := DispatchInfo{Method: method, Path: path, Domain: domain}

	m, err := c.resolve(path, method, domain)
	if err != nil {
		miss, ok := c.miss(method)
		if !ok {
			info.Pattern, info.Outcome, info.Err = PatternNotFound, OutcomeNotFound, err
			r.finish(ctx, state, info)
			return nil, err
		}
		out, err := miss(ctx, route.Params{})
		info.Pattern, info.Outcome, info.Err = PatternMiss, OutcomeMiss, err
		r.finish(ctx, state, info)
		return out, err
	}

	params = params.Merge(m.Captures)
	if onCapture != nil {
		onCapture(m)
	}

	out, err := m.entry.run(ctx, params)
	info.Pattern, info.RouteID, info.Outcome, info.Err = m.Template, m.Route.ID(), OutcomeMatched, err
	if err != nil {
		info.Outcome = OutcomeError
	}
	r.finish(ctx, state, info)

	return out, err
}

func (r *Router) finish(ctx context.Context, state any, info DispatchInfo) {
	if state != nil {
		r.observability.OnDispatchEnd(ctx, state, info)
	}
}

// hostOnly strips a port from domain.
func hostOnly(domain string) string {
	if !strings.Contains(domain, ":") {
		return domain
	}
	if host, _, err := net.SplitHostPort(domain); err == nil {
		return host
	}

	return domain
}
