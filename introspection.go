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
	"cmp"
	"slices"

	"rivaas.dev/routing/compiler"
)

// RouteInfo describes one access path of a compiled route.
type RouteInfo struct {
	ID          string            `json:"id" yaml:"id"`
	Path        string            `json:"path" yaml:"path"`
	Regex       string            `json:"regex,omitempty" yaml:"regex,omitempty"`
	Methods     []string          `json:"methods" yaml:"methods"`
	Domains     []string          `json:"domains" yaml:"domains"`
	Suffixes    []string          `json:"suffixes" yaml:"suffixes"`
	Handler     string            `json:"handler" yaml:"handler"`
	Middleware  []string          `json:"middleware,omitempty" yaml:"middleware,omitempty"`
	Constraints map[string]string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	IsStatic    bool              `json:"static" yaml:"static"`
	ParamCount  int               `json:"param_count" yaml:"param_count"`
	Sort        int               `json:"sort,omitempty" yaml:"sort,omitempty"`
	Hidden      bool              `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Shadowed    bool              `json:"shadowed,omitempty" yaml:"shadowed,omitempty"`
}

// Routes returns every compiled access path sorted by path, then id.
// Entries replaced by a later registration are included with Shadowed set.
// It returns nil before Build.
func (r *Router) Routes() []RouteInfo {
	c := r.compiled.Load()
	if c == nil {
		return nil
	}

	out := make([]RouteInfo, 0, len(c.entries))
	for _, e := range c.entries {
		rt := e.route
		info := RouteInfo{
			ID:       rt.ID(),
			Path:     e.template,
			Methods:  rt.Methods(),
			Domains:  rt.Domains(),
			Suffixes: rt.Suffixes(),
			Handler:  rt.Handler().String(),
			IsStatic: e.pattern == nil,
			Sort:     rt.Sort(),
			Hidden:   rt.Hidden(),
			Title:    rt.Title(),
			Shadowed: e.shadowed,
		}
		for _, mw := range rt.Middlewares() {
			info.Middleware = append(info.Middleware, mw.String())
		}
		if e.pattern != nil {
			info.Regex = e.pattern.Source
			info.ParamCount = len(e.pattern.Vars)
			for _, v := range e.pattern.Vars {
				if frag, ok := rt.Patterns()[v]; ok {
					if info.Constraints == nil {
						info.Constraints = make(map[string]string)
					}
					info.Constraints[v] = frag
				}
			}
		}
		out = append(out, info)
	}

	slices.SortStableFunc(out, func(a, b RouteInfo) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.ID, b.ID))
	})

	return out
}

// Stats returns index sizes, or the zero value before Build.
func (r *Router) Stats() compiler.Stats {
	c := r.compiled.Load()
	if c == nil {
		return compiler.Stats{}
	}

	return c.table.Stats()
}
