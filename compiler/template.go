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

package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coregx/coregex"
)

var (
	// ErrOptionalNotTrailing indicates an optional variable followed by a
	// required variable or a literal segment.
	ErrOptionalNotTrailing = errors.New("optional variables must be trailing")

	// ErrInvalidVariable indicates a malformed {name} token.
	ErrInvalidVariable = errors.New("invalid variable segment")

	// ErrDuplicateVariable indicates the same variable name used twice in one template.
	ErrDuplicateVariable = errors.New("duplicate variable name")

	// ErrInvalidPattern indicates a constraint fragment that does not compile.
	ErrInvalidPattern = errors.New("invalid variable pattern")
)

// DefaultFragment is the pattern used for variables without a constraint.
const DefaultFragment = `[^/]+`

// Segment is one slash separated part of a template.
type Segment struct {
	Literal  string // literal text; empty for variables
	Var      string // variable name; empty for literals
	Optional bool   // variable may be omitted
}

// IsVar reports whether the segment is a variable.
func (s Segment) IsVar() bool {
	return s.Var != ""
}

// Template is a parsed, normalized path template.
type Template struct {
	Path     string
	Segments []Segment
}

// Parse splits a normalized template into segments and validates the
// variable syntax.
func Parse(path string) (*Template, error) {
	t := &Template{Path: path}
	if path == "/" {
		return t, nil
	}

	seen := make(map[string]struct{})
	optionalSeen := false
	for seg := range strings.SplitSeq(strings.Trim(path, "/"), "/") {
		if !strings.HasPrefix(seg, "{") {
			if strings.ContainsAny(seg, "{}") {
				return nil, fmt.Errorf("%w: %q in %q", ErrInvalidVariable, seg, path)
			}
			if optionalSeen {
				return nil, fmt.Errorf("%w: literal %q in %q", ErrOptionalNotTrailing, seg, path)
			}
			t.Segments = append(t.Segments, Segment{Literal: seg})
			continue
		}

		name, optional, err := parseVariable(seg)
		if err != nil {
			return nil, fmt.Errorf("%w in %q", err, path)
		}
		if optionalSeen && !optional {
			return nil, fmt.Errorf("%w: {%s} in %q", ErrOptionalNotTrailing, name, path)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateVariable, name, path)
		}
		seen[name] = struct{}{}
		optionalSeen = optionalSeen || optional
		t.Segments = append(t.Segments, Segment{Var: name, Optional: optional})
	}

	return t, nil
}

func parseVariable(seg string) (string, bool, error) {
	if len(seg) < 3 || seg[len(seg)-1] != '}' {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidVariable, seg)
	}
	name := seg[1 : len(seg)-1]
	optional := strings.HasSuffix(name, "?")
	name = strings.TrimSuffix(name, "?")
	if !validName(name) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidVariable, seg)
	}

	return name, optional, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := range len(name) {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}

// IsStatic reports whether the template has no variables.
func (t *Template) IsStatic() bool {
	for _, s := range t.Segments {
		if s.IsVar() {
			return false
		}
	}

	return true
}

// Vars returns the variable names in declaration order.
func (t *Template) Vars() []string {
	var vars []string
	for _, s := range t.Segments {
		if s.IsVar() {
			vars = append(vars, s.Var)
		}
	}

	return vars
}

// Pattern is a compiled dynamic template.
type Pattern struct {
	Path            string
	Source          string   // regex source, used to detect collisions
	Vars            []string // variable names in capture order
	FullSegments    int      // segment count with every optional variable present
	ReducedSegments int      // segment count with every optional variable omitted

	re     *coregex.Regex
	groups []int // capture group index per variable
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	foldLiterals bool
}

// WithFoldedLiterals matches literal segments regardless of case. Variable
// fragments are matched as written.
func WithFoldedLiterals() CompileOption {
	return func(c *compileConfig) {
		c.foldLiterals = true
	}
}

// Compile builds the anchored regular expression for a dynamic template.
// Variables without an entry in patterns use defaultFragment.
func Compile(t *Template, patterns map[string]string, defaultFragment string, opts ...CompileOption) (*Pattern, error) {
	if defaultFragment == "" {
		defaultFragment = DefaultFragment
	}
	var cfg compileConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pattern{
		Path:            t.Path,
		FullSegments:    len(t.Segments),
		ReducedSegments: len(t.Segments),
	}

	var b strings.Builder
	b.WriteByte('^')
	group := 1
	for _, seg := range t.Segments {
		if !seg.IsVar() {
			b.WriteByte('/')
			if cfg.foldLiterals {
				b.WriteString("(?i:" + coregex.QuoteMeta(seg.Literal) + ")")
				continue
			}
			b.WriteString(coregex.QuoteMeta(seg.Literal))
			continue
		}

		fragment := defaultFragment
		if f, ok := patterns[seg.Var]; ok && f != "" {
			fragment = f
		}
		inner, err := coregex.Compile(fragment)
		if err != nil {
			return nil, fmt.Errorf("%w: {%s} %q: %v", ErrInvalidPattern, seg.Var, fragment, err)
		}

		p.Vars = append(p.Vars, seg.Var)
		p.groups = append(p.groups, group)
		group += 1 + inner.NumSubexp()

		if seg.Optional {
			b.WriteString("(?:/(")
			b.WriteString(fragment)
			b.WriteString("))?")
			p.ReducedSegments--
			continue
		}
		b.WriteString("/(")
		b.WriteString(fragment)
		b.WriteByte(')')
	}
	// every segment optional: the bare root omits them all
	if p.ReducedSegments == 0 {
		b.WriteString("/?")
	}
	b.WriteByte('$')

	p.Source = b.String()
	re, err := coregex.Compile(p.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p.Source, err)
	}
	p.re = re

	return p, nil
}

// Match tests a normalized path against the pattern. Captures omit optional
// variables that were not present in the path.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	idx := p.re.FindStringSubmatchIndex(path)
	if idx == nil {
		return nil, false
	}

	captures := make(map[string]string, len(p.Vars))
	for i, name := range p.Vars {
		g := p.groups[i] * 2
		if g+1 >= len(idx) || idx[g] < 0 {
			continue
		}
		captures[name] = path[idx[g]:idx[g+1]]
	}

	return captures, true
}

// String returns the regex source.
func (p *Pattern) String() string {
	return p.Source
}
