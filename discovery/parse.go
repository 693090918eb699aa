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

package discovery

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"rivaas.dev/routing/route"
)

// Controller is an annotated struct type and its annotated methods.
type Controller struct {
	Type      string
	Prefix    string
	Directive Directive
	Endpoints []Endpoint
	Pos       token.Position
}

// Instance returns the name bound methods are resolved against.
func (c *Controller) Instance() string {
	if v := c.Directive.Flag("instance"); v != "" {
		return v
	}
	r, size := utf8.DecodeRuneInString(c.Type)

	return string(unicode.ToLower(r)) + c.Type[size:]
}

// Endpoint is an annotated method or function.
type Endpoint struct {
	Receiver  string // "" for package-level functions
	Pointer   bool   // pointer receiver
	Func      string
	Methods   []string
	Path      string
	Directive Directive
	Pos       token.Position
}

// Unit is everything discovered in one file.
type Unit struct {
	Package     string
	Controllers []*Controller
	Functions   []Endpoint
}

// Parse extracts annotations from one Go source file.
func Parse(filename string, src []byte) (*Unit, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("discovery: parse %s: %w", filename, err)
	}

	u := &Unit{Package: file.Name.Name}
	byType := make(map[string]*Controller)
	var methods []Endpoint

	for _, decl := range file.Decls {
		switch node := decl.(type) {
		case *ast.GenDecl:
			if node.Tok != token.TYPE {
				continue
			}
			for _, spec := range node.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(node.Specs) == 1 {
					doc = node.Doc
				}
				d, found, err := findDirective(doc, KindController)
				if err != nil {
					return nil, fmt.Errorf("%s: type %s: %w", fset.Position(ts.Pos()), ts.Name.Name, err)
				}
				if !found {
					continue
				}
				c := &Controller{
					Type:      ts.Name.Name,
					Directive: d,
					Pos:       fset.Position(ts.Pos()),
				}
				if len(d.Args) > 0 {
					c.Prefix = d.Args[0]
				}
				byType[c.Type] = c
				u.Controllers = append(u.Controllers, c)
			}

		case *ast.FuncDecl:
			d, found, err := findDirective(node.Doc, KindRoute)
			if err != nil {
				return nil, fmt.Errorf("%s: func %s: %w", fset.Position(node.Pos()), node.Name.Name, err)
			}
			if !found {
				continue
			}
			ep, err := endpoint(node, d)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fset.Position(node.Pos()), err)
			}
			ep.Pos = fset.Position(node.Pos())
			if ep.Receiver == "" {
				u.Functions = append(u.Functions, ep)
				continue
			}
			methods = append(methods, ep)
		}
	}

	// methods may be declared before their type
	for _, ep := range methods {
		c, ok := byType[ep.Receiver]
		if !ok {
			return nil, fmt.Errorf("%s: %w: method %s.%s is annotated but %s is not a controller",
				ep.Pos, ErrInvalidAnnotation, ep.Receiver, ep.Func, ep.Receiver)
		}
		c.Endpoints = append(c.Endpoints, ep)
	}

	return u, nil
}

func findDirective(doc *ast.CommentGroup, kind string) (Directive, bool, error) {
	if doc == nil {
		return Directive{}, false, nil
	}
	for _, c := range doc.List {
		d, ok, err := ParseDirective(c.Text)
		if err != nil {
			return Directive{}, false, err
		}
		if ok && d.Kind == kind {
			return d, true, nil
		}
		if ok {
			return Directive{}, false, fmt.Errorf("%w: %s annotation not allowed here", ErrInvalidAnnotation, d.Kind)
		}
	}

	return Directive{}, false, nil
}

func endpoint(fn *ast.FuncDecl, d Directive) (Endpoint, error) {
	ep := Endpoint{Func: fn.Name.Name, Directive: d}
	if !fn.Name.IsExported() {
		return Endpoint{}, fmt.Errorf("%w: %s is not exported", ErrInvalidAnnotation, fn.Name.Name)
	}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		typ := fn.Recv.List[0].Type
		if star, ok := typ.(*ast.StarExpr); ok {
			ep.Pointer = true
			typ = star.X
		}
		// generic receivers: T[K]
		if idx, ok := typ.(*ast.IndexExpr); ok {
			typ = idx.X
		}
		ident, ok := typ.(*ast.Ident)
		if !ok {
			return Endpoint{}, fmt.Errorf("%w: unsupported receiver on %s", ErrInvalidAnnotation, fn.Name.Name)
		}
		ep.Receiver = ident.Name
	}

	switch len(d.Args) {
	case 1:
		ep.Path = d.Args[0]
	case 2:
		ep.Methods = splitMethods(d.Args[0])
		ep.Path = d.Args[1]
	default:
		return Endpoint{}, fmt.Errorf("%w: route on %s wants [METHODS] PATH, got %q", ErrInvalidAnnotation, fn.Name.Name, d.Args)
	}
	if !strings.HasPrefix(ep.Path, "/") {
		return Endpoint{}, fmt.Errorf("%w: route path %q on %s must start with /", ErrInvalidAnnotation, ep.Path, fn.Name.Name)
	}

	return ep, nil
}

func splitMethods(s string) []string {
	var out []string
	for m := range strings.SplitSeq(s, ",") {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "ANY" {
			m = route.Any
		}
		if m != "" {
			out = append(out, m)
		}
	}

	return out
}

// apply copies the flags shared by controllers and endpoints onto def.
func apply(def *route.Definition, d Directive) error {
	if v := d.Flag("id"); v != "" {
		def.SetID(v)
	}
	if v := d.Flag("parent"); v != "" {
		def.SetParent(v)
	}
	if v := d.List("methods"); len(v) > 0 {
		def.SetMethods(v...)
	}
	if v := d.List("domains"); len(v) > 0 {
		def.SetDomains(v...)
	}
	if v := d.List("suffixes"); len(v) > 0 {
		def.SetSuffixes(v...)
	}
	for _, name := range d.List("middleware") {
		def.Use(route.NamedFunc(name))
	}
	if v := d.Flag("sort"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: -sort=%q: %v", ErrInvalidAnnotation, v, err)
		}
		def.SetSort(n)
	}
	for _, w := range d.Flags["where"] {
		name, frag, ok := strings.Cut(w, ":")
		if !ok || name == "" || frag == "" {
			return fmt.Errorf("%w: -where=%q wants name:fragment", ErrInvalidAnnotation, w)
		}
		if kind, ok := route.ParseConstraintKind(frag); ok {
			frag = kind.Fragment()
		}
		def.Where(name, frag)
	}
	for _, m := range d.Flags["meta"] {
		k, v, _ := strings.Cut(m, ":")
		def.SetMeta(k, v)
	}
	if v := d.Flag("title"); v != "" {
		def.SetTitle(v)
	}
	if v := d.Flag("description"); v != "" {
		def.SetDescription(v)
	}
	if d.Has("hidden") {
		def.SetHidden(true)
	}

	return nil
}

// Register emits the unit's registrations through b: one group per
// controller, then package-level functions.
func (u *Unit) Register(b *route.Builder) error {
	for _, c := range u.Controllers {
		g := b.Group(c.Prefix, nil)
		if err := apply(&g.Definition, c.Directive); err != nil {
			return fmt.Errorf("%s: %w", c.Pos, err)
		}
		gb := route.NewBuilder(g)
		for _, ep := range c.Endpoints {
			var ref route.HandlerRef
			if ep.Pointer {
				ref = route.Bound(c.Instance(), ep.Func)
			} else {
				ref = route.Static(c.Type, ep.Func)
			}
			if err := u.add(gb, ep, ref, c.Type+"."+ep.Func); err != nil {
				return err
			}
		}
	}

	for _, ep := range u.Functions {
		name := u.Package + "." + ep.Func
		if err := u.add(b, ep, route.NamedFunc(name), name); err != nil {
			return err
		}
	}

	return nil
}

func (u *Unit) add(b *route.Builder, ep Endpoint, ref route.HandlerRef, defaultID string) error {
	r := b.Add([]string{ep.Path}, ref, ep.Methods...)
	r.SetID(defaultID)
	if err := apply(&r.Definition, ep.Directive); err != nil {
		return fmt.Errorf("%s: %w", ep.Pos, err)
	}

	return nil
}
