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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHandler() {}

func TestHandlerRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ref      HandlerRef
		kind     HandlerKind
		symbolic bool
		str      string
	}{
		{"named", NamedFunc("users.index"), KindFunction, true, "users.index"},
		{"live", Func(sampleHandler), KindFunction, false, "route.sampleHandler"},
		{"bound", Bound("users", "Show"), KindBoundMethod, true, "users->Show"},
		{"static", Static("Users", "Index"), KindStaticMethod, true, "Users::Index"},
		{"zero", HandlerRef{}, KindNone, false, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, tt.ref.Kind)
			assert.Equal(t, tt.symbolic, tt.ref.Symbolic())
			assert.Equal(t, tt.str, tt.ref.String())
		})
	}
	assert.True(t, HandlerRef{}.IsZero())
	assert.Equal(t, "bound_method", KindBoundMethod.String())
}

func TestParams(t *testing.T) {
	t.Parallel()

	var p Params
	p = p.Merge(map[string]string{"id": "7"})
	require.NotNil(t, p)
	p["n"] = 3

	assert.Equal(t, "7", p.String("id"))
	assert.Equal(t, "3", p.String("n"))
	assert.Empty(t, p.String("missing"))
	assert.True(t, p.Has("id"))
	assert.False(t, p.Has("missing"))
}

func TestDeclareRoundTrip(t *testing.T) {
	t.Parallel()

	root := NewRoot(false)
	g := NewBuilder(root).Group("/api", func(b *Builder) {
		b.GET("/users/{id}", Bound("users", "Show")).WhereInt("id").SetMeta("doc", "show")
		b.Group("/admin", func(b *Builder) {
			b.POST("/flush", Static("Cache", "Flush"))
		}).SetSort(3)
	})
	g.Use(NamedFunc("auth"))

	decl, err := Declare(g)
	require.NoError(t, err)
	assert.Equal(t, NodeGroup, decl.Kind)
	assert.Equal(t, 2, decl.Count())
	require.Len(t, decl.Children, 2)
	assert.Equal(t, 3, decl.Children[1].Sort)

	replayRoot := NewRoot(false)
	NewBuilder(replayRoot).Declare(decl)
	replayRoot.ExpandAll()

	var paths []string
	var leaf *Route
	replayRoot.Walk(func(n Node) bool {
		if r, ok := n.(*Route); ok {
			paths = append(paths, r.Paths()...)
			if leaf == nil {
				leaf = r
			}
		}
		return true
	})
	assert.Equal(t, []string{"/api/users/{id}", "/api/admin/flush"}, paths)
	require.NotNil(t, leaf)
	assert.Equal(t, Bound("users", "Show"), leaf.Handler())
	assert.Equal(t, []HandlerRef{NamedFunc("auth")}, leaf.Middlewares())
	assert.Equal(t, map[string]string{"id": `\d+`}, leaf.Patterns())
}

func TestDeclareRejectsLiveFunctions(t *testing.T) {
	t.Parallel()

	root := NewRoot(false)
	NewBuilder(root).GET("/x", Func(sampleHandler))

	_, err := Declare(root)
	require.ErrorIs(t, err, ErrNotSymbolic)
}
