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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/invoke"
	"rivaas.dev/routing/route"
)

// lineSource registers one route per line of its content:
// "METHOD /path handlerName [sort]".
type lineSource struct {
	name      string
	content   string
	registers *atomic.Int32
}

func (s lineSource) Identity() string { return s.name }

func (s lineSource) Content() ([]byte, error) { return []byte(s.content), nil }

func (s lineSource) Register(b *route.Builder) error {
	s.registers.Add(1)
	g := b.Group("/"+s.name, nil)
	g.Use(route.NamedFunc("mw"))
	sub := route.NewBuilder(g)
	g.Expand()
	for _, line := range strings.Split(strings.TrimSpace(s.content), "\n") {
		f := strings.Fields(line)
		if len(f) < 3 {
			return fmt.Errorf("bad line %q", line)
		}
		rt := sub.Handle(f[0], f[1], route.NamedFunc(f[2]))
		if len(f) > 3 {
			var sort int
			_, _ = fmt.Sscan(f[3], &sort)
			rt.SetSort(sort)
		}
	}

	return nil
}

func testRegistry() *invoke.Registry {
	reg := invoke.NewRegistry()
	for _, name := range []string{"index", "show", "store", "fallback", "v2"} {
		reg.Func(name, func(_ context.Context, p route.Params) (any, error) {
			return name + ":" + p.String("id"), nil
		})
	}
	reg.Func("mw", func(ctx context.Context, p route.Params, next func(context.Context, route.Params) (any, error)) (any, error) {
		return next(ctx, p)
	})

	return reg
}

const usersSource = `
GET /users index
GET /users/{id} show 1
GET /users/{slug} fallback 0
POST /users/new store
`

var requests = []struct{ path, method string }{
	{"/users/users", "GET"},
	{"/users/users/7", "GET"},
	{"/users/users/abc", "GET"},
	{"/users/users/new", "POST"},
	{"/users/users/new", "GET"},
	{"/users/users", "DELETE"},
	{"/users/users/7.json", "GET"},
	{"/missing", "GET"},
}

func outcomes(t *testing.T, r *Router) []string {
	t.Helper()

	out := make([]string, 0, len(requests))
	for _, p := range requests {
		res, err := r.Dispatch(t.Context(), p.path, p.method, "", nil, nil)
		if err != nil {
			out = append(out, "error:"+err.Error())
			continue
		}
		out = append(out, fmt.Sprint(res))
	}

	return out
}

func newCachedRouter(t *testing.T, c *cache.Cache, src Source) *Router {
	t.Helper()

	r := MustNew(WithInvoker(testRegistry()), WithRouteCache(c, "app"))
	r.Load(src)
	require.NoError(t, r.Build(t.Context()))

	return r
}

func TestRouteCacheRoundTrip(t *testing.T) {
	t.Parallel()

	var registers atomic.Int32
	src := lineSource{name: "users", content: usersSource, registers: &registers}

	direct := MustNew(WithInvoker(testRegistry()))
	direct.Load(src)
	require.NoError(t, direct.Build(t.Context()))
	want := outcomes(t, direct)

	c := cache.New(cache.NewFileStore(t.TempDir()), cache.WithCompression(true))

	coldDiags := &diagRecorder{}
	cold := MustNew(WithInvoker(testRegistry()), WithRouteCache(c, "app"), WithDiagnostics(coldDiags))
	cold.Load(src)
	require.NoError(t, cold.Build(t.Context()))
	assert.Equal(t, want, outcomes(t, cold))
	assert.Contains(t, coldDiags.kinds(), DiagCacheRebuild)
	assert.NotContains(t, coldDiags.kinds(), DiagCacheHit)

	registers.Store(0)
	warmDiags := &diagRecorder{}
	warm := MustNew(WithInvoker(testRegistry()), WithRouteCache(c, "app"), WithDiagnostics(warmDiags))
	warm.Load(src)
	require.NoError(t, warm.Build(t.Context()))
	assert.Equal(t, int32(0), registers.Load(), "a cache hit skips registration")
	assert.Equal(t, want, outcomes(t, warm))
	assert.Contains(t, warmDiags.kinds(), DiagCacheHit)
	assert.NotContains(t, warmDiags.kinds(), DiagCacheRebuild)

	assert.Equal(t, direct.Routes(), warm.Routes())
}

func TestRouteCacheInvalidation(t *testing.T) {
	t.Parallel()

	var registers atomic.Int32
	c := cache.New(cache.NewMemoryStore())

	v1 := lineSource{name: "users", content: usersSource, registers: &registers}
	first := newCachedRouter(t, c, v1)
	_, err := first.Resolve("/users/v2", "GET", "")
	require.ErrorIs(t, err, ErrRouteNotFound)

	v2 := v1
	v2.content = usersSource + "GET /v2 v2\n"
	registers.Store(0)
	second := newCachedRouter(t, c, v2)
	assert.Equal(t, int32(1), registers.Load(), "changed content forces a rebuild")

	out, err := second.Dispatch(t.Context(), "/users/v2", "GET", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2:", out)

	registers.Store(0)
	third := newCachedRouter(t, c, v2)
	assert.Equal(t, int32(0), registers.Load(), "rebuilt entry is reused")
	_, err = third.Resolve("/users/v2", "GET", "")
	require.NoError(t, err)
}

func TestRouteCacheSkipsLiveFunctions(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	r := MustNew(WithRouteCache(cache.New(store), "app"))
	r.Load(funcSource{})
	require.NoError(t, r.Build(t.Context()))

	keys, err := store.Keys(t.Context())
	require.NoError(t, err)
	assert.Empty(t, keys)

	out, err := r.Dispatch(t.Context(), "/live", "GET", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "live", out)
}

// openSource declares a route that lifts its group's method restriction
// with an empty method set.
type openSource struct{}

func (openSource) Identity() string { return "open" }

func (openSource) Content() ([]byte, error) { return []byte("open"), nil }

func (openSource) Register(b *route.Builder) error {
	g := b.Group("/g", nil)
	g.SetMethods("GET")
	g.Expand()
	route.NewBuilder(g).Add([]string{"/x"}, route.NamedFunc("index")).SetMethods(" ")

	return nil
}

func TestRouteCacheKeepsEmptySets(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.NewMemoryStore())
	cold := newCachedRouter(t, c, openSource{})
	warm := newCachedRouter(t, c, openSource{})

	for _, r := range []*Router{cold, warm} {
		out, err := r.Dispatch(t.Context(), "/g/x", "POST", "", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "index:", out)
	}
	assert.Equal(t, cold.Routes(), warm.Routes())
}

func TestSourceErrors(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.Load(brokenSource{})
	require.ErrorIs(t, r.Build(t.Context()), errBroken)
}

func TestRouteCacheRequiresScope(t *testing.T) {
	t.Parallel()

	_, err := New(WithRouteCache(cache.New(cache.NewMemoryStore()), ""))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

type funcSource struct{}

func (funcSource) Identity() string { return "live" }

func (funcSource) Content() ([]byte, error) { return []byte("live"), nil }

func (funcSource) Register(b *route.Builder) error {
	b.GET("/live", reply("live"))
	return nil
}

var errBroken = errors.New("broken")

type brokenSource struct{}

func (brokenSource) Identity() string { return "broken" }

func (brokenSource) Content() ([]byte, error) { return nil, errBroken }

func (brokenSource) Register(*route.Builder) error { return nil }
