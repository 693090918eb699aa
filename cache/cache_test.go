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

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/routing/route"
)

func sampleTree(t *testing.T) *route.Group {
	t.Helper()

	root := route.NewRoot(false)
	unit := route.NewBuilder(root).GroupPaths(nil, func(b *route.Builder) {
		b.GET("/users/{id}", route.Bound("users", "Show")).WhereInt("id")
		b.Group("/admin", func(b *route.Builder) {
			b.POST("/flush", route.Static("Cache", "Flush"))
		}).Use(route.NamedFunc("auth"))
	})

	return unit
}

func stores(t *testing.T) map[string]Maintainer {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Maintainer{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStores(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()

			_, err := store.Get(ctx, Key("app", "users"))
			require.ErrorIs(t, err, ErrCacheMiss)

			require.NoError(t, store.Put(ctx, Key("app", "users"), []byte("one")))
			require.NoError(t, store.Put(ctx, Key("app", "users"), []byte("two")))
			require.NoError(t, store.Put(ctx, Key("other", "users"), []byte("x")))

			data, err := store.Get(ctx, Key("app", "users"))
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), data)

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"app/users", "other/users"}, keys)

			require.NoError(t, store.Clear(ctx, "app"))
			keys, err = store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"other/users"}, keys)

			require.NoError(t, store.Delete(ctx, Key("other", "users")))
			require.NoError(t, store.Delete(ctx, Key("other", "users")), "deleting an absent key succeeds")
			_, err = store.Get(ctx, Key("other", "users"))
			require.ErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestCodec(t *testing.T) {
	t.Parallel()

	decl, err := route.Declare(sampleTree(t))
	require.NoError(t, err)
	entry := Entry{ContentHash: 42, Group: decl}

	for _, compress := range []bool{false, true} {
		codec := NewCodec(compress)
		data, err := codec.Encode(entry)
		require.NoError(t, err)

		got, err := NewCodec(!compress).Decode(data)
		require.NoError(t, err, "decoding does not depend on settings")
		assert.Equal(t, uint64(42), got.ContentHash)
		assert.Equal(t, 2, got.Group.Count())
		require.Len(t, got.Group.Children, 2)
		assert.Equal(t, route.Bound("users", "Show"), got.Group.Children[0].Handler)
		assert.Equal(t, map[string]string{"id": `\d+`}, got.Group.Children[0].Patterns)
		assert.Equal(t, []route.HandlerRef{route.NamedFunc("auth")}, got.Group.Children[1].Middlewares)
	}

	_, err = NewCodec(false).Decode(nil)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = NewCodec(false).Decode([]byte("?junk"))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestCacheLoadSave(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := NewFileStore(t.TempDir())
	c := New(store, WithCompression(true))
	hash := ContentHash([]byte("source v1"))

	_, err := c.Load(ctx, "app", "users", hash)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Save(ctx, "app", "users", hash, sampleTree(t)))

	decl, err := c.Load(ctx, "app", "users", hash)
	require.NoError(t, err)
	assert.Equal(t, 2, decl.Count())

	t.Run("stale entry is discarded", func(t *testing.T) {
		newHash := ContentHash([]byte("source v2"))
		require.NotEqual(t, hash, newHash)

		_, err := c.Load(ctx, "app", "users", newHash)
		require.ErrorIs(t, err, ErrCacheMiss)

		_, err = store.Get(ctx, Key("app", "users"))
		require.ErrorIs(t, err, ErrCacheMiss, "stale entry must be removed")
	})
}

func TestCacheCorruptEntry(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, Key("app", "u"), []byte{'z', 1, 2, 3}))

	_, err := New(store).Load(ctx, "app", "u", 1)
	require.ErrorIs(t, err, ErrCacheMiss)
	_, err = store.Get(ctx, Key("app", "u"))
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheSaveRejectsLiveFunctions(t *testing.T) {
	t.Parallel()

	root := route.NewRoot(false)
	route.NewBuilder(root).GET("/x", route.Func(func() (any, error) { return nil, nil }))

	err := New(NewMemoryStore()).Save(t.Context(), "app", "x", 1, root)
	require.ErrorIs(t, err, ErrSnapshotUnsupported)
	require.ErrorIs(t, err, route.ErrNotSymbolic)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	c := New(NewMemoryStore())
	require.NoError(t, c.Save(ctx, "app", "users", 7, sampleTree(t)))
	require.NoError(t, c.Invalidate(ctx, "app", "users"))

	_, err := c.Load(ctx, "app", "users", 7)
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Put(t.Context(), Key("app", "ctrl/users.go"), []byte("x")))

	_, err := os.Stat(filepath.Join(dir, "app", "ctrl%2Fusers.go"+fileExt))
	require.NoError(t, err)
}

func TestFileStoreDistinctUnits(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := NewFileStore(t.TempDir())
	units := []string{"ctrl/user.go", "ctrl_user.go", "a:b", "..", ""}
	for _, unit := range units {
		require.NoError(t, store.Put(ctx, Key("app", unit), []byte(unit)))
	}

	for _, unit := range units {
		data, err := store.Get(ctx, Key("app", unit))
		require.NoError(t, err, unit)
		assert.Equal(t, unit, string(data))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/", "app/..", "app/a:b", "app/ctrl/user.go", "app/ctrl_user.go"}, keys)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("file", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("redis", "")
	require.Error(t, err)
}
