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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"rivaas.dev/routing/route"
)

var (
	// ErrCacheMiss is returned when no usable entry exists.
	ErrCacheMiss = errors.New("cache: miss")

	// ErrSnapshotUnsupported is returned when a subtree references live
	// functions and cannot be stored.
	ErrSnapshotUnsupported = errors.New("cache: subtree cannot be snapshotted")

	// ErrCorrupt is returned when stored bytes cannot be decoded.
	ErrCorrupt = errors.New("cache: corrupt entry")
)

// Store is an opaque key to bytes store.
type Store interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete succeeds when key is absent.
	Delete(ctx context.Context, key string) error
}

// Entry is the stored value for one unit.
type Entry struct {
	ContentHash uint64            `msgpack:"hash"`
	Group       route.Declaration `msgpack:"group"`
}

// ContentHash hashes the bytes a unit was registered from.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Key builds the store key for a unit within a scope.
func Key(scope, unit string) string {
	return scope + "/" + unit
}

// SplitKey reverses Key. Scopes never contain a slash; units may.
func SplitKey(key string) (scope, unit string) {
	scope, unit, _ = strings.Cut(key, "/")
	return scope, unit
}

// Option configures a Cache.
type Option func(*Cache)

// WithCompression toggles zstd compression of stored entries.
func WithCompression(enabled bool) Option {
	return func(c *Cache) {
		c.codec.compress = enabled
	}
}

// WithLogger sets the logger for hits, misses and rebuilds.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache reads and writes unit entries through a Store.
type Cache struct {
	store  Store
	codec  Codec
	logger *slog.Logger
}

// New returns a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

// Load returns the subtree stored for unit when its hash equals hash.
// A stale or undecodable entry is deleted and ErrCacheMiss is returned.
func (c *Cache) Load(ctx context.Context, scope, unit string, hash uint64) (route.Declaration, error) {
	key := Key(scope, unit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			c.logger.DebugContext(ctx, "route cache miss", "scope", scope, "unit", unit)
		}
		return route.Declaration{}, err
	}

	entry, err := c.codec.Decode(data)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt route cache entry", "scope", scope, "unit", unit, "error", err)
		if derr := c.store.Delete(ctx, key); derr != nil {
			return route.Declaration{}, derr
		}
		return route.Declaration{}, ErrCacheMiss
	}

	if entry.ContentHash != hash {
		c.logger.InfoContext(ctx, "route cache stale",
			"scope", scope, "unit", unit,
			"hash", fmt.Sprintf("%016x", hash),
			"stored", fmt.Sprintf("%016x", entry.ContentHash))
		if err := c.store.Delete(ctx, key); err != nil {
			return route.Declaration{}, err
		}
		return route.Declaration{}, ErrCacheMiss
	}

	c.logger.DebugContext(ctx, "route cache hit", "scope", scope, "unit", unit, "hash", fmt.Sprintf("%016x", hash))

	return entry.Group, nil
}

// Save stores the subtree of n for unit.
func (c *Cache) Save(ctx context.Context, scope, unit string, hash uint64, n route.Node) error {
	decl, err := route.Declare(n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotUnsupported, err)
	}

	return c.Put(ctx, scope, unit, Entry{ContentHash: hash, Group: decl})
}

// Put stores entry for unit.
func (c *Cache) Put(ctx context.Context, scope, unit string, entry Entry) error {
	data, err := c.codec.Encode(entry)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, Key(scope, unit), data); err != nil {
		return fmt.Errorf("cache: store %s: %w", Key(scope, unit), err)
	}
	c.logger.DebugContext(ctx, "route cache written", "scope", scope, "unit", unit, "bytes", len(data))

	return nil
}

// Invalidate removes the entry for unit.
func (c *Cache) Invalidate(ctx context.Context, scope, unit string) error {
	return c.store.Delete(ctx, Key(scope, unit))
}

// Maintainer is a Store that can enumerate and clear its entries. Every
// store in this package implements it.
type Maintainer interface {
	Store
	Clear(ctx context.Context, scope string) error
	Keys(ctx context.Context) ([]string, error)
}

// Open returns the store named by driver: "file" rooted at location,
// "sqlite" at the database path location, or "memory".
func Open(driver, location string) (Maintainer, error) {
	switch driver {
	case "", "file":
		return NewFileStore(location), nil
	case "sqlite":
		return OpenSQLite(location)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", driver)
	}
}
