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
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coregx/coregex"

	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/compiler"
	"rivaas.dev/routing/invoke"
	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

const defaultParamWarnThreshold = 8

// noopLogger is a singleton no-op logger used when no logger is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// Option defines functional options for router configuration.
type Option func(*Router)

// Source is a unit of registrations loaded from somewhere other than
// bootstrap code, typically an annotated controller file. Its Content is
// hashed to key the route cache; Register is skipped on a cache hit.
type Source interface {
	Identity() string
	Content() ([]byte, error)
	Register(b *route.Builder) error
}

type missRoute struct {
	methods []string
	handler route.HandlerRef
}

// Router holds the registration tree until Build, and the compiled tables
// afterwards.
//
// Registration methods must be called from a single goroutine before
// Build. Dispatch, Resolve and Routes are safe for concurrent use after
// Build returns.
type Router struct {
	logger             *slog.Logger
	diagnostics        DiagnosticHandler
	observability      ObservabilityRecorder
	invoker            pipeline.Invoker
	cache              *cache.Cache
	cacheScope         string
	caseSensitive      bool
	defaultPattern     string
	paramWarnThreshold int

	mu       sync.Mutex
	root     *route.Group
	builder  *route.Builder
	detached []*route.Group
	sources  []Source
	misses   []missRoute

	compiled atomic.Pointer[compiled]
}

// New creates a Router.
//
// Example:
//
//	r, err := routing.New(
//	    routing.WithLogger(logger),
//	    routing.WithDefaultPattern(`[\w-]+`),
//	)
func New(opts ...Option) (*Router, error) {
	r := &Router{
		logger:             noopLogger,
		defaultPattern:     compiler.DefaultFragment,
		paramWarnThreshold: defaultParamWarnThreshold,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	if r.invoker == nil {
		r.invoker = invoke.NewRegistry()
	}
	r.root = route.NewRoot(r.caseSensitive)
	r.builder = route.NewBuilder(r.root)

	return r, nil
}

// MustNew creates a new Router and panics if configuration is invalid.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("routing.MustNew: %v", err))
	}

	return r
}

func (r *Router) validate() error {
	if _, err := coregex.Compile(r.defaultPattern); err != nil {
		return fmt.Errorf("%w: default pattern %q: %v", ErrInvalidConfig, r.defaultPattern, err)
	}
	if r.cache != nil && (r.cacheScope == "" || strings.Contains(r.cacheScope, "/")) {
		return fmt.Errorf("%w: cache scope %q must be non-empty and contain no slash", ErrInvalidConfig, r.cacheScope)
	}
	if r.paramWarnThreshold <= 0 {
		return fmt.Errorf("%w: param count warning must be positive, got %d", ErrInvalidConfig, r.paramWarnThreshold)
	}

	return nil
}

// Logger returns the configured logger.
func (r *Router) Logger() *slog.Logger {
	return r.logger
}

// Invoker returns the handler resolution collaborator.
func (r *Router) Invoker() pipeline.Invoker {
	return r.invoker
}

// Root returns the root group. Settings applied to it reach routes
// registered afterwards.
func (r *Router) Root() *route.Group {
	return r.root
}

// Builder returns a registration context targeting the root group.
func (r *Router) Builder() *route.Builder {
	r.mustNotBeBuilt("register routes")
	return r.builder
}

func (r *Router) mustNotBeBuilt(action string) {
	if r.Built() {
		panic(fmt.Sprintf("routing: cannot %s: %v", action, ErrAlreadyBuilt))
	}
}

// Built reports whether Build has completed.
func (r *Router) Built() bool {
	return r.compiled.Load() != nil
}

// Add registers a route for every path in paths. With no methods the route
// accepts every method allowed by the root.
func (r *Router) Add(paths []string, handler route.HandlerRef, methods ...string) *route.Route {
	return r.Builder().Add(paths, handler, methods...)
}

// Handle registers a route for one method and path.
func (r *Router) Handle(method, path string, handler route.HandlerRef) *route.Route {
	return r.Builder().Handle(method, path, handler)
}

// GET registers a GET route.
func (r *Router) GET(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().GET(path, handler)
}

// POST registers a POST route.
func (r *Router) POST(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().POST(path, handler)
}

// PUT registers a PUT route.
func (r *Router) PUT(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().PUT(path, handler)
}

// PATCH registers a PATCH route.
func (r *Router) PATCH(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().PATCH(path, handler)
}

// DELETE registers a DELETE route.
func (r *Router) DELETE(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().DELETE(path, handler)
}

// Any registers a route for every method.
func (r *Router) Any(path string, handler route.HandlerRef) *route.Route {
	return r.Builder().Any(path, handler)
}

// Group registers a group under prefix. fn runs during Build.
func (r *Router) Group(prefix string, fn func(*route.Builder)) *route.Group {
	return r.Builder().Group(prefix, fn)
}

// Use appends middleware to the root. Only routes and groups registered
// afterwards inherit it.
func (r *Router) Use(middlewares ...route.HandlerRef) {
	r.mustNotBeBuilt("add middleware")
	r.root.Use(middlewares...)
}

// Miss registers a fallback run when dispatch resolves nothing for one of
// methods, or for any method when methods is empty or contains "*". A miss
// route runs with an empty parameter bag and no middleware.
func (r *Router) Miss(handler route.HandlerRef, methods ...string) {
	r.mustNotBeBuilt("register miss route")
	if len(methods) == 0 {
		methods = []string{route.Any}
	}
	r.misses = append(r.misses, missRoute{methods: methods, handler: handler})
}

// Attach registers fn's routes under the group whose id is parentID. The
// group may be declared anywhere, before or after this call; the link is
// resolved by Build once every group is known.
func (r *Router) Attach(parentID string, fn func(*route.Builder)) *route.Group {
	r.mustNotBeBuilt("attach routes")
	g := route.NewDetached(parentID, r.caseSensitive, fn)
	r.detached = append(r.detached, g)

	return g
}

// Load adds sources whose registrations are made during Build, through the
// route cache when one is configured.
func (r *Router) Load(sources ...Source) {
	r.mustNotBeBuilt("load sources")
	r.sources = append(r.sources, sources...)
}

// MustBuild calls Build and panics on error.
func (r *Router) MustBuild(ctx context.Context) {
	if err := r.Build(ctx); err != nil {
		panic(fmt.Sprintf("routing.MustBuild: %v", err))
	}
}
