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

// Package pipeline composes middleware and a terminal handler into a single
// callable.
//
// Composition is a right fold: the last middleware wraps the handler, each
// earlier one wraps the result, so the first middleware in the list runs
// outermost. A middleware that returns without calling next short-circuits
// everything after it.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"rivaas.dev/routing/route"
)

// ErrNotCallable is returned by an [Invoker] when a reference cannot be
// turned into a callable.
var ErrNotCallable = errors.New("pipeline: handler reference is not callable")

// Next continues the pipeline. The handler at the end of a pipeline has the
// same shape.
type Next func(ctx context.Context, params route.Params) (any, error)

// Middleware intercepts a call. It may act before and after next, or return
// without calling it.
type Middleware func(ctx context.Context, params route.Params, next Next) (any, error)

// Invoker resolves handler references into callables.
type Invoker interface {
	Handler(ref route.HandlerRef) (Next, error)
	Middleware(ref route.HandlerRef) (Middleware, error)
}

// Compose folds middlewares around terminal. The result is built once and
// may be called concurrently if every element may.
func Compose(middlewares []Middleware, terminal Next) Next {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = wrap(middlewares[i], next)
	}

	return next
}

func wrap(mw Middleware, next Next) Next {
	return func(ctx context.Context, params route.Params) (any, error) {
		return mw(ctx, params, next)
	}
}

// Build resolves every reference through inv and composes them. The first
// resolution failure is returned with the offending reference named.
func Build(inv Invoker, middlewares []route.HandlerRef, handler route.HandlerRef) (Next, error) {
	terminal, err := inv.Handler(handler)
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", handler, err)
	}

	resolved := make([]Middleware, 0, len(middlewares))
	for _, ref := range middlewares {
		mw, err := inv.Middleware(ref)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", ref, err)
		}
		resolved = append(resolved, mw)
	}

	return Compose(resolved, terminal), nil
}
