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

package main

import (
	"context"
	"slices"

	"rivaas.dev/routing/invoke"
	"rivaas.dev/routing/middleware"
	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// Reply is what a described route answers with.
type Reply struct {
	Handler    string       `json:"handler" yaml:"handler"`
	Middleware []string     `json:"middleware,omitempty" yaml:"middleware,omitempty"`
	RequestID  string       `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Params     route.Params `json:"params" yaml:"params"`
}

type chainKey struct{}

// describer resolves every reference to a stand-in that reports what would
// have run. It lets routectl build tables whose handlers live elsewhere.
type describer struct{}

var _ pipeline.Invoker = describer{}

func (describer) Handler(ref route.HandlerRef) (pipeline.Next, error) {
	name := ref.String()
	return func(ctx context.Context, params route.Params) (any, error) {
		chain, _ := ctx.Value(chainKey{}).([]string)
		return Reply{
			Handler:    name,
			Middleware: chain,
			RequestID:  middleware.RequestIDFrom(ctx),
			Params:     params,
		}, nil
	}, nil
}

// Middleware runs live functions and describes everything else.
func (describer) Middleware(ref route.HandlerRef) (pipeline.Middleware, error) {
	if ref.Fn != nil {
		if mw, ok := invoke.AsMiddleware(ref.Fn); ok {
			return mw, nil
		}
	}
	name := ref.String()
	return func(ctx context.Context, params route.Params, next pipeline.Next) (any, error) {
		chain, _ := ctx.Value(chainKey{}).([]string)
		return next(context.WithValue(ctx, chainKey{}, append(slices.Clip(chain), name)), params)
	}, nil
}
