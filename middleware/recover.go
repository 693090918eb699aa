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

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// RecoverHandler turns a recovered panic into the pipeline result.
type RecoverHandler func(ctx context.Context, params route.Params, perr *PanicError) (any, error)

// RecoverOption configures [Recover].
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	logger     *slog.Logger
	stackTrace bool
	stackSize  int
	handler    RecoverHandler
}

func defaultRecoverConfig() *recoverConfig {
	return &recoverConfig{
		logger:     slog.Default(),
		stackTrace: true,
		stackSize:  4 << 10,
		handler: func(_ context.Context, _ route.Params, perr *PanicError) (any, error) {
			return nil, perr
		},
	}
}

// WithRecoverLogger sets the logger panics are reported to. nil disables
// logging.
func WithRecoverLogger(logger *slog.Logger) RecoverOption {
	return func(c *recoverConfig) { c.logger = logger }
}

// WithStackTrace toggles stack capture. size caps the captured bytes.
func WithStackTrace(enabled bool, size int) RecoverOption {
	return func(c *recoverConfig) {
		c.stackTrace = enabled
		if size > 0 {
			c.stackSize = size
		}
	}
}

// WithRecoverHandler replaces the default handler, which returns the
// *PanicError.
func WithRecoverHandler(h RecoverHandler) RecoverOption {
	return func(c *recoverConfig) {
		if h != nil {
			c.handler = h
		}
	}
}

// Recover converts a panic anywhere downstream into an error.
//
// The active span, if any, is marked with exception attributes.
func Recover(opts ...RecoverOption) pipeline.Middleware {
	cfg := defaultRecoverConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, params route.Params, next pipeline.Next) (out any, err error) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			var stack []byte
			if cfg.stackTrace {
				stack = debug.Stack()
				if len(stack) > cfg.stackSize {
					stack = stack[:cfg.stackSize]
				}
			}
			perr := &PanicError{Value: v, Stack: stack}

			if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
				span.SetStatus(codes.Error, "panic recovered")
				span.SetAttributes(
					attribute.Bool("exception.escaped", true),
					attribute.String("exception.type", fmt.Sprintf("%T", v)),
					attribute.String("exception.message", fmt.Sprint(v)),
				)
				span.RecordError(perr)
			}
			if cfg.logger != nil {
				cfg.logger.ErrorContext(ctx, "panic recovered",
					"panic", fmt.Sprint(v),
					"request_id", RequestIDFrom(ctx),
					"stack", string(stack),
				)
			}

			out, err = cfg.handler(ctx, params, perr)
		}()

		return next(ctx, params)
	}
}
