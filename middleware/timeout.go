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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// TimeoutOption configures [Timeout].
type TimeoutOption func(*timeoutConfig)

type timeoutConfig struct {
	duration time.Duration
	logger   *slog.Logger
	skip     func(ctx context.Context, params route.Params) bool
}

// WithTimeoutLogger sets the logger expirations are reported to. nil
// disables logging.
func WithTimeoutLogger(logger *slog.Logger) TimeoutOption {
	return func(c *timeoutConfig) { c.logger = logger }
}

// WithTimeoutSkip exempts dispatches for which fn reports true.
func WithTimeoutSkip(fn func(ctx context.Context, params route.Params) bool) TimeoutOption {
	return func(c *timeoutConfig) { c.skip = fn }
}

type outcome struct {
	out   any
	err   error
	panic any
}

// Timeout runs the rest of the pipeline under a deadline of d.
//
// The pipeline runs on its own goroutine and sees a context that expires
// after d. When it expires, Timeout still waits for the pipeline to return
// so nothing outlives the dispatch, then reports ErrTimeout. A panic in the
// pipeline is re-raised on the caller's goroutine.
func Timeout(d time.Duration, opts ...TimeoutOption) pipeline.Middleware {
	cfg := &timeoutConfig{duration: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, params route.Params, next pipeline.Next) (any, error) {
		if cfg.skip != nil && cfg.skip(ctx, params) {
			return next(ctx, params)
		}

		ctx, cancel := context.WithTimeout(ctx, cfg.duration)
		defer cancel()

		done := make(chan outcome, 1)
		go func() {
			var o outcome
			defer func() {
				if v := recover(); v != nil {
					o.panic = v
				}
				done <- o
			}()
			o.out, o.err = next(ctx, params)
		}()

		var (
			o        outcome
			timedOut bool
		)
		select {
		case o = <-done:
		case <-ctx.Done():
			timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
			if timedOut && cfg.logger != nil {
				cfg.logger.WarnContext(ctx, "dispatch timeout",
					"timeout", cfg.duration.String(),
					"request_id", RequestIDFrom(ctx),
				)
			}
			o = <-done
		}
		if o.panic != nil {
			panic(o.panic)
		}
		if timedOut {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, cfg.duration, context.DeadlineExceeded)
		}

		return o.out, o.err
	}
}
