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
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// AccessLogOption configures [AccessLog].
type AccessLogOption func(*accessLogConfig)

type accessLogConfig struct {
	logger        *slog.Logger
	sampleRate    float64
	errorsOnly    bool
	slowThreshold time.Duration
}

// WithAccessLogger sets the destination logger.
func WithAccessLogger(logger *slog.Logger) AccessLogOption {
	return func(c *accessLogConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSampleRate logs only a fraction of successful, fast dispatches. The
// choice is keyed on the request id so retries sample alike.
func WithSampleRate(rate float64) AccessLogOption {
	return func(c *accessLogConfig) { c.sampleRate = min(max(rate, 0), 1) }
}

// WithErrorsOnly logs only failed or slow dispatches.
func WithErrorsOnly() AccessLogOption {
	return func(c *accessLogConfig) { c.errorsOnly = true }
}

// WithSlowThreshold flags dispatches at or above d and always logs them.
func WithSlowThreshold(d time.Duration) AccessLogOption {
	return func(c *accessLogConfig) { c.slowThreshold = d }
}

// AccessLog writes one "access" record per dispatch: ERROR when the
// pipeline failed, WARN when it was slow, INFO otherwise.
func AccessLog(opts ...AccessLogOption) pipeline.Middleware {
	cfg := &accessLogConfig{logger: slog.Default(), sampleRate: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, params route.Params, next pipeline.Next) (any, error) {
		start := time.Now()
		out, err := next(ctx, params)
		duration := time.Since(start)

		slow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold
		id := RequestIDFrom(ctx)
		if err == nil && !slow {
			if cfg.errorsOnly || !sampled(id, cfg.sampleRate) {
				return out, err
			}
		}

		attrs := []any{
			"duration", duration,
			"params", len(params),
		}
		if id != "" {
			attrs = append(attrs, "request_id", id)
		}
		if slow {
			attrs = append(attrs, "slow", true)
		}

		switch {
		case err != nil:
			cfg.logger.ErrorContext(ctx, "access", append(attrs, "error", err)...)
		case slow:
			cfg.logger.WarnContext(ctx, "access", attrs...)
		default:
			cfg.logger.InfoContext(ctx, "access", attrs...)
		}

		return out, err
	}
}

func sampled(id string, rate float64) bool {
	switch {
	case rate >= 1, id == "":
		return true
	case rate <= 0:
		return false
	}

	return xxhash.Sum64String(id) <= uint64(rate*math.MaxUint64)
}
