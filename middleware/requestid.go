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
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// RequestIDParam is the default parameter a caller-supplied id is read from.
const RequestIDParam = "request_id"

type requestIDKey struct{}

// RequestIDOption configures [RequestID].
type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	param     string
	generator func() string
}

// WithULID generates ULIDs instead of UUIDv7s.
func WithULID() RequestIDOption {
	return func(c *requestIDConfig) { c.generator = generateULID }
}

// WithIDGenerator sets a custom id generator.
func WithIDGenerator(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) {
		if fn != nil {
			c.generator = fn
		}
	}
}

// WithClientID reads a caller-supplied id from the parameter name. An empty
// name always generates.
func WithClientID(name string) RequestIDOption {
	return func(c *requestIDConfig) { c.param = name }
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	ulidEntropy     = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyLock sync.Mutex
)

func generateULID() string {
	ulidEntropyLock.Lock()
	defer ulidEntropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// RequestID stores an id for the dispatch in the context. A non-empty value
// under [RequestIDParam] is reused; otherwise a UUIDv7 is generated.
func RequestID(opts ...RequestIDOption) pipeline.Middleware {
	cfg := &requestIDConfig{param: RequestIDParam, generator: generateUUIDv7}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, params route.Params, next pipeline.Next) (any, error) {
		var id string
		if cfg.param != "" {
			id = params.String(cfg.param)
		}
		if id == "" {
			id = cfg.generator()
		}

		return next(context.WithValue(ctx, requestIDKey{}, id), params)
	}
}

// RequestIDFrom returns the id stored by [RequestID], or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
