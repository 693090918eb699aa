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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/routing"
	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func panics(context.Context, route.Params) (any, error) {
	panic("kaboom")
}

func TestRecover(t *testing.T) {
	t.Parallel()

	logger, logs := bufferLogger()
	run := pipeline.Compose([]pipeline.Middleware{Recover(WithRecoverLogger(logger))}, panics)

	out, err := run(t.Context(), route.Params{})
	assert.Nil(t, out)
	require.ErrorIs(t, err, ErrPanic)

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "kaboom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
	assert.LessOrEqual(t, len(perr.Stack), 4<<10)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "panic=kaboom")
}

func TestRecoverErrorValueAndHandler(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	run := pipeline.Compose([]pipeline.Middleware{Recover(
		WithRecoverLogger(nil),
		WithStackTrace(false, 0),
		WithRecoverHandler(func(_ context.Context, _ route.Params, perr *PanicError) (any, error) {
			assert.Empty(t, perr.Stack)
			return "fallback", perr
		}),
	)}, func(context.Context, route.Params) (any, error) { panic(cause) })

	out, err := run(t.Context(), route.Params{})
	assert.Equal(t, "fallback", out)
	require.ErrorIs(t, err, cause, "error panic values unwrap")
	require.ErrorIs(t, err, ErrPanic)
}

func TestRecoverMarksSpan(t *testing.T) {
	t.Parallel()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	ctx, span := tp.Tracer("test").Start(t.Context(), "dispatch")

	run := pipeline.Compose([]pipeline.Middleware{Recover(WithRecoverLogger(nil))}, panics)
	_, err := run(ctx, route.Params{})
	require.Error(t, err)
	span.End()

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "panic recovered", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slowHandler := func(ctx context.Context, _ route.Params) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	}

	tests := []struct {
		name    string
		mw      pipeline.Middleware
		handler pipeline.Next
		want    any
		wantErr error
	}{
		{
			name:    "fast handler",
			mw:      Timeout(time.Second, WithTimeoutLogger(nil)),
			handler: func(context.Context, route.Params) (any, error) { return "ok", nil },
			want:    "ok",
		},
		{
			name:    "handler error passes through",
			mw:      Timeout(time.Second, WithTimeoutLogger(nil)),
			handler: func(context.Context, route.Params) (any, error) { return nil, routing.ErrNotBuilt },
			wantErr: routing.ErrNotBuilt,
		},
		{
			name:    "deadline exceeded",
			mw:      Timeout(20*time.Millisecond, WithTimeoutLogger(nil)),
			handler: slowHandler,
			wantErr: ErrTimeout,
		},
		{
			name: "skipped",
			mw: Timeout(time.Nanosecond, WithTimeoutLogger(nil), WithTimeoutSkip(func(_ context.Context, p route.Params) bool {
				return p.Has("stream")
			})),
			handler: func(ctx context.Context, _ route.Params) (any, error) {
				_, hasDeadline := ctx.Deadline()
				return hasDeadline, nil
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := pipeline.Compose([]pipeline.Middleware{tt.mw}, tt.handler)(t.Context(), route.Params{"stream": true})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTimeoutLogsAndWraps(t *testing.T) {
	t.Parallel()

	logger, logs := bufferLogger()
	run := pipeline.Compose([]pipeline.Middleware{Timeout(10*time.Millisecond, WithTimeoutLogger(logger))},
		func(ctx context.Context, _ route.Params) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := run(t.Context(), route.Params{})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, logs.String(), "dispatch timeout")
}

func TestTimeoutRepanics(t *testing.T) {
	t.Parallel()

	run := pipeline.Compose([]pipeline.Middleware{
		Recover(WithRecoverLogger(nil)),
		Timeout(time.Second, WithTimeoutLogger(nil)),
	}, panics)

	_, err := run(t.Context(), route.Params{})
	require.ErrorIs(t, err, ErrPanic, "panic crosses the timeout goroutine")
}

var uuidV7 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func echoID(ctx context.Context, _ route.Params) (any, error) {
	return RequestIDFrom(ctx), nil
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []RequestIDOption
		params route.Params
		check  func(t *testing.T, id string)
	}{
		{
			name:   "uuid v7 by default",
			params: route.Params{},
			check:  func(t *testing.T, id string) { t.Helper(); assert.Regexp(t, uuidV7, id) },
		},
		{
			name:   "ulid",
			opts:   []RequestIDOption{WithULID()},
			params: route.Params{},
			check:  func(t *testing.T, id string) { t.Helper(); assert.Len(t, id, 26) },
		},
		{
			name:   "client id reused",
			params: route.Params{RequestIDParam: "abc-123"},
			check:  func(t *testing.T, id string) { t.Helper(); assert.Equal(t, "abc-123", id) },
		},
		{
			name:   "client ids disabled",
			opts:   []RequestIDOption{WithClientID(""), WithIDGenerator(func() string { return "gen" })},
			params: route.Params{RequestIDParam: "abc-123"},
			check:  func(t *testing.T, id string) { t.Helper(); assert.Equal(t, "gen", id) },
		},
		{
			name:   "custom param",
			opts:   []RequestIDOption{WithClientID("trace")},
			params: route.Params{"trace": "t-1"},
			check:  func(t *testing.T, id string) { t.Helper(); assert.Equal(t, "t-1", id) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := pipeline.Compose([]pipeline.Middleware{RequestID(tt.opts...)}, echoID)(t.Context(), tt.params)
			require.NoError(t, err)
			tt.check(t, out.(string))
		})
	}

	assert.Empty(t, RequestIDFrom(t.Context()))
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	logger, logs := bufferLogger()
	boom := errors.New("boom")
	var fail atomic.Bool
	run := pipeline.Compose([]pipeline.Middleware{
		RequestID(WithIDGenerator(func() string { return "req-1" })),
		AccessLog(WithAccessLogger(logger)),
	}, func(context.Context, route.Params) (any, error) {
		if fail.Load() {
			return nil, boom
		}
		return "ok", nil
	})

	_, err := run(t.Context(), route.Params{"id": "7"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=INFO msg=access")
	assert.Contains(t, logs.String(), "request_id=req-1")
	assert.Contains(t, logs.String(), "params=1")

	fail.Store(true)
	_, err = run(t.Context(), route.Params{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, logs.String(), "level=ERROR msg=access")
	assert.Contains(t, logs.String(), "error=boom")
}

func TestAccessLogFiltering(t *testing.T) {
	t.Parallel()

	ok := func(context.Context, route.Params) (any, error) { return "ok", nil }
	sleepy := func(context.Context, route.Params) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}

	t.Run("errors only skips success", func(t *testing.T) {
		t.Parallel()
		logger, logs := bufferLogger()
		_, _ = pipeline.Compose([]pipeline.Middleware{AccessLog(WithAccessLogger(logger), WithErrorsOnly())}, ok)(t.Context(), nil)
		assert.Empty(t, logs.String())
	})

	t.Run("slow is always logged", func(t *testing.T) {
		t.Parallel()
		logger, logs := bufferLogger()
		mw := AccessLog(WithAccessLogger(logger), WithErrorsOnly(), WithSlowThreshold(time.Millisecond))
		_, _ = pipeline.Compose([]pipeline.Middleware{mw}, sleepy)(t.Context(), nil)
		assert.Contains(t, logs.String(), "level=WARN msg=access")
		assert.Contains(t, logs.String(), "slow=true")
	})

	t.Run("zero sample rate drops ids", func(t *testing.T) {
		t.Parallel()
		logger, logs := bufferLogger()
		run := pipeline.Compose([]pipeline.Middleware{RequestID(), AccessLog(WithAccessLogger(logger), WithSampleRate(0))}, ok)
		_, _ = run(t.Context(), route.Params{})
		assert.Empty(t, logs.String())
	})
}

func TestSampled(t *testing.T) {
	t.Parallel()

	assert.True(t, sampled("", 0.1))
	assert.True(t, sampled("x", 1))
	assert.False(t, sampled("x", 0))
	assert.Equal(t, sampled("req-42", 0.5), sampled("req-42", 0.5))

	hits := 0
	for i := range 1000 {
		if sampled(string(rune('a'+i%26))+time.Duration(i).String(), 0.5) {
			hits++
		}
	}
	assert.InDelta(t, 500, hits, 120)
}

func TestWithRouter(t *testing.T) {
	t.Parallel()

	logger, logs := bufferLogger()
	r := routing.MustNew()
	r.Use(
		route.Func(Recover(WithRecoverLogger(logger))),
		route.Func(RequestID()),
		route.Func(AccessLog(WithAccessLogger(logger))),
	)
	r.GET("/boom", route.Func(panics))
	r.GET("/id", route.Func(echoID))
	r.MustBuild(t.Context())

	out, err := r.Dispatch(t.Context(), "/id", "GET", "", nil, nil)
	require.NoError(t, err)
	assert.Regexp(t, uuidV7, out)

	_, err = r.Dispatch(t.Context(), "/boom", "GET", "", nil, nil)
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, logs.String(), "panic recovered")
}
