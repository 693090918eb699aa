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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/routing"
)

const instrumentationName = "rivaas.dev/routing"

// DefaultDurationBuckets are histogram boundaries for dispatch duration in
// seconds, from ten microseconds to one second.
var DefaultDurationBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// ErrNoHandler is returned by Handler for providers without a scrape
// endpoint.
var ErrNoHandler = errors.New("metrics: provider has no HTTP handler")

// Provider names a built-in exporter.
type Provider string

const (
	// PrometheusProvider exposes a scrape handler (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints periodic snapshots.
	StdoutProvider Provider = "stdout"
)

// Recorder records one counter increment and one duration sample per
// dispatch, labeled by method, route template and outcome. When a tracer
// provider is configured it also wraps every dispatch in a span.
//
// All methods are safe for concurrent use.
type Recorder struct {
	logger *slog.Logger

	provider       Provider
	otlpEndpoint   string
	stdoutWriter   io.Writer
	exportInterval time.Duration
	buckets        []float64
	serviceName    string
	registerGlobal bool

	meterProvider       metric.MeterProvider
	customMeterProvider bool
	sdkProvider         *sdkmetric.MeterProvider
	promRegistry        *promclient.Registry
	promHandler         http.Handler

	tracer trace.Tracer

	serviceAttr attribute.KeyValue
	dispatches  metric.Int64Counter
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
}

type dispatchState struct {
	start  time.Time
	method string
	span   trace.Span
}

// New creates a Recorder. Without a provider option it uses Prometheus.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		logger:         slog.New(slog.DiscardHandler),
		provider:       PrometheusProvider,
		exportInterval: 30 * time.Second,
		buckets:        DefaultDurationBuckets,
		serviceName:    "routing",
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := r.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if r.registerGlobal {
		otel.SetMeterProvider(r.meterProvider)
	}
	if err := r.initializeInstruments(); err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics.MustNew: %v", err))
	}

	return r
}

func (r *Recorder) validate() error {
	if r.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if r.exportInterval <= 0 {
		return fmt.Errorf("export interval must be positive, got %s", r.exportInterval)
	}
	if r.customMeterProvider && r.meterProvider == nil {
		return errors.New("custom meter provider is nil")
	}
	if r.provider == OTLPProvider && r.otlpEndpoint == "" && !r.customMeterProvider {
		return errors.New("otlp provider requires an endpoint")
	}

	return nil
}

func (r *Recorder) initializeInstruments() error {
	meter := r.meterProvider.Meter(instrumentationName)
	r.serviceAttr = attribute.String("service.name", r.serviceName)

	var err error
	r.dispatches, err = meter.Int64Counter(
		"routing_dispatches",
		metric.WithDescription("Total number of dispatches by route and outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatch counter: %w", err)
	}

	r.duration, err = meter.Float64Histogram(
		"routing_dispatch_duration",
		metric.WithDescription("Duration of dispatches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.buckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatch duration histogram: %w", err)
	}

	r.active, err = meter.Int64UpDownCounter(
		"routing_dispatches_active",
		metric.WithDescription("Number of dispatches in flight"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active dispatch counter: %w", err)
	}

	return nil
}

// OnDispatchStart implements routing.ObservabilityRecorder.
func (r *Recorder) OnDispatchStart(ctx context.Context, method, path string) (context.Context, any) {
	st := &dispatchState{start: time.Now(), method: method}
	if r.tracer != nil {
		ctx, st.span = r.tracer.Start(ctx, "routing.dispatch",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("routing.method", method),
				attribute.String("routing.path", path),
			),
		)
	}
	r.active.Add(ctx, 1, metric.WithAttributes(r.serviceAttr, attribute.String("routing.method", method)))

	return ctx, st
}

// OnDispatchEnd implements routing.ObservabilityRecorder.
func (r *Recorder) OnDispatchEnd(ctx context.Context, state any, info routing.DispatchInfo) {
	st, ok := state.(*dispatchState)
	if !ok {
		return
	}

	attrs := metric.WithAttributes(
		r.serviceAttr,
		attribute.String("routing.method", info.Method),
		attribute.String("routing.route", info.Pattern),
		attribute.String("routing.outcome", string(info.Outcome)),
	)
	r.duration.Record(ctx, time.Since(st.start).Seconds(), attrs)
	r.dispatches.Add(ctx, 1, attrs)
	r.active.Add(ctx, -1, metric.WithAttributes(r.serviceAttr, attribute.String("routing.method", st.method)))

	if st.span == nil {
		return
	}
	st.span.SetName("routing.dispatch " + info.Pattern)
	st.span.SetAttributes(
		attribute.String("routing.route", info.Pattern),
		attribute.String("routing.route_id", info.RouteID),
		attribute.String("routing.outcome", string(info.Outcome)),
	)
	if info.Domain != "" {
		st.span.SetAttributes(attribute.String("routing.domain", info.Domain))
	}
	switch info.Outcome {
	case routing.OutcomeError:
		st.span.RecordError(info.Err)
		st.span.SetStatus(codes.Error, info.Err.Error())
	case routing.OutcomeNotFound:
		st.span.SetStatus(codes.Error, "route not found")
	}
	st.span.End()
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.promHandler == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, r.provider)
	}

	return r.promHandler, nil
}

// Provider returns the configured exporter.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// ForceFlush exports pending data of push providers.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.sdkProvider == nil {
		return nil
	}

	return r.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the meter provider owned by r. A provider
// passed with WithMeterProvider is left to its owner.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.sdkProvider == nil {
		return nil
	}
	if err := r.sdkProvider.Shutdown(ctx); err != nil {
		r.logger.ErrorContext(ctx, "metrics shutdown failed", "error", err)
		return fmt.Errorf("metrics shutdown: %w", err)
	}

	return nil
}
