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
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithPrometheus selects the Prometheus exporter. Serve [Recorder.Handler]
// to expose it.
func WithPrometheus() Option {
	return func(r *Recorder) { r.provider = PrometheusProvider }
}

// WithOTLP pushes to the OTLP HTTP collector at endpoint, e.g.
// "http://localhost:4318".
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.otlpEndpoint = endpoint
	}
}

// WithStdout prints snapshots to w, or stdout when w is nil.
func WithStdout(w io.Writer) Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.stdoutWriter = w
	}
}

// WithMeterProvider records into provider instead of a built-in exporter.
// The caller owns its lifecycle.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithGlobalMeterProvider registers the meter provider with otel.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) { r.registerGlobal = true }
}

// WithTracerProvider wraps every dispatch in a span from provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(r *Recorder) {
		if provider != nil {
			r.tracer = provider.Tracer(instrumentationName)
		}
	}
}

// WithServiceName sets the service.name attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) { r.serviceName = name }
}

// WithExportInterval sets the push interval of OTLP and stdout.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) { r.exportInterval = interval }
}

// WithDurationBuckets replaces [DefaultDurationBuckets].
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// WithLogger receives internal events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}
