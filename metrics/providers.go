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
	"fmt"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func (r *Recorder) initializeProvider() error {
	if r.customMeterProvider {
		r.logger.Debug("using caller-provided meter provider")
		return nil
	}

	var reader sdkmetric.Reader
	switch r.provider {
	case PrometheusProvider:
		// private registry so several recorders can coexist
		r.promRegistry = promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(r.promRegistry))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		r.promHandler = promhttp.HandlerFor(r.promRegistry, promhttp.HandlerOpts{})
		reader = exporter

	case OTLPProvider:
		exporter, err := otlpmetrichttp.New(context.Background(), otlpOptions(r.otlpEndpoint)...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))

	case StdoutProvider:
		var opts []stdoutmetric.Option
		if r.stdoutWriter != nil {
			opts = append(opts, stdoutmetric.WithWriter(r.stdoutWriter))
		}
		exporter, err := stdoutmetric.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))

	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}

	r.sdkProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r.meterProvider = r.sdkProvider
	r.logger.Debug("metrics provider initialized", "provider", r.provider)

	return nil
}

// otlpOptions turns "http://host:port/path" into exporter options. A plain
// http scheme disables TLS.
func otlpOptions(endpoint string) []otlpmetrichttp.Option {
	insecure := strings.HasPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		endpoint = endpoint[:i]
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	return opts
}
