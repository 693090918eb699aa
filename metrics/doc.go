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

// Package metrics records dispatch metrics and traces through OpenTelemetry.
//
// A [Recorder] implements routing.ObservabilityRecorder:
//
//	rec := metrics.MustNew(metrics.WithPrometheus(), metrics.WithServiceName("api"))
//	r := routing.MustNew(routing.WithObservability(rec))
//	h, _ := rec.Handler() // serve on /metrics
//
// Instruments are labeled with the matched route template rather than the
// raw path, so label cardinality is bounded by the number of routes.
package metrics
