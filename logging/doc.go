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

// Package logging builds the [slog.Logger] used across the routing engine.
//
// Three handlers are available: JSON for log aggregation, text for
// key=value output, and a colored console handler for local development.
// Every handler adds trace_id and span_id when the logging context carries
// an OpenTelemetry span, so dispatch logs line up with dispatch traces.
//
//	l := logging.MustNew(
//	    logging.WithConsoleHandler(),
//	    logging.WithDebugLevel(),
//	)
//	r := routing.MustNew(routing.WithLogger(l.Logger()))
package logging
