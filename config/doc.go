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

// Package config loads the settings of a routing deployment.
//
// Settings are read from any number of sources merged in order, so later
// sources override earlier ones. Keys are case-insensitive.
//
//	l := config.MustNew(
//	    config.WithFile("routing.toml"),
//	    config.WithEnv("ROUTING_"),
//	)
//	s, err := l.Load(ctx)
//
// Files are decoded by extension (.toml, .yaml, .yml, .json). Environment
// variables are stripped of the prefix, lowercased, and nested on double
// underscores: ROUTING_CACHE__DRIVER=sqlite sets cache.driver, while
// ROUTING_DEFAULT_PATTERN sets default_pattern.
//
// A key in Consul can be layered on top with [WithConsul].
//
// After merging, values are bound to [Settings], fields still at their zero
// value receive the default from their `default` tag, and the result is
// checked against an embedded JSON Schema and [Settings.Validate].
package config
