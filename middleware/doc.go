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

// Package middleware provides pipeline middleware for common cross-cutting
// concerns: panic recovery, deadlines, request ids and access logging.
//
// Every constructor returns a [pipeline.Middleware]. Register them with an
// invoker under a name, or attach them as live functions:
//
//	r.Use(
//	    route.Func(middleware.Recover()),
//	    route.Func(middleware.RequestID()),
//	    route.Func(middleware.AccessLog(middleware.WithAccessLogger(logger))),
//	)
//
// Order matters: Recover should run first so it also covers the others.
package middleware
