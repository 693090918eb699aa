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

// Package compiler turns route path templates into matchable form and holds
// the lookup tables the dispatcher reads.
//
// A template is a slash separated path whose segments are either literals or
// variables written as {name} (required) or {name?} (optional). Optional
// variables may only form a trailing run:
//
//	/users                 static, exact lookup
//	/users/{id}            dynamic, one required variable
//	/archive/{year}/{day?} dynamic, day may be omitted
//
// # Compilation
//
// Static templates never reach the regex engine. Dynamic templates compile to
// a single anchored regular expression where each variable becomes a
// capturing group built from its constraint fragment (or the configured
// default fragment), and each optional variable is wrapped together with its
// leading slash:
//
//	/archive/{year}/{day?}  =>  ^/archive/(\d{4})(?:/([^/]+))?$
//
// # Tables
//
// [Table] keeps two indices: an exact-match map for static paths and a map of
// segment buckets for dynamic patterns. A dynamic pattern is filed under every
// segment count it can match, so a request only scans the patterns that could
// possibly accept its shape. Entries inside a bucket keep insertion order and
// the first matching entry wins.
//
// Tables are built once during the router's build phase and are read-only
// afterwards; [Table.Freeze] marks that transition.
package compiler
