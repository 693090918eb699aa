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

// Package cache persists registration subtrees so that unchanged sources
// skip discovery on the next start.
//
// An entry is stored per (scope, unit) and carries the content hash of the
// source that produced it. [Cache.Load] returns the stored subtree only when
// the hash still matches; a stale entry is deleted and reported as a miss.
// The stored value is a [route.Declaration], so restoring it replays the
// same registration calls a fresh build would make.
//
// Two stores are provided: [FileStore], one file per unit under a
// directory per scope, and [SQLiteStore], one row per unit.
package cache
