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

package route

import (
	"strings"

	"github.com/coregx/coregex"
)

// ConstraintKind names a built-in variable constraint.
type ConstraintKind uint8

const (
	ConstraintNone ConstraintKind = iota
	ConstraintInt
	ConstraintFloat
	ConstraintUUID
	ConstraintDate     // RFC3339 full-date
	ConstraintDateTime // RFC3339 date-time
	ConstraintAlpha
	ConstraintSlug
)

// Fragment returns the regex fragment for k, without anchors.
func (k ConstraintKind) Fragment() string {
	switch k {
	case ConstraintInt:
		return `\d+`
	case ConstraintFloat:
		return `-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`
	case ConstraintUUID:
		return `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}`
	case ConstraintDate:
		return `\d{4}-\d{2}-\d{2}`
	case ConstraintDateTime:
		return `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`
	case ConstraintAlpha:
		return `[A-Za-z]+`
	case ConstraintSlug:
		return `[a-z0-9]+(?:-[a-z0-9]+)*`
	default:
		return ""
	}
}

// ParseConstraintKind maps a short name such as "int" or "uuid" to its kind.
func ParseConstraintKind(name string) (ConstraintKind, bool) {
	switch strings.ToLower(name) {
	case "int", "integer", "number":
		return ConstraintInt, true
	case "float":
		return ConstraintFloat, true
	case "uuid":
		return ConstraintUUID, true
	case "date":
		return ConstraintDate, true
	case "datetime":
		return ConstraintDateTime, true
	case "alpha":
		return ConstraintAlpha, true
	case "slug":
		return ConstraintSlug, true
	default:
		return ConstraintNone, false
	}
}

// EnumFragment returns a fragment matching exactly one of values.
func EnumFragment(values ...string) string {
	escaped := make([]string, 0, len(values))
	for _, v := range values {
		escaped = append(escaped, coregex.QuoteMeta(v))
	}

	return "(?:" + strings.Join(escaped, "|") + ")"
}
