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

package compiler

import "strings"

// Normalize returns the canonical form of a path template or request path.
//
// The result always starts with a single slash, contains no empty segments
// and has no trailing slash unless it is the root. When caseSensitive is
// false, literal segments are lower-cased; variable tokens keep their case so
// that variable names still line up with their constraint patterns.
//
// Normalize is idempotent.
func Normalize(path string, caseSensitive bool) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(path) + 1)
	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		if caseSensitive || isVariableToken(seg) {
			b.WriteString(seg)
			continue
		}
		b.WriteString(strings.ToLower(seg))
	}

	if b.Len() == 0 {
		return "/"
	}

	return b.String()
}

// Join concatenates a prefix and a path and normalizes the result.
func Join(prefix, path string, caseSensitive bool) string {
	switch {
	case prefix == "" || prefix == "/":
		return Normalize(path, caseSensitive)
	case path == "" || path == "/":
		return Normalize(prefix, caseSensitive)
	}

	return Normalize(prefix+"/"+path, caseSensitive)
}

// SegmentCount returns the number of segments of a normalized path.
// The root path has zero segments.
func SegmentCount(path string) int {
	if path == "" || path == "/" {
		return 0
	}

	n := strings.Count(path, "/")
	if path[0] != '/' {
		n++
	}

	return n
}

// SplitSuffix separates a request path from its pseudo-static extension at
// the first dot. The returned suffix is empty when the path has no dot.
func SplitSuffix(path string) (string, string) {
	before, after, found := strings.Cut(path, ".")
	if !found {
		return path, ""
	}

	return before, after
}

func isVariableToken(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}
