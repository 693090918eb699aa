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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		in            string
		caseSensitive bool
		want          string
	}{
		{name: "empty is root", in: "", want: "/"},
		{name: "root", in: "/", want: "/"},
		{name: "missing leading slash", in: "users", want: "/users"},
		{name: "trailing slash stripped", in: "/users/", want: "/users"},
		{name: "duplicate slashes collapsed", in: "//api///users//", want: "/api/users"},
		{name: "case folded", in: "/API/Users", want: "/api/users"},
		{name: "case kept", in: "/API/Users", caseSensitive: true, want: "/API/Users"},
		{name: "variable token keeps case", in: "/Users/{UserID}", want: "/users/{UserID}"},
		{name: "surrounding spaces", in: "  /a/b  ", want: "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.in, tt.caseSensitive)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got, tt.caseSensitive), "normalization must be idempotent")
		})
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/api/users", Join("/api", "/users", false))
	assert.Equal(t, "/api/users", Join("/api/", "users/", false))
	assert.Equal(t, "/users", Join("", "/users", false))
	assert.Equal(t, "/users", Join("/", "/users", false))
	assert.Equal(t, "/api", Join("/api", "", false))
	assert.Equal(t, "/api", Join("/api", "/", false))
}

func TestSegmentCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, SegmentCount("/"))
	assert.Equal(t, 0, SegmentCount(""))
	assert.Equal(t, 1, SegmentCount("/users"))
	assert.Equal(t, 3, SegmentCount("/a/b/c"))
}

func TestSplitSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, path, suffix string
	}{
		{in: "/report.csv", path: "/report", suffix: "csv"},
		{in: "/report", path: "/report", suffix: ""},
		{in: "/a/b.tar.gz", path: "/a/b", suffix: "tar.gz"},
		{in: "/v1.2/x", path: "/v1", suffix: "2/x"},
	}

	for _, tt := range tests {
		path, suffix := SplitSuffix(tt.in)
		assert.Equal(t, tt.path, path, tt.in)
		assert.Equal(t, tt.suffix, suffix, tt.in)
	}
}
