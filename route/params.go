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

import "fmt"

// Params is the parameter bag passed through a pipeline. Captured path
// variables are merged into it as strings.
type Params map[string]any

// String returns the value of key formatted as a string, or "" when absent.
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Merge copies captures into p, allocating p when nil.
func (p Params) Merge(captures map[string]string) Params {
	if p == nil {
		p = make(Params, len(captures))
	}
	for k, v := range captures {
		p[k] = v
	}

	return p
}
