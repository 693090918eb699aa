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

// Route is a leaf definition carrying the handler that ends its pipeline.
type Route struct {
	Definition
	handler HandlerRef
}

func newRoute(paths []string, handler HandlerRef, methods []string) *Route {
	r := &Route{
		Definition: newDefinition(NodeRoute, paths),
		handler:    handler,
	}
	if len(methods) > 0 {
		r.methods = normalizeSet(methods, upper)
	}

	return r
}

// Handler returns the terminal handler reference.
func (r *Route) Handler() HandlerRef {
	return r.handler
}

// WhereInt constrains name to decimal digits.
func (r *Route) WhereInt(name string) *Route {
	r.Where(name, ConstraintInt.Fragment())
	return r
}

// WhereFloat constrains name to a decimal or exponent notation number.
func (r *Route) WhereFloat(name string) *Route {
	r.Where(name, ConstraintFloat.Fragment())
	return r
}

// WhereUUID constrains name to a canonical UUID.
func (r *Route) WhereUUID(name string) *Route {
	r.Where(name, ConstraintUUID.Fragment())
	return r
}

// WhereDate constrains name to an RFC 3339 full-date.
func (r *Route) WhereDate(name string) *Route {
	r.Where(name, ConstraintDate.Fragment())
	return r
}

// WhereDateTime constrains name to an RFC 3339 date-time.
func (r *Route) WhereDateTime(name string) *Route {
	r.Where(name, ConstraintDateTime.Fragment())
	return r
}

// WhereEnum constrains name to one of values.
func (r *Route) WhereEnum(name string, values ...string) *Route {
	r.Where(name, EnumFragment(values...))
	return r
}
