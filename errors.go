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

package routing

import (
	"errors"
	"fmt"
	"strings"

	"rivaas.dev/routing/pipeline"
)

var (
	// ErrRouteNotFound indicates that no route resolved and no miss route
	// exists for the method.
	ErrRouteNotFound = errors.New("route not found")

	// ErrNotBuilt indicates that dispatch was attempted before Build.
	ErrNotBuilt = errors.New("router not built")

	// ErrAlreadyBuilt indicates that Build or a registration call happened
	// after Build.
	ErrAlreadyBuilt = errors.New("router already built")

	// ErrDuplicateID indicates two siblings with the same id.
	ErrDuplicateID = errors.New("duplicate route id")

	// ErrUnresolvedParent indicates a parent id that names no group.
	ErrUnresolvedParent = errors.New("unresolved parent id")

	// ErrAmbiguousParent indicates a parent id shared by several groups.
	ErrAmbiguousParent = errors.New("ambiguous parent id")

	// ErrHandlerNotCallable indicates a handler or middleware reference the
	// invoker cannot resolve.
	ErrHandlerNotCallable = pipeline.ErrNotCallable

	// ErrInvalidConfig indicates an option with an invalid value.
	ErrInvalidConfig = errors.New("invalid router configuration")
)

// NotFoundError describes an unresolved dispatch. It matches
// ErrRouteNotFound with errors.Is.
type NotFoundError struct {
	Method string
	Path   string
	Domain string
	Suffix string
}

func (e *NotFoundError) Error() string {
	if e.Suffix != "" {
		return fmt.Sprintf("route not found: %s %s (suffix %q, domain %q)", e.Method, e.Path, e.Suffix, e.Domain)
	}

	return fmt.Sprintf("route not found: %s %s (domain %q)", e.Method, e.Path, e.Domain)
}

// Is reports whether target is ErrRouteNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

// BuildError collects every fatal problem found by Build.
type BuildError struct {
	Errs []error
}

func (e *BuildError) Error() string {
	if len(e.Errs) == 1 {
		return "build routes: " + e.Errs[0].Error()
	}

	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("build routes: %d errors:\n\t%s", len(e.Errs), strings.Join(msgs, "\n\t"))
}

// Unwrap returns the collected errors.
func (e *BuildError) Unwrap() []error {
	return e.Errs
}
