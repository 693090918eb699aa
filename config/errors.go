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

package config

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("config: invalid settings")

// Error records where loading failed.
type Error struct {
	Source    string // e.g. "source[0]", "schema", "binding"
	Operation string // e.g. "load", "merge", "validate"
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s: %v", e.Source, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(source, operation string, err error) *Error {
	return &Error{Source: source, Operation: operation, Err: err}
}
