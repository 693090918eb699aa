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
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// HandlerKind tags the variant held by a [HandlerRef].
type HandlerKind uint8

const (
	// KindNone is the zero HandlerRef.
	KindNone HandlerKind = iota
	// KindFunction is a plain function, held live or by registered name.
	KindFunction
	// KindBoundMethod is a method on a named instance.
	KindBoundMethod
	// KindStaticMethod is a method looked up on a named type.
	KindStaticMethod
)

func (k HandlerKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindBoundMethod:
		return "bound_method"
	case KindStaticMethod:
		return "static_method"
	default:
		return "none"
	}
}

// HandlerRef points at a handler or middleware without resolving it.
// The invocation layer turns it into a callable with a single switch on Kind.
type HandlerRef struct {
	Kind   HandlerKind `msgpack:"kind"`
	Fn     any         `msgpack:"-"`      // live function, KindFunction only
	Name   string      `msgpack:"name"`   // registered function name, KindFunction only
	Target string      `msgpack:"target"` // instance name or type name
	Method string      `msgpack:"method"`
}

// Func references a live function value.
func Func(fn any) HandlerRef {
	return HandlerRef{Kind: KindFunction, Fn: fn}
}

// NamedFunc references a function registered by name with the invoker.
func NamedFunc(name string) HandlerRef {
	return HandlerRef{Kind: KindFunction, Name: name}
}

// Bound references method on the instance registered as instance.
func Bound(instance, method string) HandlerRef {
	return HandlerRef{Kind: KindBoundMethod, Target: instance, Method: method}
}

// Static references method on the type registered as typ.
func Static(typ, method string) HandlerRef {
	return HandlerRef{Kind: KindStaticMethod, Target: typ, Method: method}
}

// IsZero reports whether h references nothing.
func (h HandlerRef) IsZero() bool {
	return h.Kind == KindNone
}

// Symbolic reports whether h can be stored and restored without a live
// function value.
func (h HandlerRef) Symbolic() bool {
	switch h.Kind {
	case KindFunction:
		return h.Fn == nil && h.Name != ""
	case KindBoundMethod, KindStaticMethod:
		return h.Target != "" && h.Method != ""
	default:
		return false
	}
}

func (h HandlerRef) String() string {
	switch h.Kind {
	case KindFunction:
		if h.Name != "" {
			return h.Name
		}
		return funcName(h.Fn)
	case KindBoundMethod:
		return h.Target + "->" + h.Method
	case KindStaticMethod:
		return h.Target + "::" + h.Method
	default:
		return "<nil>"
	}
}

func funcName(fn any) string {
	if fn == nil {
		return "nil"
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%T", fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "unknown"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	return name
}
