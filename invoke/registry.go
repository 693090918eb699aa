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

// Package invoke resolves [route.HandlerRef] values into callables.
//
// A [Registry] holds named functions, named instances and named types. A
// reference is resolved by one switch on its kind, then its value is adapted
// to [pipeline.Next] or [pipeline.Middleware] from one of the accepted
// function shapes:
//
//	func(context.Context, route.Params) (any, error)
//	func(route.Params) (any, error)
//	func(context.Context, route.Params) error
//	func(route.Params) any
//	func() (any, error)
//
// and for middleware, with next as [pipeline.Next] or its unnamed func type:
//
//	func(context.Context, route.Params, pipeline.Next) (any, error)
package invoke

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"rivaas.dev/routing/pipeline"
	"rivaas.dev/routing/route"
)

// Registry maps names to functions, instances and types.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	funcs     map[string]any
	instances map[string]any
	types     map[string]reflect.Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs:     make(map[string]any),
		instances: make(map[string]any),
		types:     make(map[string]reflect.Type),
	}
}

// Func registers fn under name for [route.NamedFunc] references.
func (r *Registry) Func(name string, fn any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn

	return r
}

// Instance registers v under name for [route.Bound] references.
func (r *Registry) Instance(name string, v any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = v

	return r
}

// Type registers the type of sample under name for [route.Static]
// references. Static methods are called on a fresh zero value.
func (r *Registry) Type(name string, sample any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = reflect.TypeOf(sample)

	return r
}

// Handler implements [pipeline.Invoker].
func (r *Registry) Handler(ref route.HandlerRef) (pipeline.Next, error) {
	fn, err := r.lookup(ref)
	if err != nil {
		return nil, err
	}
	if h, ok := AsHandler(fn); ok {
		return h, nil
	}

	return nil, fmt.Errorf("%w: %s has unsupported handler signature %T", pipeline.ErrNotCallable, ref, fn)
}

// Middleware implements [pipeline.Invoker].
func (r *Registry) Middleware(ref route.HandlerRef) (pipeline.Middleware, error) {
	fn, err := r.lookup(ref)
	if err != nil {
		return nil, err
	}
	if mw, ok := AsMiddleware(fn); ok {
		return mw, nil
	}

	return nil, fmt.Errorf("%w: %s has unsupported middleware signature %T", pipeline.ErrNotCallable, ref, fn)
}

func (r *Registry) lookup(ref route.HandlerRef) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch ref.Kind {
	case route.KindFunction:
		if ref.Fn != nil {
			return ref.Fn, nil
		}
		fn, ok := r.funcs[ref.Name]
		if !ok {
			return nil, fmt.Errorf("%w: function %q is not registered", pipeline.ErrNotCallable, ref.Name)
		}
		return fn, nil
	case route.KindBoundMethod:
		inst, ok := r.instances[ref.Target]
		if !ok {
			return nil, fmt.Errorf("%w: instance %q is not registered", pipeline.ErrNotCallable, ref.Target)
		}
		return method(reflect.ValueOf(inst), ref)
	case route.KindStaticMethod:
		typ, ok := r.types[ref.Target]
		if !ok {
			return nil, fmt.Errorf("%w: type %q is not registered", pipeline.ErrNotCallable, ref.Target)
		}
		return method(zero(typ), ref)
	default:
		return nil, fmt.Errorf("%w: empty reference", pipeline.ErrNotCallable)
	}
}

func method(recv reflect.Value, ref route.HandlerRef) (any, error) {
	m := recv.MethodByName(ref.Method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s has no exported method %q", pipeline.ErrNotCallable, recv.Type(), ref.Method)
	}

	return m.Interface(), nil
}

// zero returns a usable receiver for typ: a pointer to a fresh value when
// typ is a pointer type, the zero value otherwise.
func zero(typ reflect.Type) reflect.Value {
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem())
	}

	return reflect.Zero(typ)
}

// AsHandler adapts fn to a pipeline handler when it has an accepted shape.
func AsHandler(fn any) (pipeline.Next, bool) {
	switch h := fn.(type) {
	case pipeline.Next:
		return h, true
	case func(context.Context, route.Params) (any, error):
		return h, true
	case func(route.Params) (any, error):
		return func(_ context.Context, p route.Params) (any, error) {
			return h(p)
		}, true
	case func(context.Context, route.Params) error:
		return func(ctx context.Context, p route.Params) (any, error) {
			return nil, h(ctx, p)
		}, true
	case func(route.Params) any:
		return func(_ context.Context, p route.Params) (any, error) {
			return h(p), nil
		}, true
	case func() (any, error):
		return func(context.Context, route.Params) (any, error) {
			return h()
		}, true
	default:
		return nil, false
	}
}

// AsMiddleware adapts fn to a pipeline middleware when it has an accepted
// shape.
func AsMiddleware(fn any) (pipeline.Middleware, bool) {
	switch mw := fn.(type) {
	case pipeline.Middleware:
		return mw, true
	case func(context.Context, route.Params, pipeline.Next) (any, error):
		return mw, true
	case func(context.Context, route.Params, func(context.Context, route.Params) (any, error)) (any, error):
		return func(ctx context.Context, p route.Params, next pipeline.Next) (any, error) {
			return mw(ctx, p, next)
		}, true
	default:
		return nil, false
	}
}
