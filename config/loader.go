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
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"
)

//go:embed settings.schema.json
var settingsSchema []byte

// Option configures a Loader.
type Option func(l *Loader) error

// Loader merges sources into [Settings].
//
// Loader is safe for concurrent use once constructed.
type Loader struct {
	sources    []Source
	validators []func(*Settings) error
	schema     *jsonschema.Schema
}

// WithSource appends a source.
func WithSource(src Source) Option {
	return func(l *Loader) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		l.sources = append(l.sources, src)
		return nil
	}
}

// WithFile appends a file whose format is detected from its extension.
// Environment references in path are expanded.
func WithFile(path string) Option {
	return func(l *Loader) error {
		path = os.ExpandEnv(path)
		format, err := DetectFormat(path)
		if err != nil {
			return newError("file-source", "detect-format", err)
		}
		return WithFileAs(path, format)(l)
	}
}

// WithFileAs appends a file decoded as format.
func WithFileAs(path string, format Format) Option {
	return func(l *Loader) error {
		dec, err := DecoderFor(format)
		if err != nil {
			return newError("file-source", "get-decoder", err)
		}
		l.sources = append(l.sources, NewFileSource(os.ExpandEnv(path), dec))
		return nil
	}
}

// WithContent appends in-memory content decoded as format.
func WithContent(data []byte, format Format) Option {
	return func(l *Loader) error {
		dec, err := DecoderFor(format)
		if err != nil {
			return newError("content-source", "get-decoder", err)
		}
		l.sources = append(l.sources, NewContentSource(data, dec))
		return nil
	}
}

// WithEnv appends the environment variables starting with prefix.
func WithEnv(prefix string) Option {
	return func(l *Loader) error {
		l.sources = append(l.sources, NewEnvSource(prefix))
		return nil
	}
}

// WithConsul appends a Consul key whose format is detected from its
// extension. An empty address falls back to CONSUL_HTTP_ADDR.
func WithConsul(address, key string) Option {
	return func(l *Loader) error {
		format, err := DetectFormat(key)
		if err != nil {
			return newError("consul-source", "detect-format", err)
		}
		dec, err := DecoderFor(format)
		if err != nil {
			return newError("consul-source", "get-decoder", err)
		}
		src, err := NewConsulSource(address, os.ExpandEnv(key), dec)
		if err != nil {
			return newError("consul-source", "create-client", err)
		}
		l.sources = append(l.sources, src)
		return nil
	}
}

// WithValidator adds a check run after the built-in validation.
func WithValidator(fn func(*Settings) error) Option {
	return func(l *Loader) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		l.validators = append(l.validators, fn)
		return nil
	}
}

// New creates a Loader. Option errors are joined.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{}

	var errs error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		errs = errors.Join(errs, opt(l))
	}

	schema, err := compileSchema(settingsSchema)
	if err != nil {
		errs = errors.Join(errs, newError("schema", "compile", err))
	}
	l.schema = schema

	return l, errs
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Loader {
	l, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to create loader: %v", err))
	}

	return l
}

func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("settings.schema.json", doc); err != nil {
		return nil, err
	}

	return c.Compile("settings.schema.json")
}

// Load reads every source, merges them and returns validated settings.
func (l *Loader) Load(ctx context.Context) (*Settings, error) {
	merged, err := l.merge(ctx)
	if err != nil {
		return nil, err
	}

	s := &Settings{}
	if err := decode(merged, s); err != nil {
		return nil, newError("binding", "decode", err)
	}
	if err := applyDefaults(s); err != nil {
		return nil, newError("binding", "defaults", err)
	}

	if err := l.validateSchema(s); err != nil {
		return nil, newError("schema", "validate", fmt.Errorf("%w: %v", ErrInvalidSettings, err))
	}
	if err := s.Validate(); err != nil {
		return nil, newError("settings", "validate", err)
	}
	for i, fn := range l.validators {
		if err := fn(s); err != nil {
			return nil, newError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	return s, nil
}

// MustLoad is like Load but panics on error.
func (l *Loader) MustLoad(ctx context.Context) *Settings {
	s, err := l.Load(ctx)
	if err != nil {
		panic(err)
	}

	return s
}

func (l *Loader) merge(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conf, err := src.Load(ctx)
		if err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err := mergo.Map(&merged, lowerKeys(conf), mergo.WithOverride); err != nil {
			return nil, newError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	return merged, nil
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowerKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}

	return out
}

func decode(values map[string]any, s *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           s,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}

	return dec.Decode(values)
}

func (l *Loader) validateSchema(s *Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	return l.schema.Validate(doc)
}

// applyDefaults fills zero-valued fields from their `default` tag.
func applyDefaults(target any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	return setDefaults(val.Elem())
}

func setDefaults(val reflect.Value) error {
	typ := val.Type()
	for i := range val.NumField() {
		field, sf := val.Field(i), typ.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		}
		def, ok := sf.Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefault(field, def); err != nil {
			return fmt.Errorf("default for %s: %w", sf.Name, err)
		}
	}

	return nil
}

var durationType = reflect.TypeFor[time.Duration]()

func setDefault(field reflect.Value, def string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(def)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := cast.ToDurationE(def)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := cast.ToInt64E(def)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := cast.ToBoolE(def)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(cast.ToStringSlice(strings.Split(def, ","))))
	default:
		return fmt.Errorf("unsupported type for default tag: %s", field.Kind())
	}

	return nil
}
