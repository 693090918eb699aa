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
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/coregx/coregex"

	"rivaas.dev/routing"
	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/logging"
	"rivaas.dev/routing/metrics"
)

// Settings is the complete configuration of a routing deployment.
type Settings struct {
	CaseSensitive  bool     `config:"case_sensitive" json:"case_sensitive" yaml:"case_sensitive" toml:"case_sensitive"`
	DefaultPattern string   `config:"default_pattern" json:"default_pattern" yaml:"default_pattern" toml:"default_pattern" default:"[^/]+"`
	ParamWarning   int      `config:"param_warning" json:"param_warning" yaml:"param_warning" toml:"param_warning" default:"8"`
	Sources        []string `config:"sources" json:"sources,omitempty" yaml:"sources,omitempty" toml:"sources,omitempty"`

	Cache   CacheSettings   `config:"cache" json:"cache" yaml:"cache" toml:"cache"`
	Log     LogSettings     `config:"log" json:"log" yaml:"log" toml:"log"`
	Metrics MetricsSettings `config:"metrics" json:"metrics" yaml:"metrics" toml:"metrics"`
	Server  ServerSettings  `config:"server" json:"server" yaml:"server" toml:"server"`
}

// CacheSettings selects the persistent route cache.
type CacheSettings struct {
	Enabled  bool   `config:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	Driver   string `config:"driver" json:"driver" yaml:"driver" toml:"driver" default:"file"`
	Location string `config:"location" json:"location" yaml:"location" toml:"location" default:".routecache"`
	Scope    string `config:"scope" json:"scope" yaml:"scope" toml:"scope" default:"default"`
	Compress bool   `config:"compress" json:"compress" yaml:"compress" toml:"compress"`
}

// LogSettings selects the log handler.
type LogSettings struct {
	Level  string `config:"level" json:"level" yaml:"level" toml:"level" default:"info"`
	Format string `config:"format" json:"format" yaml:"format" toml:"format" default:"text"`
	Source bool   `config:"source" json:"source" yaml:"source" toml:"source"`
}

// MetricsSettings selects the metrics exporter.
type MetricsSettings struct {
	Provider    string        `config:"provider" json:"provider" yaml:"provider" toml:"provider" default:"none"`
	Endpoint    string        `config:"endpoint" json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Path        string        `config:"path" json:"path" yaml:"path" toml:"path" default:"/metrics"`
	ServiceName string        `config:"service_name" json:"service_name" yaml:"service_name" toml:"service_name" default:"routing"`
	Interval    time.Duration `config:"interval" json:"interval" yaml:"interval" toml:"interval" default:"30s"`
}

// ServerSettings configures the HTTP adapter.
type ServerSettings struct {
	Addr              string        `config:"addr" json:"addr" yaml:"addr" toml:"addr" default:":8080"`
	ReadHeaderTimeout time.Duration `config:"read_header_timeout" json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout" default:"5s"`
	ShutdownTimeout   time.Duration `config:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout" default:"10s"`
}

// Validate checks what the schema cannot express.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := coregex.Compile(s.DefaultPattern); err != nil {
		errs = append(errs, fmt.Errorf("default_pattern %q: %w", s.DefaultPattern, err))
	}
	if s.ParamWarning <= 0 {
		errs = append(errs, fmt.Errorf("param_warning must be positive, got %d", s.ParamWarning))
	}
	if s.Cache.Enabled && (s.Cache.Scope == "" || strings.Contains(s.Cache.Scope, "/")) {
		errs = append(errs, fmt.Errorf("cache.scope %q must be non-empty and contain no '/'", s.Cache.Scope))
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if s.Metrics.Provider == "otlp" && s.Metrics.Endpoint == "" {
		errs = append(errs, errors.New("metrics.endpoint is required for the otlp provider"))
	}
	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// NewLogger builds the logger described by s.Log, writing to w or stderr.
func (s *Settings) NewLogger(w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	l, err := logging.New(
		logging.WithOutput(w),
		logging.WithHandlerType(logging.HandlerType(s.Log.Format)),
		logging.WithLevel(level),
		logging.WithSource(s.Log.Source),
		logging.WithServiceName(s.Metrics.ServiceName),
	)
	if err != nil {
		return nil, err
	}

	return l.Logger(), nil
}

// OpenCache opens the route cache described by s.Cache. It returns a nil
// cache when caching is disabled. The returned func releases the store and
// is never nil.
func (s *Settings) OpenCache(logger *slog.Logger) (*cache.Cache, func() error, error) {
	release := func() error { return nil }
	if !s.Cache.Enabled {
		return nil, release, nil
	}

	store, err := cache.Open(s.Cache.Driver, s.Cache.Location)
	if err != nil {
		return nil, release, err
	}
	if closer, ok := store.(io.Closer); ok {
		release = closer.Close
	}

	opts := []cache.Option{cache.WithCompression(s.Cache.Compress)}
	if logger != nil {
		opts = append(opts, cache.WithLogger(logger))
	}

	return cache.New(store, opts...), release, nil
}

// NewRecorder builds the dispatch recorder described by s.Metrics. It
// returns nil when the provider is "none".
func (s *Settings) NewRecorder(logger *slog.Logger) (*metrics.Recorder, error) {
	opts := []metrics.Option{
		metrics.WithServiceName(s.Metrics.ServiceName),
		metrics.WithExportInterval(s.Metrics.Interval),
	}
	switch s.Metrics.Provider {
	case "", "none":
		return nil, nil
	case "prometheus":
		opts = append(opts, metrics.WithPrometheus())
	case "otlp":
		opts = append(opts, metrics.WithOTLP(s.Metrics.Endpoint))
	case "stdout":
		opts = append(opts, metrics.WithStdout(nil))
	default:
		return nil, fmt.Errorf("%w: unknown metrics provider %q", ErrInvalidSettings, s.Metrics.Provider)
	}
	if logger != nil {
		opts = append(opts, metrics.WithLogger(logger))
	}

	return metrics.New(opts...)
}

// RouterOptions translates s into router options. c and rec may be nil.
func (s *Settings) RouterOptions(logger *slog.Logger, c *cache.Cache, rec *metrics.Recorder) []routing.Option {
	opts := []routing.Option{
		routing.WithCaseSensitive(s.CaseSensitive),
		routing.WithDefaultPattern(s.DefaultPattern),
		routing.WithParamCountWarning(s.ParamWarning),
	}
	if logger != nil {
		opts = append(opts, routing.WithLogger(logger))
	}
	if c != nil {
		opts = append(opts, routing.WithRouteCache(c, s.Cache.Scope))
	}
	if rec != nil {
		opts = append(opts, routing.WithObservability(rec))
	}

	return opts
}

// Dump writes s to w in format.
func Dump(w io.Writer, s *Settings, format Format) error {
	enc, err := EncoderFor(format)
	if err != nil {
		return err
	}
	data, err := enc.Encode(s)
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", format, err)
	}
	_, err = w.Write(data)

	return err
}
