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

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// HandlerType selects the output format.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level is a log level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
}

// Logger owns a configured [slog.Logger] and its adjustable level.
//
// All methods are safe for concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar
	addSource   bool
	serviceName string

	slogger *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// New creates a Logger. The default writes text at info level to stdout.
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		handlerType: TextHandler,
		output:      os.Stdout,
	}
	l.level.Set(LevelInfo)

	for _, opt := range opts {
		opt(l)
	}

	if l.output == nil {
		return nil, ErrNilOutput
	}

	hopts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: redact,
	}

	var h slog.Handler
	switch l.handlerType {
	case JSONHandler:
		h = slog.NewJSONHandler(l.output, hopts)
	case TextHandler:
		h = slog.NewTextHandler(l.output, hopts)
	case ConsoleHandler:
		h = newConsoleHandler(l.output, hopts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandler, l.handlerType)
	}

	l.slogger = slog.New(traceHandler{h})
	if l.serviceName != "" {
		l.slogger = l.slogger.With("service", l.serviceName)
	}

	return l, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}

	return l
}

// Logger returns the configured [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.slogger
}

// SetLevel changes the minimum level of every logger derived from l.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// redact hides values of keys that commonly carry credentials.
func redact(_ []string, a slog.Attr) slog.Attr {
	switch strings.ToLower(a.Key) {
	case "password", "token", "secret", "api_key", "authorization":
		return slog.String(a.Key, "***REDACTED***")
	}

	return a
}

// WithHandlerType selects the output format.
func WithHandlerType(t HandlerType) Option {
	return func(l *Logger) { l.handlerType = t }
}

// WithJSONHandler selects JSON output.
func WithJSONHandler() Option {
	return WithHandlerType(JSONHandler)
}

// WithTextHandler selects key=value output.
func WithTextHandler() Option {
	return WithHandlerType(TextHandler)
}

// WithConsoleHandler selects colored console output.
func WithConsoleHandler() Option {
	return WithHandlerType(ConsoleHandler)
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithLevel sets the initial minimum level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level.Set(level) }
}

// WithDebugLevel is WithLevel(LevelDebug).
func WithDebugLevel() Option {
	return WithLevel(LevelDebug)
}

// WithSource records the caller's file and line.
func WithSource(enabled bool) Option {
	return func(l *Logger) { l.addSource = enabled }
}

// WithServiceName adds a service attribute to every entry.
func WithServiceName(name string) Option {
	return func(l *Logger) { l.serviceName = name }
}
