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

//go:build !integration

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"rivaas.dev/routing"
)

type LoaderTestSuite struct {
	suite.Suite
	dir string
}

func TestLoaderTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(LoaderTestSuite))
}

func (s *LoaderTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *LoaderTestSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *LoaderTestSuite) TestDefaults() {
	got := MustNew().MustLoad(context.Background())

	s.False(got.CaseSensitive)
	s.Equal(`[^/]+`, got.DefaultPattern)
	s.Equal(8, got.ParamWarning)
	s.Equal("file", got.Cache.Driver)
	s.Equal(".routecache", got.Cache.Location)
	s.Equal("default", got.Cache.Scope)
	s.Equal("info", got.Log.Level)
	s.Equal("text", got.Log.Format)
	s.Equal("none", got.Metrics.Provider)
	s.Equal("/metrics", got.Metrics.Path)
	s.Equal(30*time.Second, got.Metrics.Interval)
	s.Equal(":8080", got.Server.Addr)
	s.Equal(5*time.Second, got.Server.ReadHeaderTimeout)
}

func (s *LoaderTestSuite) TestLayering() {
	base := s.write("routing.toml", `
case_sensitive = true
sources = ["./api", "./admin"]

[cache]
enabled = true
driver = "sqlite"
location = "routes.db"

[server]
read_header_timeout = "2s"
`)
	override := s.write("override.yaml", `
cache:
  Scope: staging
log:
  level: debug
  format: json
`)
	env := &EnvSource{prefix: "ROUTING_", environ: func() []string {
		return []string{
			"ROUTING_CACHE__COMPRESS=true",
			"ROUTING_PARAM_WARNING=4",
			"OTHER_VALUE=ignored",
		}
	}}

	l, err := New(WithFile(base), WithFile(override), WithSource(env))
	s.Require().NoError(err)
	got, err := l.Load(context.Background())
	s.Require().NoError(err)

	s.True(got.CaseSensitive)
	s.Equal([]string{"./api", "./admin"}, got.Sources)
	s.Equal(CacheSettings{
		Enabled:  true,
		Driver:   "sqlite",
		Location: "routes.db",
		Scope:    "staging",
		Compress: true,
	}, got.Cache)
	s.Equal("debug", got.Log.Level)
	s.Equal("json", got.Log.Format)
	s.Equal(4, got.ParamWarning)
	s.Equal(2*time.Second, got.Server.ReadHeaderTimeout)
}

func (s *LoaderTestSuite) TestFileAsAndContent() {
	path := s.write("settings", `{"metrics": {"provider": "prometheus", "interval": 1000000000}}`)

	got, err := MustNew(
		WithFileAs(path, FormatJSON),
		WithContent([]byte("server:\n  addr: 127.0.0.1:9000\n"), FormatYAML),
	).Load(context.Background())
	s.Require().NoError(err)
	s.Equal("prometheus", got.Metrics.Provider)
	s.Equal(time.Second, got.Metrics.Interval)
	s.Equal("127.0.0.1:9000", got.Server.Addr)
}

func (s *LoaderTestSuite) TestSchemaViolation() {
	_, err := MustNew(WithContent([]byte(`cache = {driver = "redis"}`), FormatTOML)).Load(context.Background())
	s.Require().ErrorIs(err, ErrInvalidSettings)

	var cfgErr *Error
	s.Require().ErrorAs(err, &cfgErr)
	s.Equal("schema", cfgErr.Source)
}

func (s *LoaderTestSuite) TestValidateFailures() {
	_, err := MustNew(WithContent([]byte(`
default_pattern = "("
[metrics]
provider = "otlp"
`), FormatTOML)).Load(context.Background())
	s.Require().ErrorIs(err, ErrInvalidSettings)
	s.Contains(err.Error(), "default_pattern")
	s.Contains(err.Error(), "metrics.endpoint")
}

func (s *LoaderTestSuite) TestUnknownKey() {
	_, err := MustNew(WithContent([]byte(`{"cahce": {}}`), FormatJSON)).Load(context.Background())

	var cfgErr *Error
	s.Require().ErrorAs(err, &cfgErr)
	s.Equal("binding", cfgErr.Source)
}

func (s *LoaderTestSuite) TestMissingFile() {
	_, err := MustNew(WithFile(filepath.Join(s.dir, "absent.toml"))).Load(context.Background())
	s.Require().ErrorIs(err, os.ErrNotExist)
}

func (s *LoaderTestSuite) TestCustomValidator() {
	boom := errors.New("boom")
	_, err := MustNew(WithValidator(func(*Settings) error { return boom })).Load(context.Background())
	s.Require().ErrorIs(err, boom)
}

func (s *LoaderTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MustNew(WithEnv("ROUTING_TEST_")).Load(ctx)
	s.Require().ErrorIs(err, context.Canceled)
}

func TestNewOptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "nil source", opt: WithSource(nil)},
		{name: "nil validator", opt: WithValidator(nil)},
		{name: "unknown extension", opt: WithFile("routing.ini")},
		{name: "unknown format", opt: WithContent(nil, Format("xml"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opt)
			require.Error(t, err)
			assert.Panics(t, func() { MustNew(tt.opt) })
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]Format{
		"a.toml": FormatTOML,
		"a.YAML": FormatYAML,
		"a.yml":  FormatYAML,
		"a.json": FormatJSON,
	} {
		got, err := DetectFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}

	_, err := DetectFormat("Makefile")
	require.Error(t, err)
}

func TestEnvCodecNesting(t *testing.T) {
	t.Parallel()

	var got map[string]any
	require.NoError(t, envCodec{}.Decode([]byte("CACHE__DRIVER=sqlite\nDEFAULT_PATTERN= [a-z]+ \nbroken\n__=x\nCACHE=flat"), &got))
	assert.Equal(t, map[string]any{
		"cache":           "flat",
		"default_pattern": "[a-z]+",
	}, got)

	require.NoError(t, envCodec{}.Decode([]byte("CACHE=flat\nCACHE__DRIVER=sqlite"), &got))
	assert.Equal(t, map[string]any{"cache": map[string]any{"driver": "sqlite"}}, got)

	require.Error(t, envCodec{}.Decode(nil, new(map[string]string)))
	_, err := EncoderFor(FormatEnv)
	require.Error(t, err)
}

func TestDumpRoundTrip(t *testing.T) {
	t.Parallel()

	want := MustNew(WithContent([]byte(`
sources = ["./api"]
[cache]
enabled = true
driver = "memory"
[metrics]
provider = "stdout"
interval = "5s"
`), FormatTOML)).MustLoad(t.Context())

	for _, format := range []Format{FormatYAML, FormatJSON} {
		var buf bytes.Buffer
		require.NoError(t, Dump(&buf, want, format))

		got, err := MustNew(WithContent(buf.Bytes(), format)).Load(t.Context())
		require.NoError(t, err, buf.String())
		assert.Equal(t, want, got, format)
	}

	require.Error(t, Dump(&bytes.Buffer{}, want, FormatEnv))
}

type fakeKV struct {
	pair *api.KVPair
	err  error
}

func (f fakeKV) Get(string, *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error) {
	return f.pair, &api.QueryMeta{LastIndex: 3}, f.err
}

func TestConsulSource(t *testing.T) {
	t.Parallel()

	dec, err := DecoderFor(FormatYAML)
	require.NoError(t, err)

	src := NewConsulKVSource(fakeKV{pair: &api.KVPair{Value: []byte("log:\n  level: warn\n")}}, "routing/settings.yaml", dec)
	got, err := src.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"log": map[string]any{"level": "warn"}}, got)
	assert.Equal(t, uint64(3), src.LastIndex())

	missing, err := NewConsulKVSource(fakeKV{}, "absent.yaml", dec).Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, missing)

	down := errors.New("agent down")
	_, err = NewConsulKVSource(fakeKV{err: down}, "x.yaml", dec).Load(t.Context())
	require.ErrorIs(t, err, down)
}

func TestWithConsulAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/kv/routing/settings.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Consul-Index", "42")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]*api.KVPair{{
			Key:   "routing/settings.json",
			Value: []byte(`{"case_sensitive": true, "cache": {"scope": "edge"}}`),
		}})
	}))
	t.Cleanup(srv.Close)

	got, err := MustNew(
		WithContent([]byte(`{"cache": {"scope": "local", "driver": "memory"}}`), FormatJSON),
		WithConsul(srv.URL, "routing/settings.json"),
	).Load(t.Context())
	require.NoError(t, err)
	assert.True(t, got.CaseSensitive)
	assert.Equal(t, "edge", got.Cache.Scope)
	assert.Equal(t, "memory", got.Cache.Driver)
}

func TestSettingsWiring(t *testing.T) {
	t.Parallel()

	s := MustNew(WithContent([]byte(`
case_sensitive = true
param_warning = 3
[cache]
enabled = true
driver = "sqlite"
scope = "wired"
[metrics]
provider = "prometheus"
service_name = "edge"
`), FormatTOML)).MustLoad(t.Context())
	s.Cache.Location = filepath.Join(t.TempDir(), "routes.db")

	var logs bytes.Buffer
	logger, err := s.NewLogger(&logs)
	require.NoError(t, err)

	c, release, err := s.OpenCache(logger)
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { assert.NoError(t, release()) })

	rec, err := s.NewRecorder(logger)
	require.NoError(t, err)
	require.NotNil(t, rec)
	_, err = rec.Handler()
	require.NoError(t, err)

	r, err := routing.New(s.RouterOptions(logger, c, rec)...)
	require.NoError(t, err)
	require.NoError(t, r.Build(t.Context()))
	assert.Contains(t, logs.String(), "routes compiled")
	assert.Contains(t, logs.String(), "service=edge")
}

func TestNewRecorder(t *testing.T) {
	t.Parallel()

	s := MustNew().MustLoad(t.Context())
	rec, err := s.NewRecorder(nil)
	require.NoError(t, err)
	assert.Nil(t, rec, "provider none")

	s.Metrics.Provider = "stdout"
	rec, err = s.NewRecorder(nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NoError(t, rec.Shutdown(t.Context()))

	s.Metrics.Provider = "statsd"
	_, err = s.NewRecorder(nil)
	require.ErrorIs(t, err, ErrInvalidSettings)
}

func TestOpenCacheDisabled(t *testing.T) {
	t.Parallel()

	s := MustNew().MustLoad(t.Context())
	c, release, err := s.OpenCache(nil)
	require.NoError(t, err)
	assert.Nil(t, c)
	require.NoError(t, release())

	s.Cache.Enabled, s.Cache.Driver = true, "redis"
	_, _, err = s.OpenCache(nil)
	require.Error(t, err)
}
