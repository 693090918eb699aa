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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/routing"
	"rivaas.dev/routing/discovery"
	"rivaas.dev/routing/middleware"
	"rivaas.dev/routing/route"
)

const usersSource = `package api

//routing:controller /users -middleware=audit
type Users struct{}

//routing:route GET /{id} -where=id:int -id=users.show
func (u *Users) Show() {}

//routing:route GET /ping
func Ping() {}
`

// workspace writes an annotated source tree and a settings file whose cache
// lives in the same temporary directory.
func workspace(t *testing.T, cacheEnabled bool) (srcDir, configPath string) {
	t.Helper()

	root := t.TempDir()
	srcDir = filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "api", "users.go"), []byte(usersSource), 0o600))

	configPath = filepath.Join(root, "routing.yaml")
	settings := "log:\n  level: error\ncache:\n  enabled: " + map[bool]string{true: "true", false: "false"}[cacheEnabled] +
		"\n  location: " + filepath.Join(root, "cache") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	return srcDir, configPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-prefix", "ROUTECTL_TEST_"}, args...))
	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, false)
	out, err := run(t, "--config", cfg, "build", "-o", "json", src)
	require.NoError(t, err)

	var routes []routing.RouteInfo
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 2)

	assert.Equal(t, "/ping", routes[0].Path)
	assert.Equal(t, "api.Ping", routes[0].Handler)
	assert.True(t, routes[0].IsStatic)

	assert.Equal(t, "/users/{id}", routes[1].Path)
	assert.Equal(t, "users.show", routes[1].ID)
	assert.Equal(t, "users->Show", routes[1].Handler)
	assert.Equal(t, []string{"audit"}, routes[1].Middleware)
	assert.Equal(t, `\d+`, routes[1].Constraints["id"])
}

func TestBuildCommandYAML(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, false)
	out, err := run(t, "--config", cfg, "build", src)
	require.NoError(t, err)
	assert.Contains(t, out, "path: /users/{id}")
	assert.Contains(t, out, "handler: users->Show")
}

func TestBuildCommandTable(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, false)
	out, err := run(t, "--config", cfg, "build", "-o", "table", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Handler")
	assert.Contains(t, out, "/users/{id}")
	assert.Contains(t, out, "users->Show")
	assert.NotContains(t, out, "\x1b[", "colors are stripped off a TTY")
}

func TestPrintBanner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printBanner(&buf, bannerInfo{
		Service:  "edge",
		Addr:     ":9090",
		Metrics:  "/metrics",
		Provider: "prometheus",
		Routes:   []routing.RouteInfo{{ID: "users.show", Path: "/users/{id}", Methods: []string{"GET"}, Handler: "users->Show"}},
	})

	out := buf.String()
	assert.Contains(t, out, "http://0.0.0.0:9090")
	assert.Contains(t, out, "[prometheus]")
	assert.Contains(t, out, "Disabled", "cache line")
	assert.Contains(t, out, "users.show")
}

func TestBuildCommandErrors(t *testing.T) {
	t.Parallel()

	_, cfg := workspace(t, false)

	_, err := run(t, "--config", cfg, "build")
	require.ErrorContains(t, err, "no source directories")

	_, err = run(t, "--config", cfg, "build", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "build")
	require.Error(t, err)
}

func TestProbeCommand(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, false)
	out, err := run(t, "--config", cfg, "probe", "get", "/users/42", "-d", src, "-o", "json")
	require.NoError(t, err)

	var got struct {
		Route    string            `json:"route"`
		Template string            `json:"template"`
		Static   bool              `json:"static"`
		Captures map[string]string `json:"captures"`
		Reply    Reply             `json:"reply"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "users.show", got.Route)
	assert.Equal(t, "/users/{id}", got.Template)
	assert.False(t, got.Static)
	assert.Equal(t, map[string]string{"id": "42"}, got.Captures)
	assert.Equal(t, "users->Show", got.Reply.Handler)
	assert.Equal(t, []string{"audit"}, got.Reply.Middleware)
	assert.Equal(t, "42", got.Reply.Params["id"])

	_, err = run(t, "--config", cfg, "probe", "GET", "/users/abc", "-d", src)
	require.ErrorIs(t, err, routing.ErrRouteNotFound)
}

func TestProbeTrace(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, false)
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--env-prefix", "ROUTECTL_TEST_", "--config", cfg, "probe", "GET", "/ping", "-d", src, "--trace"})
	require.NoError(t, cmd.ExecuteContext(t.Context()))

	assert.Contains(t, out.String(), "handler: api.Ping")
	assert.Contains(t, errOut.String(), `"Name": "routing.dispatch /ping"`)
}

func TestCacheCommands(t *testing.T) {
	t.Parallel()

	src, cfg := workspace(t, true)
	_, err := run(t, "--config", cfg, "build", src)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "cache", "list")
	require.NoError(t, err)
	keys := strings.Fields(out)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "default/"), keys[0])

	_, err = run(t, "--config", cfg, "cache", "clear", "--scope", "other")
	require.NoError(t, err)
	out, err = run(t, "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 1)

	_, err = run(t, "--config", cfg, "cache", "clear")
	require.NoError(t, err)
	out, err = run(t, "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()

	_, cfg := workspace(t, true)
	out, err := run(t, "--config", cfg, "config", "-o", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "[^/]+", got["default_pattern"])
	cache, ok := got["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, cache["enabled"])

	_, err = run(t, "--config", cfg, "config", "-o", "env")
	require.Error(t, err)
}

func TestDispatchHandler(t *testing.T) {
	t.Parallel()

	src, _ := workspace(t, false)
	r := routing.MustNew(routing.WithInvoker(describer{}))
	_, err := discovery.LoadDir(r, src)
	require.NoError(t, err)
	require.NoError(t, r.Build(t.Context()))
	h := dispatchHandler(r, routing.NoopLogger())

	tests := []struct {
		name   string
		path   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name:   "matched with query",
			path:   "/users/7?expand=true",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				t.Helper()
				var reply Reply
				require.NoError(t, json.Unmarshal(body, &reply))
				assert.Equal(t, "users->Show", reply.Handler)
				assert.Equal(t, "7", reply.Params["id"])
				assert.Equal(t, "true", reply.Params["expand"])
			},
		},
		{
			name:   "not found",
			path:   "/nope",
			status: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				t.Helper()
				assert.Contains(t, string(body), "error")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			tt.check(t, w.Body.Bytes())
		})
	}
}

func TestDispatchHandlerMiddleware(t *testing.T) {
	t.Parallel()

	src, _ := workspace(t, false)
	r := routing.MustNew(routing.WithInvoker(describer{}))
	r.Use(route.Func(middleware.Recover()), route.Func(middleware.RequestID()))
	_, err := discovery.LoadDir(r, src)
	require.NoError(t, err)
	require.NoError(t, r.Build(t.Context()))

	req := httptest.NewRequest(http.MethodGet, "/users/9", nil)
	req.Header.Set("X-Request-ID", "req-9")
	w := httptest.NewRecorder()
	dispatchHandler(r, routing.NoopLogger()).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reply Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "req-9", reply.RequestID)
	assert.Equal(t, []string{"audit"}, reply.Middleware, "live middleware runs, named middleware is described")
}

func TestServeShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, routing.NoopLogger(), time.Second) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestWatchDirs(t *testing.T) {
	t.Parallel()

	src, _ := workspace(t, false)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rebuilt := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchDirs(ctx, routing.NoopLogger(), []string{src}, func() {
			select {
			case rebuilt <- struct{}{}:
			default:
			}
		})
	}()

	// the watcher registers asynchronously; keep touching until it notices
	file := filepath.Join(src, "api", "users.go")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte(usersSource+"\n"), 0o600)
		select {
		case <-rebuilt:
			return true
		default:
			return false
		}
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
