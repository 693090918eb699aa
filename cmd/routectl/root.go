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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"rivaas.dev/routing"
	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/config"
	"rivaas.dev/routing/discovery"
	"rivaas.dev/routing/metrics"
	"rivaas.dev/routing/route"
)

type rootOptions struct {
	configPath string
	envPrefix  string
	consulAddr string
	consulKey  string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "routectl",
		Short:        "Build, inspect and serve routing tables",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "settings file (toml, yaml or json)")
	flags.StringVar(&o.envPrefix, "env-prefix", "ROUTING_", "prefix of environment overrides")
	flags.StringVar(&o.consulAddr, "consul-addr", "", "Consul agent address (default $CONSUL_HTTP_ADDR)")
	flags.StringVar(&o.consulKey, "consul-key", "", "Consul KV key holding settings")

	cmd.AddCommand(
		newBuildCmd(o),
		newProbeCmd(o),
		newCacheCmd(o),
		newConfigCmd(o),
		newServeCmd(o),
	)

	return cmd
}

// settings loads the file, then environment, then Consul layers.
func (o *rootOptions) settings(ctx context.Context) (*config.Settings, error) {
	var opts []config.Option
	if o.configPath != "" {
		opts = append(opts, config.WithFile(o.configPath))
	}
	if o.envPrefix != "" {
		opts = append(opts, config.WithEnv(o.envPrefix))
	}
	if o.consulKey != "" {
		opts = append(opts, config.WithConsul(o.consulAddr, o.consulKey))
	}
	loader, err := config.New(opts...)
	if err != nil {
		return nil, err
	}

	return loader.Load(ctx)
}

// session is everything a command needs to build a router.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	cache    *cache.Cache
	recorder *metrics.Recorder
	release  func() error
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	s, err := o.settings(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger, err := s.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	c, release, err := s.OpenCache(logger)
	if err != nil {
		return nil, err
	}
	rec, err := s.NewRecorder(logger)
	if err != nil {
		return nil, errors.Join(err, release())
	}

	return &session{settings: s, logger: logger, cache: c, recorder: rec, release: release}, nil
}

// close flushes metrics and releases the cache store.
func (s *session) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if s.recorder != nil {
		errs = append(errs, s.recorder.Shutdown(ctx))
	}
	errs = append(errs, s.release())
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "session close failed", "error", err)
	}
}

// router builds a fresh router over dirs, or the configured sources when
// dirs is empty. global middleware wraps every route.
func (s *session) router(ctx context.Context, dirs []string, global ...route.HandlerRef) (*routing.Router, error) {
	if len(dirs) == 0 {
		dirs = s.settings.Sources
	}
	if len(dirs) == 0 {
		return nil, errors.New("no source directories: pass them as arguments or set sources")
	}

	opts := s.settings.RouterOptions(s.logger, s.cache, s.recorder)
	opts = append(opts, routing.WithInvoker(describer{}))
	r, err := routing.New(opts...)
	if err != nil {
		return nil, err
	}
	r.Use(global...)
	for _, dir := range dirs {
		files, err := discovery.LoadDir(r, dir)
		if err != nil {
			return nil, err
		}
		s.logger.DebugContext(ctx, "sources loaded", "dir", dir, "files", len(files))
	}
	if err := r.Build(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(v)
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)

	return err
}
