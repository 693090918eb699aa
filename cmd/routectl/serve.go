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
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rivaas.dev/routing"
	"rivaas.dev/routing/middleware"
	"rivaas.dev/routing/route"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		addr     string
		dirs     []string
		noBanner bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiled table over HTTP",
		Long: "Serve answers every request with the route it resolves to and the\n" +
			"handler and middleware that would run. Unmatched requests get 404.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			r, err := s.router(cmd.Context(), dirs,
				route.Func(middleware.Recover(middleware.WithRecoverLogger(s.logger))),
				route.Func(middleware.RequestID()),
				route.Func(middleware.AccessLog(middleware.WithAccessLogger(s.logger))),
			)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			if s.recorder != nil {
				if h, err := s.recorder.Handler(); err == nil {
					mux.Handle(s.settings.Metrics.Path, h)
				}
			}
			mux.Handle("/", dispatchHandler(r, s.logger))

			if addr == "" {
				addr = s.settings.Server.Addr
			}
			if !noBanner {
				info := bannerInfo{
					Service:  s.settings.Metrics.ServiceName,
					Addr:     addr,
					Provider: s.settings.Metrics.Provider,
					Routes:   r.Routes(),
				}
				if s.cache != nil {
					info.Cache = s.settings.Cache.Driver
				}
				if s.recorder != nil && s.settings.Metrics.Provider == "prometheus" {
					info.Metrics = s.settings.Metrics.Path
				}
				printBanner(cmd.OutOrStdout(), info)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: s.settings.Server.ReadHeaderTimeout,
			}

			return serve(cmd.Context(), srv, s.logger, s.settings.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "skip the startup banner")
	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "source directories (default: configured sources)")

	return cmd
}

// serve runs srv until ctx is done, then drains it within timeout.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	logger.InfoContext(ctx, "shutting down", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// dispatchHandler adapts HTTP requests to Dispatch. Query values and the
// X-Request-ID header seed the parameter bag and the host selects domain
// routes.
func dispatchHandler(r *routing.Router, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params := route.Params{}
		for k, v := range req.URL.Query() {
			if len(v) > 0 {
				params[k] = v[len(v)-1]
			}
		}
		if id := req.Header.Get("X-Request-ID"); id != "" {
			params[middleware.RequestIDParam] = id
		}

		out, err := r.Dispatch(req.Context(), req.URL.Path, req.Method, req.Host, params, nil)
		switch {
		case errors.Is(err, routing.ErrRouteNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			logger.ErrorContext(req.Context(), "dispatch failed", "path", req.URL.Path, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, out)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
