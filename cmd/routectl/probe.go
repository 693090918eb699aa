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
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rivaas.dev/routing/metrics"
	"rivaas.dev/routing/route"
)

// ProbeResult reports how a request resolves and what its pipeline runs.
type ProbeResult struct {
	Route    string            `json:"route" yaml:"route"`
	Template string            `json:"template" yaml:"template"`
	Static   bool              `json:"static" yaml:"static"`
	Captures map[string]string `json:"captures,omitempty" yaml:"captures,omitempty"`
	Suffix   string            `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Reply    any               `json:"reply" yaml:"reply"`
}

func newProbeCmd(o *rootOptions) *cobra.Command {
	var (
		domain string
		output string
		dirs   []string
		traced bool
	)
	cmd := &cobra.Command{
		Use:   "probe METHOD PATH",
		Short: "Resolve one request against the compiled table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			if traced {
				stop, err := traceTo(cmd.ErrOrStderr(), s)
				if err != nil {
					return err
				}
				defer stop()
			}

			r, err := s.router(cmd.Context(), dirs)
			if err != nil {
				return err
			}
			method, path := strings.ToUpper(args[0]), args[1]
			m, err := r.Resolve(path, method, domain)
			if err != nil {
				return err
			}
			reply, err := r.Dispatch(cmd.Context(), path, method, domain, route.Params{}, nil)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), output, ProbeResult{
				Route:    m.Route.ID(),
				Template: m.Template,
				Static:   m.Static(),
				Captures: m.Captures,
				Suffix:   m.Suffix,
				Reply:    reply,
			})
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "request host")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "source directories (default: configured sources)")
	cmd.Flags().BoolVar(&traced, "trace", false, "print the dispatch span to stderr")

	return cmd
}

// traceTo replaces the session recorder with one that writes its span to w.
func traceTo(w io.Writer, s *session) (func(), error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	rec, err := metrics.New(
		metrics.WithMeterProvider(sdkmetric.NewMeterProvider()),
		metrics.WithTracerProvider(tp),
		metrics.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		_ = s.recorder.Shutdown(context.Background())
	}
	s.recorder = rec

	return func() { _ = tp.Shutdown(context.Background()) }, nil
}
