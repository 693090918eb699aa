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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

func newBuildCmd(o *rootOptions) *cobra.Command {
	var (
		output string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "build [dir...]",
		Short: "Compile the routes discovered in dirs and print the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			dirs := args
			if len(dirs) == 0 {
				dirs = s.settings.Sources
			}
			build := func() error {
				r, err := s.router(cmd.Context(), dirs)
				if err != nil {
					return err
				}
				if output == "table" {
					renderRoutes(colorWriter(cmd.OutOrStdout()), cmd.OutOrStdout(), r.Routes(), 120)
					return nil
				}
				return writeOutput(cmd.OutOrStdout(), output, r.Routes())
			}
			if err := build(); err != nil || !watch {
				return err
			}

			return watchDirs(cmd.Context(), s.logger, dirs, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "---")
				if err := build(); err != nil {
					s.logger.ErrorContext(cmd.Context(), "rebuild failed", "error", err)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json, table)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when a source changes")

	return cmd
}

// watchDirs calls rebuild after changes to .go files under dirs settle,
// until ctx is done.
func watchDirs(ctx context.Context, logger *slog.Logger, dirs []string, rebuild func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			return w.Add(path)
		})
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.InfoContext(ctx, "watching sources", "dirs", dirs)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if filepath.Ext(ev.Name) != ".go" || ev.Has(fsnotify.Chmod) {
				continue
			}
			logger.DebugContext(ctx, "source changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watch error", "error", err)
		case <-timer.C:
			rebuild()
		}
	}
}
