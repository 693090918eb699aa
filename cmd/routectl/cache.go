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
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rivaas.dev/routing/cache"
	"rivaas.dev/routing/config"
)

func newCacheCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent route cache",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached units as scope/unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, o, func(store cache.Maintainer) error {
				keys, err := store.Keys(cmd.Context())
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}

	var scope string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached units, all of them or one scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, o, func(store cache.Maintainer) error {
				return store.Clear(cmd.Context(), scope)
			})
		},
	}
	clearCmd.Flags().StringVar(&scope, "scope", "", "clear only this scope")

	cmd.AddCommand(listCmd, clearCmd)

	return cmd
}

// withStore opens the configured store whether or not caching is enabled.
func withStore(cmd *cobra.Command, o *rootOptions, fn func(cache.Maintainer) error) error {
	s, err := o.settings(cmd.Context())
	if err != nil {
		return err
	}
	store, err := cache.Open(s.Cache.Driver, s.Cache.Location)
	if err != nil {
		return err
	}
	err = fn(store)
	if closer, ok := store.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}

	return err
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.settings(cmd.Context())
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), s, config.Format(output))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(config.FormatTOML), "output format (toml, yaml, json)")

	return cmd
}
