// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Write the commented default configuration to --path, or to ~/.config/snomed/snomed.yaml. An existing file is left untouched but still validated.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			written, err := config.WriteDefault(path)
			if err != nil {
				return err
			}
			// An existing file may predate the current keys.
			if _, err := config.Load(path); err != nil {
				return err
			}
			if !written {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s\n", path)
				return err
			}
			a.log.Info("created default config", "path", path)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().String("path", "", "where to write the config file")

	return cmd
}
