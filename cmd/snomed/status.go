// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/terminology"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show terminology status",
		Long:  "Open the database and report entity counts, the latest release and the state of each derived index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				st, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, st)
			})
		},
	}
}
