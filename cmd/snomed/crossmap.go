// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/terminology"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func newMapCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map CODE",
		Short: "Find concepts mapped to a code",
		Long: "Reverse a cross-map: list the map refset items whose target is CODE, " +
			"for example an ICD-10 code. With --prefix every target starting with CODE matches.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			refsetArg, _ := flags.GetString("refset")
			refsetID, err := snomed.ParseID(refsetArg)
			if err != nil {
				return err
			}
			prefix, _ := flags.GetBool("prefix")
			inactive, _ := flags.GetBool("inactive")

			return a.withService(cmd, func(svc *terminology.Terminology) error {
				lookup := svc.ReverseMap
				if prefix {
					lookup = svc.ReverseMapPrefix
				}
				items, err := lookup(cmd.Context(), refsetID, args[0], inactive)
				if err != nil {
					return err
				}
				return render(cmd, items)
			})
		},
	}

	cmd.Flags().String("refset", "447562003", "map refset id (default ICD-10 complex map)")
	cmd.Flags().Bool("prefix", false, "match every target starting with CODE")
	cmd.Flags().Bool("inactive", false, "include inactive map items")

	return cmd
}
