// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/index"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the derived indexes",
		Long:  "Rebuild the hierarchy closure, the search index and the cross-map index from the imported release.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			if lenient, _ := cmd.Flags().GetBool("lenient"); lenient {
				a.cfg.Index.StrictReferences = false
			}
			report, err := index.Build(cmd.Context(), b, a.indexOptions())
			if err != nil {
				return err
			}
			a.printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().Bool("lenient", false, "log dangling refset references instead of failing")

	return cmd
}

func (a *app) printReport(cmd *cobra.Command, r *index.Report) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d concepts, %d search documents, %d map targets in %s\n",
		r.Concepts, r.SearchDocuments, r.CrossMapTargets, r.Elapsed.Round(time.Millisecond))
	if len(r.Dangling) > 0 {
		a.log.Warn("indexes built over dangling refset references", "count", len(r.Dangling))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d dangling refset references (see log)\n", len(r.Dangling))
	}
}
