// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/rf2"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import DIR...",
		Short: "Import RF2 release directories",
		Long: "Import every RF2 release file found under each directory into the database, " +
			"then rebuild the derived indexes. Each directory is imported in one transaction.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args)
		},
	}

	cmd.Flags().String("release", "", "only import files of this release type (Snapshot, Full or Delta)")
	cmd.Flags().Bool("no-index", false, "skip rebuilding the derived indexes")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, dirs []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	release, _ := cmd.Flags().GetString("release")
	noIndex, _ := cmd.Flags().GetBool("no-index")

	b, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	im := rf2.NewImporter(b, a.importOptions(release))
	for _, dir := range dirs {
		sum, err := im.ImportDir(ctx, dir)
		if err != nil {
			a.log.Error("import rolled back", err, "dir", dir)
			return err
		}
		_, _ = fmt.Fprintf(out, "imported %s: %d files, %d concepts, %d descriptions, %d relationships, %d refset items in %s\n",
			dir, sum.Files, sum.Concepts, sum.Descriptions, sum.Relationships, sum.RefsetItems, sum.Elapsed.Round(time.Millisecond))
	}

	if noIndex {
		_, _ = fmt.Fprintln(out, "indexes not rebuilt; run 'snomed index' before serving")
		return nil
	}
	report, err := index.Build(ctx, b, a.indexOptions())
	if err != nil {
		return err
	}
	a.printReport(cmd, report)
	return nil
}
