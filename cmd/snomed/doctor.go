// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/store"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the configuration, the database file, the derived indexes and the free disk space.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDoctor(cmd)
		},
	}
}

func (a *app) runDoctor(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	path := a.cfg.Storage.Path

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", a.checkConfig},
		{"Database", func() string { return checkDatabase(path) }},
		{"Indexes", func() string { return a.checkIndexes(cmd.Context()) }},
		{"Disk Space", func() string { return checkDiskSpace(filepath.Dir(path)) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("snomed %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func (a *app) checkConfig() string {
	if cfgFile := a.v.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkDatabase(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("no database at %s (run 'snomed import')", path)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s (%s)", path, formatBytes(uint64(info.Size())))
}

func (a *app) checkIndexes(ctx context.Context) string {
	b, err := store.Open(&store.StorageConfig{
		Backend:  a.cfg.Storage.Backend,
		Path:     a.cfg.Storage.Path,
		ReadOnly: true,
		Logger:   a.log.SugaredLogger,
	})
	if err != nil {
		return "unavailable"
	}
	defer func() { _ = b.Close() }()

	missing, err := index.Missing(ctx, b)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	if len(missing) > 0 {
		return fmt.Sprintf("missing %s (run 'snomed index')", strings.Join(missing, ", "))
	}

	stats, err := b.Statistics(ctx)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	release := "unknown release"
	if !stats.LatestEffective.IsZero() {
		release = "release " + snomed.FormatEffectiveTime(stats.LatestEffective)
	}
	return fmt.Sprintf("built, %d concepts, %s", stats.Concepts, release)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
