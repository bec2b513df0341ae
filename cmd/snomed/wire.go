// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/logger"
	"github.com/sigil-dev/snomed/internal/rf2"
	"github.com/sigil-dev/snomed/internal/store"
	_ "github.com/sigil-dev/snomed/internal/store/sqlite" // registers the sqlite backend
	"github.com/sigil-dev/snomed/internal/terminology"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// component returns the logger of one subsystem, tagged with the database
// it works on.
func (a *app) component(name string) *logger.Logger {
	return a.log.Named(name).With("db", a.cfg.Storage.Path)
}

// openStore opens the configured database for writing, creating it when
// missing.
func (a *app) openStore() (store.Backend, error) {
	return store.Open(&store.StorageConfig{
		Backend: a.cfg.Storage.Backend,
		Path:    a.cfg.Storage.Path,
		Logger:  a.component("store").SugaredLogger,
	})
}

// openService opens the configured database read-only for queries.
func (a *app) openService(ctx context.Context) (*terminology.Terminology, error) {
	opts, err := terminology.OptionsFromConfig(a.cfg, a.component("terminology").SugaredLogger)
	if err != nil {
		return nil, err
	}
	return terminology.Open(ctx, opts)
}

func (a *app) importOptions(release string) rf2.Options {
	return rf2.Options{
		Workers:   a.cfg.Import.Workers,
		BatchSize: a.cfg.Import.BatchSize,
		Release:   release,
		Logger:    a.component("rf2").SugaredLogger,
	}
}

func (a *app) indexOptions() index.Options {
	return index.Options{
		StrictReferences: a.cfg.Index.StrictReferences,
		Buffer:           a.cfg.Index.BatchSize,
		Logger:           a.component("index").SugaredLogger,
	}
}

// withService runs fn against a freshly opened service and closes it
// afterwards.
func (a *app) withService(cmd *cobra.Command, fn func(svc *terminology.Terminology) error) error {
	svc, err := a.openService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return fn(svc)
}

// render writes v in the format selected by --output.
func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return sigilerr.Wrap(err, sigilerr.CodeInternalFailure, "encoding yaml")
		}
		return enc.Close()
	default:
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown output format %q (want yaml or json)", format)
	}
}
