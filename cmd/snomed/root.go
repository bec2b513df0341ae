// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/snomed/internal/config"
	"github.com/sigil-dev/snomed/internal/logger"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// app carries the configuration shared by every subcommand of one root
// command.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *logger.Logger
}

// NewRootCmd creates the root snomed command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logger.Nop()}

	root := &cobra.Command{
		Use:           "snomed",
		Short:         "SNOMED CT terminology server",
		Long:          "snomed imports SNOMED CT RF2 releases, builds the derived indexes and answers terminology queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.log.Sync()
		},
	}

	// Global flags. They map to viper keys in init.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("db", "", "path to the terminology database")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringP("output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(
		newInitCmd(a),
		newImportCmd(a),
		newIndexCmd(a),
		newStatusCmd(a),
		newDoctorCmd(a),
		newConceptCmd(a),
		newTermCmd(a),
		newSearchCmd(a),
		newSubsumesCmd(a),
		newParentsCmd(a),
		newChildrenCmd(a),
		newMapCmd(a),
		newHistoryCmd(a),
		newParseCmd(a),
		newVersionCmd(),
	)

	return root
}

// init prepares viper with defaults, env bindings, flag bindings and an
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly, then decodes the configuration and
// builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset so the bare name never matches the
		// snomed binary itself.
		v.SetConfigName("snomed")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/snomed")
		v.AddConfigPath("/etc/snomed")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	if err := v.BindPFlag("storage.path", cmd.Root().PersistentFlags().Lookup("db")); err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "binding db flag: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		v.Set("log.level", "debug")
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.log.Debug("configuration loaded", "file", v.ConfigFileUsed(), "db", cfg.Storage.Path)
	return nil
}
