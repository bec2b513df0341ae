// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/terminology"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func newConceptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concept ID",
		Short: "Show a concept",
		Long: "Show a concept with its active descriptions, relationships, ancestors and refset memberships. " +
			"With --history every imported version of the concept is listed instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snomed.ParseID(args[0])
			if err != nil {
				return err
			}
			history, _ := cmd.Flags().GetBool("history")
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				if history {
					versions, err := svc.GetConceptHistory(cmd.Context(), id)
					if err != nil {
						return err
					}
					return render(cmd, versions)
				}
				ec, err := svc.GetExtendedConcept(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd, ec)
			})
		},
	}

	cmd.Flags().Bool("history", false, "list every imported version")

	return cmd
}

func newTermCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term ID...",
		Short: "Print the preferred term of concepts",
		Long:  "Print each concept as 'id |preferred term|' using the language preferences of --lang or the configuration.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := snomed.ParseIDs(joinArgs(args))
			if err != nil {
				return err
			}
			lang, _ := cmd.Flags().GetString("lang")
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				var refsets []uint64
				if lang != "" {
					if refsets, err = svc.LanguageRefsets(lang); err != nil {
						return err
					}
				}
				for _, id := range ids {
					d, err := svc.GetPreferredSynonym(cmd.Context(), id, refsets)
					if err != nil {
						return err
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d |%s|\n", id, d.Term); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().String("lang", "", "language preferences, e.g. \"en-GB,en;q=0.8\"")

	return cmd
}
