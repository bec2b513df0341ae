// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/expression"
	"github.com/sigil-dev/snomed/internal/terminology"
)

func newParseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse EXPRESSION",
		Short: "Parse a compositional grammar expression",
		Long: "Parse a SNOMED CT compositional grammar expression and print it in canonical form. " +
			"Unless --offline is set, every referenced concept must exist in the database.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			offline, _ := cmd.Flags().GetBool("offline")
			tree, _ := cmd.Flags().GetBool("tree")

			show := func(expr *expression.Expression) error {
				if tree {
					return render(cmd, expr)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), expr.String())
				return err
			}

			if offline {
				expr, err := expression.Parse(text)
				if err != nil {
					return err
				}
				return show(expr)
			}
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				expr, err := svc.ParseExpression(cmd.Context(), text)
				if err != nil {
					return err
				}
				return show(expr)
			})
		},
	}

	cmd.Flags().Bool("offline", false, "check the syntax only, without opening the database")
	cmd.Flags().Bool("tree", false, "print the parsed structure instead of the canonical form")

	return cmd
}
