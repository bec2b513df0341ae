// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/terminology"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func joinArgs(args []string) string {
	return strings.Join(args, ",")
}

func newSubsumesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "subsumes CONCEPT SUBSUMER",
		Short: "Test whether SUBSUMER subsumes CONCEPT",
		Long:  "Print true when SUBSUMER is CONCEPT itself or one of its IS-A ancestors.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := snomed.ParseIDs(joinArgs(args))
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				ok, err := svc.SubsumedBy(cmd.Context(), ids[0], ids[1])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			})
		},
	}
}

func newParentsCmd(a *app) *cobra.Command {
	return closureCmd(a, "parents", "List every IS-A ancestor of a concept",
		func(svc *terminology.Terminology) func(context.Context, uint64) ([]uint64, error) {
			return svc.GetAllParents
		})
}

func newChildrenCmd(a *app) *cobra.Command {
	return closureCmd(a, "children", "List every IS-A descendant of a concept",
		func(svc *terminology.Terminology) func(context.Context, uint64) ([]uint64, error) {
			return svc.GetAllChildren
		})
}

func closureCmd(a *app, name, short string, pick func(*terminology.Terminology) func(context.Context, uint64) ([]uint64, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snomed.ParseID(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				ids, err := pick(svc)(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd, ids)
			})
		},
	}
}
