// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/terminology"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "List every imported version of a component",
		Long: "List every imported version of a concept, description or relationship, oldest first. " +
			"The component kind is read from the identifier's partition digits unless --kind names it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snomed.ParseID(args[0])
			if err != nil {
				return err
			}
			kind, _ := cmd.Flags().GetString("kind")
			partition, err := componentKind(id, kind)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				ctx := cmd.Context()
				switch partition {
				case snomed.PartitionDescription:
					versions, err := svc.GetDescriptionHistory(ctx, id)
					if err != nil {
						return err
					}
					return render(cmd, versions)
				case snomed.PartitionRelationship:
					versions, err := svc.GetRelationshipHistory(ctx, id)
					if err != nil {
						return err
					}
					return render(cmd, versions)
				default:
					versions, err := svc.GetConceptHistory(ctx, id)
					if err != nil {
						return err
					}
					return render(cmd, versions)
				}
			})
		},
	}

	cmd.Flags().String("kind", "", "component kind: concept, description or relationship")

	return cmd
}

// componentKind resolves the partition named by kind, or the one encoded
// in id when kind is empty.
func componentKind(id uint64, kind string) (snomed.Partition, error) {
	switch kind {
	case "concept":
		return snomed.PartitionConcept, nil
	case "description":
		return snomed.PartitionDescription, nil
	case "relationship":
		return snomed.PartitionRelationship, nil
	case "":
		if p := snomed.PartitionOf(id); p != snomed.PartitionUnknown {
			return p, nil
		}
		return snomed.PartitionUnknown, sigilerr.Errorf(sigilerr.CodeCLIInputInvalid,
			"cannot tell the component kind of %d; pass --kind", id)
	default:
		return snomed.PartitionUnknown, sigilerr.Errorf(sigilerr.CodeCLIInputInvalid,
			"unknown component kind %q", kind)
	}
}
