// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/snomed/internal/search"
	"github.com/sigil-dev/snomed/internal/terminology"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search TEXT...",
		Short: "Search descriptions",
		Long: "Rank descriptions matching every word of TEXT. Results can be restricted to " +
			"descendants of --is-a concepts and to members of --refset reference sets.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, lang, err := searchRequest(cmd, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *terminology.Terminology) error {
				if lang != "" {
					if req.LanguageRefsets, err = svc.LanguageRefsets(lang); err != nil {
						return err
					}
				}
				results, err := svc.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				return render(cmd, results)
			})
		},
	}

	flags := cmd.Flags()
	flags.Int("max-hits", 0, "maximum number of results (default from config)")
	flags.StringSlice("is-a", nil, "only concepts subsumed by one of these concepts")
	flags.StringSlice("refset", nil, "only concepts that are members of one of these refsets")
	flags.String("lang", "", "language preferences for ranking and preferred terms")
	flags.Bool("distinct", false, "keep only the best description per concept")
	flags.Bool("inactive", false, "include inactive descriptions and concepts")
	flags.String("fuzzy", "", "fuzzy matching: off, fallback or always (default from config)")

	return cmd
}

// searchRequest builds a request from the search flags. It also returns
// the raw language preference, which needs an open service to resolve.
func searchRequest(cmd *cobra.Command, text string) (*search.Request, string, error) {
	flags := cmd.Flags()
	req := &search.Request{Text: text}

	if flags.Changed("max-hits") {
		n, _ := flags.GetInt("max-hits")
		req.MaxHits = search.IntPtr(n)
	}
	if isA, _ := flags.GetStringSlice("is-a"); len(isA) > 0 {
		ids, err := snomed.ParseIDs(joinArgs(isA))
		if err != nil {
			return nil, "", err
		}
		req.Properties = map[uint64][]uint64{snomed.IsA: ids}
	}
	if refsets, _ := flags.GetStringSlice("refset"); len(refsets) > 0 {
		ids, err := snomed.ParseIDs(joinArgs(refsets))
		if err != nil {
			return nil, "", err
		}
		req.ConceptRefsets = ids
	}
	req.DistinctConcepts, _ = flags.GetBool("distinct")
	if flags.Changed("inactive") {
		inactive, _ := flags.GetBool("inactive")
		req.IncludeInactive = search.BoolPtr(inactive)
	}
	fuzzy, _ := flags.GetString("fuzzy")
	if fuzzy != "" {
		mode, err := search.ParseFuzzyMode(fuzzy)
		if err != nil {
			return nil, "", err
		}
		req.Fuzzy = mode
	}

	lang, _ := flags.GetString("lang")
	return req, lang, nil
}
