// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package search

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Build writes one search document per description of every concept in s.
// Inactive descriptions and descriptions of inactive concepts are indexed
// with their flags so a query can opt into them.
func Build(ctx context.Context, s store.Store, w store.IndexWriter, logger *zap.SugaredLogger) (int, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	n := 0
	for concept, err := range s.StreamAllConcepts(ctx) {
		if err != nil {
			return n, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "streaming concepts")
		}
		descs, err := s.GetDescriptions(ctx, concept.ID)
		if err != nil {
			return n, err
		}
		for _, d := range descs {
			doc, tokens := Document(concept, d)
			if len(tokens) == 0 {
				continue
			}
			if err := w.PutSearchDoc(ctx, doc, tokens); err != nil {
				return n, err
			}
			n++
		}
	}

	logger.Infow("search index built", "documents", n)
	return n, nil
}

// Document converts a description into its search document and distinct
// tokens.
func Document(c *snomed.Concept, d *snomed.Description) (*store.SearchDoc, []string) {
	tokens := Tokenize(d.Term)
	doc := &store.SearchDoc{
		DescriptionID: d.ID,
		ConceptID:     d.ConceptID,
		TypeID:        d.TypeID,
		Term:          d.Term,
		TokenCount:    len(tokens),
		PhraseHash:    PhraseHash(tokens),
		Active:        d.Active,
		ConceptActive: c.Active,
	}
	for refset, acceptability := range d.Acceptability {
		switch acceptability {
		case snomed.Preferred:
			doc.Preferred = append(doc.Preferred, refset)
		case snomed.Acceptable:
			doc.Acceptable = append(doc.Acceptable, refset)
		}
	}
	slices.Sort(doc.Preferred)
	slices.Sort(doc.Acceptable)
	return doc, unique(tokens)
}
