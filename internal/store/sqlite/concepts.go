// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"iter"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

const conceptColumns = `id, effective_time, active, module_id, definition_status_id`

func scanConcept(s rowScanner) (*snomed.Concept, error) {
	var (
		c  snomed.Concept
		et int
	)
	if err := s.Scan(&c.ID, &et, &c.Active, &c.ModuleID, &c.DefinitionStatusID); err != nil {
		return nil, err
	}
	c.EffectiveTime = snomed.EffectiveTimeFromInt(et)
	return &c, nil
}

// GetConcept returns the latest version of a concept.
func (b *Backend) GetConcept(ctx context.Context, id uint64) (*snomed.Concept, error) {
	row := b.db.QueryRowContext(ctx, `SELECT `+conceptColumns+` FROM concepts WHERE id = ?`, id)
	c, err := scanConcept(row)
	if isNoRows(err) {
		return nil, store.ConceptNotFound(id)
	}
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "getting concept %d: %w", id, err)
	}
	return c, nil
}

// GetConceptHistory returns every imported version of a concept.
func (b *Backend) GetConceptHistory(ctx context.Context, id uint64) ([]*snomed.Concept, error) {
	out, err := collect(ctx, b.db, scanConcept,
		`SELECT `+conceptColumns+` FROM concepts_history WHERE id = ? ORDER BY effective_time`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, store.ConceptNotFound(id)
	}
	return out, nil
}

// StreamAllConcepts yields every concept in id order.
func (b *Backend) StreamAllConcepts(ctx context.Context) iter.Seq2[*snomed.Concept, error] {
	return stream(ctx, b.db, scanConcept, `SELECT `+conceptColumns+` FROM concepts ORDER BY id`)
}
