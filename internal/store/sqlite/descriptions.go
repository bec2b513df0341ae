// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

const descriptionColumns = `id, effective_time, active, module_id, concept_id, language_code, type_id, term, case_significance_id`

func scanDescription(s rowScanner) (*snomed.Description, error) {
	var (
		d  snomed.Description
		et int
	)
	if err := s.Scan(&d.ID, &et, &d.Active, &d.ModuleID, &d.ConceptID, &d.LanguageCode, &d.TypeID, &d.Term, &d.CaseSignificanceID); err != nil {
		return nil, err
	}
	d.EffectiveTime = snomed.EffectiveTimeFromInt(et)
	return &d, nil
}

type acceptabilityRow struct {
	descriptionID uint64
	refsetID      uint64
	acceptability uint64
}

func scanAcceptability(s rowScanner) (acceptabilityRow, error) {
	var r acceptabilityRow
	err := s.Scan(&r.descriptionID, &r.refsetID, &r.acceptability)
	return r, err
}

// attachAcceptability fills Description.Acceptability from the active
// language refset items selected by the where clause.
func (b *Backend) attachAcceptability(ctx context.Context, descs []*snomed.Description, where string, args ...any) error {
	if len(descs) == 0 {
		return nil
	}
	rows, err := collect(ctx, b.db, scanAcceptability,
		`SELECT referenced_component_id, refset_id, acceptability_id FROM refset_items
WHERE active = 1 AND acceptability_id <> 0 AND `+where, args...)
	if err != nil {
		return err
	}

	byID := make(map[uint64]*snomed.Description, len(descs))
	for _, d := range descs {
		byID[d.ID] = d
	}
	for _, r := range rows {
		d, ok := byID[r.descriptionID]
		if !ok {
			continue
		}
		if d.Acceptability == nil {
			d.Acceptability = make(map[uint64]uint64)
		}
		d.Acceptability[r.refsetID] = r.acceptability
	}
	return nil
}

// GetDescription returns the latest version of a description.
func (b *Backend) GetDescription(ctx context.Context, id uint64) (*snomed.Description, error) {
	row := b.db.QueryRowContext(ctx, `SELECT `+descriptionColumns+` FROM descriptions WHERE id = ?`, id)
	d, err := scanDescription(row)
	if isNoRows(err) {
		return nil, store.DescriptionNotFound(id)
	}
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "getting description %d: %w", id, err)
	}
	descs := []*snomed.Description{d}
	if err := b.attachAcceptability(ctx, descs, `referenced_component_id = ?`, id); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDescriptions returns every description of a concept ordered by id.
func (b *Backend) GetDescriptions(ctx context.Context, conceptID uint64) ([]*snomed.Description, error) {
	descs, err := collect(ctx, b.db, scanDescription,
		`SELECT `+descriptionColumns+` FROM descriptions WHERE concept_id = ? ORDER BY id`, conceptID)
	if err != nil {
		return nil, err
	}
	if err := b.attachAcceptability(ctx, descs,
		`referenced_component_id IN (SELECT id FROM descriptions WHERE concept_id = ?)`, conceptID); err != nil {
		return nil, err
	}
	return descs, nil
}

// GetDescriptionHistory returns every imported version of a description.
// Acceptability is not versioned and is left empty.
func (b *Backend) GetDescriptionHistory(ctx context.Context, id uint64) ([]*snomed.Description, error) {
	out, err := collect(ctx, b.db, scanDescription,
		`SELECT `+descriptionColumns+` FROM descriptions_history WHERE id = ? ORDER BY effective_time`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, store.DescriptionNotFound(id)
	}
	return out, nil
}
