// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Statistics counts current rows per entity kind.
func (b *Backend) Statistics(ctx context.Context) (*store.Statistics, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM concepts),
	(SELECT COUNT(*) FROM concepts WHERE active = 1),
	(SELECT COUNT(*) FROM descriptions),
	(SELECT COUNT(*) FROM relationships),
	(SELECT COUNT(*) FROM refset_items),
	(SELECT COUNT(DISTINCT refset_id) FROM refset_items),
	(SELECT COALESCE(MAX(effective_time), 0) FROM concepts)`

	var (
		s      store.Statistics
		latest int
	)
	err := b.db.QueryRowContext(ctx, q).Scan(&s.Concepts, &s.ActiveConcepts, &s.Descriptions,
		&s.Relationships, &s.RefsetItems, &s.ReferenceSets, &latest)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting rows: %w", err)
	}
	s.LatestEffective = snomed.EffectiveTimeFromInt(latest)
	return &s, nil
}
