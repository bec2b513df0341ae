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

const relationshipColumns = `id, effective_time, active, module_id, source_id, destination_id, relationship_group, type_id, characteristic_type_id, modifier_id`

func scanRelationship(s rowScanner) (*snomed.Relationship, error) {
	var (
		r  snomed.Relationship
		et int
	)
	if err := s.Scan(&r.ID, &et, &r.Active, &r.ModuleID, &r.SourceID, &r.DestinationID, &r.Group, &r.TypeID, &r.CharacteristicTypeID, &r.ModifierID); err != nil {
		return nil, err
	}
	r.EffectiveTime = snomed.EffectiveTimeFromInt(et)
	return &r, nil
}

// GetRelationships returns every relationship with the concept at the given
// end, active or not.
func (b *Backend) GetRelationships(ctx context.Context, conceptID uint64, dir store.Direction) ([]*snomed.Relationship, error) {
	column := "source_id"
	if dir == store.AsDestination {
		column = "destination_id"
	}
	return collect(ctx, b.db, scanRelationship,
		`SELECT `+relationshipColumns+` FROM relationships WHERE `+column+` = ? ORDER BY type_id, relationship_group, id`, conceptID)
}

// GetRelationshipHistory returns every imported version of a relationship.
func (b *Backend) GetRelationshipHistory(ctx context.Context, id uint64) ([]*snomed.Relationship, error) {
	out, err := collect(ctx, b.db, scanRelationship,
		`SELECT `+relationshipColumns+` FROM relationships_history WHERE id = ? ORDER BY effective_time`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sigilerr.New(sigilerr.CodeStoreRelationshipNotFound, "relationship not found", sigilerr.Field("relationship_id", id))
	}
	return out, nil
}

// StreamRelationships yields the active relationships of one type.
func (b *Backend) StreamRelationships(ctx context.Context, typeID uint64) iter.Seq2[*snomed.Relationship, error] {
	return stream(ctx, b.db, scanRelationship,
		`SELECT `+relationshipColumns+` FROM relationships WHERE type_id = ? AND active = 1 ORDER BY source_id, id`, typeID)
}
