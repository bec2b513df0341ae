// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/google/uuid"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

const refsetItemColumns = `id, effective_time, active, module_id, refset_id, referenced_component_id,
acceptability_id, map_target, map_group, map_priority, map_rule, map_advice, correlation_id,
map_category_id, target_component_id, value_id, owl_expression, attributes`

func scanRefsetItem(s rowScanner) (*snomed.ReferenceSetItem, error) {
	var (
		item  snomed.ReferenceSetItem
		et    int
		attrs string
	)
	if err := s.Scan(&item.ID, &et, &item.Active, &item.ModuleID, &item.RefsetID, &item.ReferencedComponentID,
		&item.AcceptabilityID, &item.MapTarget, &item.MapGroup, &item.MapPriority, &item.MapRule, &item.MapAdvice,
		&item.CorrelationID, &item.MapCategoryID, &item.TargetComponentID, &item.ValueID, &item.OWLExpression, &attrs); err != nil {
		return nil, err
	}
	item.EffectiveTime = snomed.EffectiveTimeFromInt(et)
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &item.Attributes); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetReferenceSetItem returns one refset item by its identifier.
func (b *Backend) GetReferenceSetItem(ctx context.Context, id uuid.UUID) (*snomed.ReferenceSetItem, error) {
	row := b.db.QueryRowContext(ctx, `SELECT `+refsetItemColumns+` FROM refset_items WHERE id = ?`, id.String())
	item, err := scanRefsetItem(row)
	if isNoRows(err) {
		return nil, store.RefsetItemNotFound(id)
	}
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "getting refset item %s: %w", id, err)
	}
	return item, nil
}

// GetReferenceSetItems returns items referencing componentID, optionally
// restricted to one refset.
func (b *Backend) GetReferenceSetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error) {
	if refsetID == 0 {
		return collect(ctx, b.db, scanRefsetItem,
			`SELECT `+refsetItemColumns+` FROM refset_items WHERE referenced_component_id = ? ORDER BY refset_id, map_group, map_priority, id`,
			componentID)
	}
	return collect(ctx, b.db, scanRefsetItem,
		`SELECT `+refsetItemColumns+` FROM refset_items WHERE referenced_component_id = ? AND refset_id = ? ORDER BY map_group, map_priority, id`,
		componentID, refsetID)
}

// GetReferenceSets returns the refsets with an active item for componentID.
func (b *Backend) GetReferenceSets(ctx context.Context, componentID uint64) ([]uint64, error) {
	return collect(ctx, b.db, scanID,
		`SELECT DISTINCT refset_id FROM refset_items WHERE referenced_component_id = ? AND active = 1 ORDER BY refset_id`,
		componentID)
}

// IsMember reports whether componentID is an active member of any refset.
func (b *Backend) IsMember(ctx context.Context, componentID uint64, refsetIDs []uint64) (bool, error) {
	if len(refsetIDs) == 0 {
		return false, nil
	}
	args := append([]any{componentID}, idArgs(refsetIDs)...)
	var one int
	err := b.db.QueryRowContext(ctx,
		`SELECT 1 FROM refset_items WHERE referenced_component_id = ? AND active = 1 AND refset_id IN (`+placeholders(len(refsetIDs))+`) LIMIT 1`,
		args...).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "checking refset membership: %w", err)
	}
	return true, nil
}

// InstalledReferenceSets lists every refset with at least one item.
func (b *Backend) InstalledReferenceSets(ctx context.Context) ([]uint64, error) {
	return collect(ctx, b.db, scanID, `SELECT DISTINCT refset_id FROM refset_items ORDER BY refset_id`)
}

// StreamReferenceSetItems yields every refset item.
func (b *Backend) StreamReferenceSetItems(ctx context.Context) iter.Seq2[*snomed.ReferenceSetItem, error] {
	return stream(ctx, b.db, scanRefsetItem, `SELECT `+refsetItemColumns+` FROM refset_items ORDER BY refset_id, referenced_component_id`)
}

func scanDangling(s rowScanner) (*store.DanglingReference, error) {
	var d store.DanglingReference
	err := s.Scan(&d.ItemID, &d.RefsetID, &d.ComponentID, &d.Reason)
	return &d, err
}

// DanglingReferences finds items whose referenced component is missing.
// Language refset items must reference a description.
func (b *Backend) DanglingReferences(ctx context.Context, limit int) ([]*store.DanglingReference, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT r.id, r.refset_id, r.referenced_component_id, 'language item does not reference a description'
FROM refset_items r
WHERE r.acceptability_id <> 0
  AND NOT EXISTS (SELECT 1 FROM descriptions d WHERE d.id = r.referenced_component_id)
UNION ALL
SELECT r.id, r.refset_id, r.referenced_component_id, 'referenced component does not exist'
FROM refset_items r
WHERE r.acceptability_id = 0
  AND NOT EXISTS (SELECT 1 FROM concepts c WHERE c.id = r.referenced_component_id)
  AND NOT EXISTS (SELECT 1 FROM descriptions d WHERE d.id = r.referenced_component_id)
  AND NOT EXISTS (SELECT 1 FROM relationships x WHERE x.id = r.referenced_component_id)
LIMIT ?`
	return collect(ctx, b.db, scanDangling, q, limit)
}
