// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Compile-time interface check.
var _ store.ImportWriter = (*importWriter)(nil)

// Upserts keep the row with the latest effective time. Equal effective
// times overwrite so that re-importing a corrected file takes effect.
const (
	upsertConcept = `INSERT INTO concepts (` + conceptColumns + `) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	effective_time = excluded.effective_time,
	active = excluded.active,
	module_id = excluded.module_id,
	definition_status_id = excluded.definition_status_id
WHERE excluded.effective_time >= concepts.effective_time`

	historyConcept = `INSERT OR REPLACE INTO concepts_history (` + conceptColumns + `) VALUES (?, ?, ?, ?, ?)`

	upsertDescription = `INSERT INTO descriptions (` + descriptionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	effective_time = excluded.effective_time,
	active = excluded.active,
	module_id = excluded.module_id,
	concept_id = excluded.concept_id,
	language_code = excluded.language_code,
	type_id = excluded.type_id,
	term = excluded.term,
	case_significance_id = excluded.case_significance_id
WHERE excluded.effective_time >= descriptions.effective_time`

	historyDescription = `INSERT OR REPLACE INTO descriptions_history (` + descriptionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	upsertRelationship = `INSERT INTO relationships (` + relationshipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	effective_time = excluded.effective_time,
	active = excluded.active,
	module_id = excluded.module_id,
	source_id = excluded.source_id,
	destination_id = excluded.destination_id,
	relationship_group = excluded.relationship_group,
	type_id = excluded.type_id,
	characteristic_type_id = excluded.characteristic_type_id,
	modifier_id = excluded.modifier_id
WHERE excluded.effective_time >= relationships.effective_time`

	historyRelationship = `INSERT OR REPLACE INTO relationships_history (` + relationshipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	upsertRefsetItem = `INSERT INTO refset_items (` + refsetItemColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	effective_time = excluded.effective_time,
	active = excluded.active,
	module_id = excluded.module_id,
	refset_id = excluded.refset_id,
	referenced_component_id = excluded.referenced_component_id,
	acceptability_id = excluded.acceptability_id,
	map_target = excluded.map_target,
	map_group = excluded.map_group,
	map_priority = excluded.map_priority,
	map_rule = excluded.map_rule,
	map_advice = excluded.map_advice,
	correlation_id = excluded.correlation_id,
	map_category_id = excluded.map_category_id,
	target_component_id = excluded.target_component_id,
	value_id = excluded.value_id,
	owl_expression = excluded.owl_expression,
	attributes = excluded.attributes
WHERE excluded.effective_time >= refset_items.effective_time`
)

// Import runs fn inside a single transaction. Derived indexes are dropped
// in the same transaction because they no longer describe the entity data.
func (b *Backend) Import(ctx context.Context, fn func(w store.ImportWriter) error) error {
	if b.readOnly {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput, "store is open read-only", sigilerr.FieldPath(b.path))
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	w := &importWriter{tx: tx, stmts: map[string]*sql.Stmt{}}
	defer w.close()

	if err := fn(w); err != nil {
		return err
	}

	if err := clearDerived(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreImportFailure, "committing import: %w", err)
	}

	b.logger.Infow("import committed",
		"concepts", w.concepts, "descriptions", w.descriptions,
		"relationships", w.relationships, "refset_items", w.refsetItems)
	return nil
}

type importWriter struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt

	concepts      int
	descriptions  int
	relationships int
	refsetItems   int
}

func (w *importWriter) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if s, ok := w.stmts[query]; ok {
		return s, nil
	}
	s, err := w.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "preparing statement: %w", err)
	}
	w.stmts[query] = s
	return s, nil
}

func (w *importWriter) close() {
	for _, s := range w.stmts {
		_ = s.Close()
	}
}

// exec runs the current-table upsert and the history insert for one row.
func (w *importWriter) exec(ctx context.Context, upsert, history string, args ...any) error {
	for _, q := range []string{upsert, history} {
		if q == "" {
			continue
		}
		s, err := w.stmt(ctx, q)
		if err != nil {
			return err
		}
		if _, err := s.ExecContext(ctx, args...); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreImportFailure, "writing row: %w", err)
		}
	}
	return nil
}

func (w *importWriter) PutConcepts(ctx context.Context, concepts []*snomed.Concept) error {
	for _, c := range concepts {
		if err := w.exec(ctx, upsertConcept, historyConcept,
			c.ID, snomed.EffectiveTimeInt(c.EffectiveTime), c.Active, c.ModuleID, c.DefinitionStatusID); err != nil {
			return sigilerr.With(err, sigilerr.FieldConceptID(c.ID))
		}
	}
	w.concepts += len(concepts)
	return nil
}

func (w *importWriter) PutDescriptions(ctx context.Context, descriptions []*snomed.Description) error {
	for _, d := range descriptions {
		if err := w.exec(ctx, upsertDescription, historyDescription,
			d.ID, snomed.EffectiveTimeInt(d.EffectiveTime), d.Active, d.ModuleID, d.ConceptID,
			d.LanguageCode, d.TypeID, d.Term, d.CaseSignificanceID); err != nil {
			return sigilerr.With(err, sigilerr.Field("description_id", d.ID))
		}
	}
	w.descriptions += len(descriptions)
	return nil
}

func (w *importWriter) PutRelationships(ctx context.Context, relationships []*snomed.Relationship) error {
	for _, r := range relationships {
		if err := w.exec(ctx, upsertRelationship, historyRelationship,
			r.ID, snomed.EffectiveTimeInt(r.EffectiveTime), r.Active, r.ModuleID, r.SourceID, r.DestinationID,
			r.Group, r.TypeID, r.CharacteristicTypeID, r.ModifierID); err != nil {
			return sigilerr.With(err, sigilerr.Field("relationship_id", r.ID))
		}
	}
	w.relationships += len(relationships)
	return nil
}

func (w *importWriter) PutReferenceSetItems(ctx context.Context, items []*snomed.ReferenceSetItem) error {
	for _, i := range items {
		attrs, err := encodeAttributes(i.Attributes)
		if err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreImportFailure, "encoding attributes of %s: %w", i.ID, err)
		}
		if err := w.exec(ctx, upsertRefsetItem, "",
			i.ID.String(), snomed.EffectiveTimeInt(i.EffectiveTime), i.Active, i.ModuleID, i.RefsetID,
			i.ReferencedComponentID, i.AcceptabilityID, i.MapTarget, i.MapGroup, i.MapPriority, i.MapRule,
			i.MapAdvice, i.CorrelationID, i.MapCategoryID, i.TargetComponentID, i.ValueID, i.OWLExpression,
			attrs); err != nil {
			return sigilerr.With(err, sigilerr.FieldRefsetID(i.RefsetID), sigilerr.Field("item_id", i.ID.String()))
		}
	}
	w.refsetItems += len(items)
	return nil
}

func clearDerived(ctx context.Context, tx *sql.Tx) error {
	for _, table := range derivedTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "clearing %s: %w", table, err)
		}
	}
	return nil
}
