// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Store is the read side of the entity store. Every lookup resolves to the
// row with the latest effective time for an id.
type Store interface {
	GetConcept(ctx context.Context, id uint64) (*snomed.Concept, error)
	GetDescription(ctx context.Context, id uint64) (*snomed.Description, error)
	// GetDescriptions returns every description of the concept, active or
	// not, with active language refset acceptability attached.
	GetDescriptions(ctx context.Context, conceptID uint64) ([]*snomed.Description, error)
	GetRelationships(ctx context.Context, conceptID uint64, dir Direction) ([]*snomed.Relationship, error)
	GetReferenceSetItem(ctx context.Context, id uuid.UUID) (*snomed.ReferenceSetItem, error)
	// GetReferenceSetItems returns items referencing componentID. A zero
	// refsetID matches every refset.
	GetReferenceSetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error)
	// GetReferenceSets returns the refsets in which componentID has an
	// active item.
	GetReferenceSets(ctx context.Context, componentID uint64) ([]uint64, error)
	// IsMember reports whether componentID has an active item in any of
	// the given refsets.
	IsMember(ctx context.Context, componentID uint64, refsetIDs []uint64) (bool, error)
	InstalledReferenceSets(ctx context.Context) ([]uint64, error)
	// DanglingReferences returns up to limit refset items whose referenced
	// component is missing or of the wrong kind for the item's pattern.
	DanglingReferences(ctx context.Context, limit int) ([]*DanglingReference, error)

	// History returns every imported version, oldest first.
	GetConceptHistory(ctx context.Context, id uint64) ([]*snomed.Concept, error)
	GetDescriptionHistory(ctx context.Context, id uint64) ([]*snomed.Description, error)
	GetRelationshipHistory(ctx context.Context, id uint64) ([]*snomed.Relationship, error)

	// StreamAllConcepts yields every concept once in id order. Stop ranging
	// to cancel.
	StreamAllConcepts(ctx context.Context) iter.Seq2[*snomed.Concept, error]
	// StreamRelationships yields the active relationships of typeID.
	StreamRelationships(ctx context.Context, typeID uint64) iter.Seq2[*snomed.Relationship, error]
	StreamReferenceSetItems(ctx context.Context) iter.Seq2[*snomed.ReferenceSetItem, error]

	Statistics(ctx context.Context) (*Statistics, error)
	Close() error
}

// ImportWriter receives release rows inside a single import transaction.
// Rows with an older effective time than the stored row for the same id are
// kept in history only.
type ImportWriter interface {
	PutConcepts(ctx context.Context, concepts []*snomed.Concept) error
	PutDescriptions(ctx context.Context, descriptions []*snomed.Description) error
	PutRelationships(ctx context.Context, relationships []*snomed.Relationship) error
	PutReferenceSetItems(ctx context.Context, items []*snomed.ReferenceSetItem) error
}

// IndexWriter receives derived index entries inside a single build
// transaction. Nothing written is visible until the build commits.
type IndexWriter interface {
	PutClosure(ctx context.Context, conceptID uint64, ancestors []uint64) error
	PutSearchDoc(ctx context.Context, doc *SearchDoc, tokens []string) error
	PutCrossMapTarget(ctx context.Context, target *CrossMapTarget) error
	SetIndexStatus(ctx context.Context, name string, entries int) error
}

// IndexStore reads the persisted derived indexes.
type IndexStore interface {
	IndexStatus(ctx context.Context) ([]*IndexStatus, error)
	StreamClosure(ctx context.Context) iter.Seq2[*ClosureEntry, error]
	// StreamVocabulary yields every search token with its postings.
	StreamVocabulary(ctx context.Context) iter.Seq2[*VocabEntry, error]
	// StreamSearchDocs yields every search document in ascending
	// description id order, without its term.
	StreamSearchDocs(ctx context.Context) iter.Seq2[*SearchDoc, error]
	SearchDocs(ctx context.Context, descriptionIDs []uint64) ([]*SearchDoc, error)
	SearchDocCount(ctx context.Context) (int, error)
	// CrossMapLookup returns the map items whose normalised target equals
	// code. CrossMapPrefix matches targets starting with prefix.
	CrossMapLookup(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)
	CrossMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)
}

// Backend is a complete storage implementation: the entity store, its
// derived indexes and the two bulk write phases.
type Backend interface {
	Store
	IndexStore

	// Import runs fn inside one transaction. Either every row fn writes is
	// committed or the previous state is left untouched. A successful import
	// invalidates the derived indexes.
	Import(ctx context.Context, fn func(w ImportWriter) error) error
	// BuildIndexes replaces all derived index data with what fn writes, in
	// one transaction.
	BuildIndexes(ctx context.Context, fn func(w IndexWriter) error) error
}
