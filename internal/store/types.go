// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"time"

	"github.com/google/uuid"
)

// Direction selects which end of a relationship a concept is on.
type Direction int

const (
	// AsSource selects relationships whose source is the concept.
	AsSource Direction = iota
	// AsDestination selects relationships pointing at the concept.
	AsDestination
)

func (d Direction) String() string {
	if d == AsDestination {
		return "destination"
	}
	return "source"
}

// Statistics counts the current rows of each entity kind.
type Statistics struct {
	Concepts        int64
	ActiveConcepts  int64
	Descriptions    int64
	Relationships   int64
	RefsetItems     int64
	ReferenceSets   int64
	LatestEffective time.Time
}

// DanglingReference is a refset item that does not resolve to a component
// of the expected kind.
type DanglingReference struct {
	ItemID      uuid.UUID
	RefsetID    uint64
	ComponentID uint64
	Reason      string
}

// --- Derived index types ---

// Index names recorded in the index status table.
const (
	IndexHierarchy = "hierarchy"
	IndexSearch    = "search"
	IndexCrossMap  = "crossmap"
)

// IndexStatus describes one built derived index.
type IndexStatus struct {
	Name    string
	Entries int
	BuiltAt time.Time
}

// ClosureEntry is the persisted ancestor set of one concept.
type ClosureEntry struct {
	ConceptID uint64
	Ancestors []uint64
}

// SearchDoc is one indexed description.
type SearchDoc struct {
	DescriptionID uint64
	ConceptID     uint64
	TypeID        uint64
	Term          string
	TokenCount    int
	// PhraseHash identifies the folded token sequence of Term.
	PhraseHash    uint64
	Active        bool
	ConceptActive bool
	// Language refsets in which the description is preferred or acceptable.
	Preferred  []uint64
	Acceptable []uint64
}

// VocabEntry is a distinct search token with its document frequency and
// the ascending description ids whose terms contain it.
type VocabEntry struct {
	Token    string
	DocFreq  int
	Postings []uint64
}

// CrossMapTarget is one reverse index entry from an external code to a map
// item.
type CrossMapTarget struct {
	RefsetID uint64
	Code     string
	ItemID   uuid.UUID
	Active   bool
}
