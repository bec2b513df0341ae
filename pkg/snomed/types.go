// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snomed

import (
	"time"

	"github.com/google/uuid"
)

// --- Core components ---

// Concept is a clinical idea identified by a SNOMED CT identifier.
type Concept struct {
	ID                 uint64    `json:"id" yaml:"id"`
	EffectiveTime      time.Time `json:"effectiveTime" yaml:"effectiveTime"`
	Active             bool      `json:"active" yaml:"active"`
	ModuleID           uint64    `json:"moduleId" yaml:"moduleId"`
	DefinitionStatusID uint64    `json:"definitionStatusId" yaml:"definitionStatusId"`
}

// IsPrimitive reports whether the concept is not sufficiently defined.
func (c *Concept) IsPrimitive() bool {
	return c.DefinitionStatusID == Primitive
}

// Description is a term attached to a concept.
//
// Acceptability maps a language reference set id to the acceptability id
// (Preferred or Acceptable) recorded for this description in that refset.
// Only active language refset items contribute.
type Description struct {
	ID                 uint64            `json:"id" yaml:"id"`
	EffectiveTime      time.Time         `json:"effectiveTime" yaml:"effectiveTime"`
	Active             bool              `json:"active" yaml:"active"`
	ModuleID           uint64            `json:"moduleId" yaml:"moduleId"`
	ConceptID          uint64            `json:"conceptId" yaml:"conceptId"`
	LanguageCode       string            `json:"languageCode" yaml:"languageCode"`
	TypeID             uint64            `json:"typeId" yaml:"typeId"`
	Term               string            `json:"term" yaml:"term"`
	CaseSignificanceID uint64            `json:"caseSignificanceId" yaml:"caseSignificanceId"`
	Acceptability      map[uint64]uint64 `json:"acceptability,omitempty" yaml:"acceptability,omitempty"`
}

// IsFullySpecifiedName reports whether the description is the concept's FSN.
func (d *Description) IsFullySpecifiedName() bool { return d.TypeID == FullySpecifiedName }

// IsSynonym reports whether the description is a synonym.
func (d *Description) IsSynonym() bool { return d.TypeID == Synonym }

// PreferredIn reports whether the description is preferred in the refset.
func (d *Description) PreferredIn(refsetID uint64) bool {
	return d.Acceptability[refsetID] == Preferred
}

// AcceptableIn reports whether the description is preferred or acceptable in
// the refset.
func (d *Description) AcceptableIn(refsetID uint64) bool {
	a, ok := d.Acceptability[refsetID]
	return ok && (a == Preferred || a == Acceptable)
}

// Relationship is a directed, typed edge between two concepts.
type Relationship struct {
	ID                   uint64    `json:"id" yaml:"id"`
	EffectiveTime        time.Time `json:"effectiveTime" yaml:"effectiveTime"`
	Active               bool      `json:"active" yaml:"active"`
	ModuleID             uint64    `json:"moduleId" yaml:"moduleId"`
	SourceID             uint64    `json:"sourceId" yaml:"sourceId"`
	DestinationID        uint64    `json:"destinationId" yaml:"destinationId"`
	Group                int       `json:"relationshipGroup" yaml:"relationshipGroup"`
	TypeID               uint64    `json:"typeId" yaml:"typeId"`
	CharacteristicTypeID uint64    `json:"characteristicTypeId" yaml:"characteristicTypeId"`
	ModifierID           uint64    `json:"modifierId" yaml:"modifierId"`
}

// IsA reports whether this is an IS-A relationship.
func (r *Relationship) IsA() bool { return r.TypeID == IsA }

// --- Reference sets ---

// ReferenceSetItem is a member of a reference set. The pattern-specific
// columns are optional; a zero value means the refset's pattern does not
// carry that column. Columns without a dedicated field are kept in
// Attributes keyed by their RF2 header name.
type ReferenceSetItem struct {
	ID                    uuid.UUID `json:"id" yaml:"id"`
	EffectiveTime         time.Time `json:"effectiveTime" yaml:"effectiveTime"`
	Active                bool      `json:"active" yaml:"active"`
	ModuleID              uint64    `json:"moduleId" yaml:"moduleId"`
	RefsetID              uint64    `json:"refsetId" yaml:"refsetId"`
	ReferencedComponentID uint64    `json:"referencedComponentId" yaml:"referencedComponentId"`

	AcceptabilityID   uint64 `json:"acceptabilityId,omitempty" yaml:"acceptabilityId,omitempty"`
	MapTarget         string `json:"mapTarget,omitempty" yaml:"mapTarget,omitempty"`
	MapGroup          int    `json:"mapGroup,omitempty" yaml:"mapGroup,omitempty"`
	MapPriority       int    `json:"mapPriority,omitempty" yaml:"mapPriority,omitempty"`
	MapRule           string `json:"mapRule,omitempty" yaml:"mapRule,omitempty"`
	MapAdvice         string `json:"mapAdvice,omitempty" yaml:"mapAdvice,omitempty"`
	CorrelationID     uint64 `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
	MapCategoryID     uint64 `json:"mapCategoryId,omitempty" yaml:"mapCategoryId,omitempty"`
	TargetComponentID uint64 `json:"targetComponentId,omitempty" yaml:"targetComponentId,omitempty"`
	ValueID           uint64 `json:"valueId,omitempty" yaml:"valueId,omitempty"`
	OWLExpression     string `json:"owlExpression,omitempty" yaml:"owlExpression,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// IsLanguageItem reports whether the item records description acceptability.
func (i *ReferenceSetItem) IsLanguageItem() bool { return i.AcceptabilityID != 0 }

// IsMapItem reports whether the item maps to an external code.
func (i *ReferenceSetItem) IsMapItem() bool { return i.MapTarget != "" }

// --- Derived views ---

// ExtendedConcept is a denormalised view of a concept assembled on demand.
//
// ParentRelationships holds the concept's active outgoing relationships of
// every type; ChildRelationships holds the active IS-A relationships that
// point at the concept. DirectParents groups the outgoing destinations by
// relationship type. AllParents is the full IS-A ancestor set.
type ExtendedConcept struct {
	Concept             *Concept            `json:"concept" yaml:"concept"`
	Descriptions        []*Description      `json:"descriptions" yaml:"descriptions"`
	PreferredSynonym    *Description        `json:"preferredDescription,omitempty" yaml:"preferredDescription,omitempty"`
	ParentRelationships []*Relationship     `json:"parentRelationships" yaml:"parentRelationships"`
	ChildRelationships  []*Relationship     `json:"childRelationships" yaml:"childRelationships"`
	DirectParents       map[uint64][]uint64 `json:"directParentRelationships" yaml:"directParentRelationships"`
	AllParents          []uint64            `json:"allParents" yaml:"allParents"`
	ReferenceSets       []uint64            `json:"refsets" yaml:"refsets"`
	RefsetItems         []*ReferenceSetItem `json:"refsetItems" yaml:"refsetItems"`
}
