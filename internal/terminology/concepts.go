// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package terminology

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// GetConcept returns the latest version of a concept, active or not.
func (t *Terminology) GetConcept(ctx context.Context, id uint64) (*snomed.Concept, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	c, err := t.backend.GetConcept(ctx, id)
	return c, t.observe(err)
}

// GetConceptHistory returns every imported version of a concept, oldest
// first.
func (t *Terminology) GetConceptHistory(ctx context.Context, id uint64) ([]*snomed.Concept, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	history, err := t.backend.GetConceptHistory(ctx, id)
	if err != nil {
		return nil, t.observe(err)
	}
	if len(history) == 0 {
		return nil, store.ConceptNotFound(id)
	}
	return history, nil
}

// GetDescriptionHistory returns every imported version of a description,
// oldest first. Acceptability is not versioned.
func (t *Terminology) GetDescriptionHistory(ctx context.Context, id uint64) ([]*snomed.Description, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	history, err := t.backend.GetDescriptionHistory(ctx, id)
	if err != nil {
		return nil, t.observe(err)
	}
	return history, nil
}

// GetRelationshipHistory returns every imported version of a relationship,
// oldest first.
func (t *Terminology) GetRelationshipHistory(ctx context.Context, id uint64) ([]*snomed.Relationship, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	history, err := t.backend.GetRelationshipHistory(ctx, id)
	if err != nil {
		return nil, t.observe(err)
	}
	return history, nil
}

func (t *Terminology) GetDescription(ctx context.Context, id uint64) (*snomed.Description, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	d, err := t.backend.GetDescription(ctx, id)
	return d, t.observe(err)
}

// GetDescriptions returns every description of a concept, active or not.
func (t *Terminology) GetDescriptions(ctx context.Context, conceptID uint64) ([]*snomed.Description, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	ds, err := t.backend.GetDescriptions(ctx, conceptID)
	return ds, t.observe(err)
}

func (t *Terminology) GetRelationships(ctx context.Context, conceptID uint64, dir store.Direction) ([]*snomed.Relationship, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	rels, err := t.backend.GetRelationships(ctx, conceptID, dir)
	return rels, t.observe(err)
}

// GetPreferredSynonym picks the synonym preferred in the first of
// languageRefsets that has one, or in the configured languages when none
// are given. What happens when no refset matches depends on the fallback
// policy. Only an unknown concept is always an error.
func (t *Terminology) GetPreferredSynonym(ctx context.Context, conceptID uint64, languageRefsets []uint64) (*snomed.Description, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	d, err := t.preferredSynonym(ctx, conceptID, languageRefsets)
	return d, t.observe(err)
}

func (t *Terminology) preferredSynonym(ctx context.Context, conceptID uint64, refsets []uint64) (*snomed.Description, error) {
	if _, err := t.backend.GetConcept(ctx, conceptID); err != nil {
		return nil, err
	}
	descs, err := t.backend.GetDescriptions(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if len(refsets) == 0 {
		refsets = t.defaults
	}
	return t.choosePreferred(conceptID, descs, refsets)
}

// choosePreferred applies the language preference list and the fallback
// policy to descs, which are ordered by id.
func (t *Terminology) choosePreferred(conceptID uint64, descs []*snomed.Description, refsets []uint64) (*snomed.Description, error) {
	activeSynonym := func(d *snomed.Description) bool { return d.Active && d.IsSynonym() }

	for _, refset := range refsets {
		for _, d := range descs {
			if activeSynonym(d) && d.PreferredIn(refset) {
				return d, nil
			}
		}
	}

	if t.fallback == FallbackAny {
		for _, d := range descs {
			if activeSynonym(d) && preferredAnywhere(d) {
				return d, nil
			}
		}
		for _, d := range descs {
			if activeSynonym(d) {
				return d, nil
			}
		}
		for _, d := range descs {
			if d.Active {
				return d, nil
			}
		}
	}

	return nil, sigilerr.New(sigilerr.CodeTerminologyPreferredAbsent, "no preferred synonym for the requested languages",
		sigilerr.FieldConceptID(conceptID), sigilerr.Field("language_refsets", refsets))
}

func preferredAnywhere(d *snomed.Description) bool {
	for _, acceptability := range d.Acceptability {
		if acceptability == snomed.Preferred {
			return true
		}
	}
	return false
}

// GetExtendedConcept assembles a concept with its active descriptions,
// relationships, ancestors and refset memberships. Results are cached and
// shared between callers; they must not be modified.
func (t *Terminology) GetExtendedConcept(ctx context.Context, id uint64) (*snomed.ExtendedConcept, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if t.cache != nil {
		if v, ok := t.cache.Get(id); ok {
			return v.(*snomed.ExtendedConcept), nil
		}
	}
	ec, err := t.extendedConcept(ctx, id)
	if err != nil {
		return nil, t.observe(err)
	}
	if t.cache != nil {
		t.cache.Add(id, ec)
	}
	return ec, nil
}

func (t *Terminology) extendedConcept(ctx context.Context, id uint64) (*snomed.ExtendedConcept, error) {
	concept, err := t.backend.GetConcept(ctx, id)
	if err != nil {
		return nil, err
	}
	ec := &snomed.ExtendedConcept{
		Concept:             concept,
		Descriptions:        []*snomed.Description{},
		ParentRelationships: []*snomed.Relationship{},
		ChildRelationships:  []*snomed.Relationship{},
		DirectParents:       make(map[uint64][]uint64),
		RefsetItems:         []*snomed.ReferenceSetItem{},
	}

	descs, err := t.backend.GetDescriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range descs {
		if d.Active {
			ec.Descriptions = append(ec.Descriptions, d)
		}
	}
	if preferred, err := t.choosePreferred(id, descs, t.defaults); err == nil {
		ec.PreferredSynonym = preferred
	} else if !sigilerr.IsNotFound(err) {
		return nil, err
	}

	outgoing, err := t.backend.GetRelationships(ctx, id, store.AsSource)
	if err != nil {
		return nil, err
	}
	for _, r := range outgoing {
		if !r.Active {
			continue
		}
		ec.ParentRelationships = append(ec.ParentRelationships, r)
		ec.DirectParents[r.TypeID] = append(ec.DirectParents[r.TypeID], r.DestinationID)
	}
	for typeID := range ec.DirectParents {
		slices.Sort(ec.DirectParents[typeID])
		ec.DirectParents[typeID] = slices.Compact(ec.DirectParents[typeID])
	}

	incoming, err := t.backend.GetRelationships(ctx, id, store.AsDestination)
	if err != nil {
		return nil, err
	}
	for _, r := range incoming {
		if r.Active && r.IsA() {
			ec.ChildRelationships = append(ec.ChildRelationships, r)
		}
	}

	ec.AllParents, err = t.closure.AllParents(id)
	if err != nil {
		return nil, err
	}

	ec.ReferenceSets, err = t.backend.GetReferenceSets(ctx, id)
	if err != nil {
		return nil, err
	}
	if ec.ReferenceSets == nil {
		ec.ReferenceSets = []uint64{}
	}
	items, err := t.backend.GetReferenceSetItems(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Active {
			ec.RefsetItems = append(ec.RefsetItems, item)
		}
	}
	return ec, nil
}

// GetReferenceSets returns the refsets in which the component is an active
// member.
func (t *Terminology) GetReferenceSets(ctx context.Context, componentID uint64) ([]uint64, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	ids, err := t.backend.GetReferenceSets(ctx, componentID)
	if err != nil {
		return nil, t.observe(err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (t *Terminology) GetReferenceSetItem(ctx context.Context, id uuid.UUID) (*snomed.ReferenceSetItem, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	item, err := t.backend.GetReferenceSetItem(ctx, id)
	return item, t.observe(err)
}

// InstalledReferenceSets lists every refset with at least one item.
func (t *Terminology) InstalledReferenceSets(ctx context.Context) ([]uint64, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	ids, err := t.backend.InstalledReferenceSets(ctx)
	return ids, t.observe(err)
}
