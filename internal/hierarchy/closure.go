// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package hierarchy holds the transitive closure of the active IS-A graph.
//
// Concepts are numbered by ordinal in ascending id order. Each node keeps a
// sorted array of ancestor ordinals and a sorted array of descendant
// ordinals, so subsumption is a binary search and descendant filters are
// bitsets over ordinals.
package hierarchy

import (
	"context"
	"slices"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Closure is an immutable ancestor/descendant index. It is safe for
// concurrent use.
type Closure struct {
	ids         []uint64
	ordinals    map[uint64]uint32
	ancestors   [][]uint32
	descendants [][]uint32
}

// newClosure allocates a closure over ids, which must be sorted and unique.
func newClosure(ids []uint64) *Closure {
	c := &Closure{
		ids:         ids,
		ordinals:    make(map[uint64]uint32, len(ids)),
		ancestors:   make([][]uint32, len(ids)),
		descendants: make([][]uint32, len(ids)),
	}
	for i, id := range ids {
		c.ordinals[id] = uint32(i)
	}
	return c
}

// invert fills the descendant arrays from the ancestor arrays. Ordinals are
// visited in ascending order so each descendant array comes out sorted.
func (c *Closure) invert() {
	counts := make([]int, len(c.ids))
	for _, anc := range c.ancestors {
		for _, a := range anc {
			counts[a]++
		}
	}
	for i, n := range counts {
		if n > 0 {
			c.descendants[i] = make([]uint32, 0, n)
		}
	}
	for o, anc := range c.ancestors {
		for _, a := range anc {
			c.descendants[a] = append(c.descendants[a], uint32(o))
		}
	}
}

// Len returns the number of concepts in the closure.
func (c *Closure) Len() int { return len(c.ids) }

// Contains reports whether id is a known concept.
func (c *Closure) Contains(id uint64) bool {
	_, ok := c.ordinals[id]
	return ok
}

func (c *Closure) ordinal(id uint64) (uint32, error) {
	o, ok := c.ordinals[id]
	if !ok {
		return 0, sigilerr.New(sigilerr.CodeHierarchyConceptNotFound, "concept not in hierarchy",
			sigilerr.FieldConceptID(id))
	}
	return o, nil
}

// SubsumedBy reports whether subsumerID is conceptID itself or one of its
// ancestors. An unknown conceptID is an error; an unknown subsumerID simply
// subsumes nothing.
func (c *Closure) SubsumedBy(conceptID, subsumerID uint64) (bool, error) {
	o, err := c.ordinal(conceptID)
	if err != nil {
		return false, err
	}
	if conceptID == subsumerID {
		return true, nil
	}
	s, ok := c.ordinals[subsumerID]
	if !ok {
		return false, nil
	}
	_, found := slices.BinarySearch(c.ancestors[o], s)
	return found, nil
}

// AllParents returns every ancestor of conceptID in ascending id order.
func (c *Closure) AllParents(conceptID uint64) ([]uint64, error) {
	o, err := c.ordinal(conceptID)
	if err != nil {
		return nil, err
	}
	return c.resolve(c.ancestors[o]), nil
}

// AllChildren returns every descendant of conceptID in ascending id order.
func (c *Closure) AllChildren(conceptID uint64) ([]uint64, error) {
	o, err := c.ordinal(conceptID)
	if err != nil {
		return nil, err
	}
	return c.resolve(c.descendants[o]), nil
}

// resolve maps ordinals back to ids. Ordinal order is id order.
func (c *Closure) resolve(ords []uint32) []uint64 {
	out := make([]uint64, len(ords))
	for i, o := range ords {
		out[i] = c.ids[o]
	}
	return out
}

// Set is a membership set of concepts backed by a bitset over closure
// ordinals.
type Set struct {
	c    *Closure
	bits *bitset.BitSet
}

// DescendantsOrSelf returns the set of concepts equal to or below any of
// targets. Unknown targets contribute nothing.
func (c *Closure) DescendantsOrSelf(targets ...uint64) *Set {
	s := &Set{c: c, bits: bitset.New(uint(len(c.ids)))}
	for _, t := range targets {
		o, ok := c.ordinals[t]
		if !ok {
			continue
		}
		s.bits.Set(uint(o))
		for _, d := range c.descendants[o] {
			s.bits.Set(uint(d))
		}
	}
	return s
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id uint64) bool {
	o, ok := s.c.ordinals[id]
	return ok && s.bits.Test(uint(o))
}

// Len returns the number of concepts in the set.
func (s *Set) Len() int { return int(s.bits.Count()) }

// Intersect narrows s to the members also in other.
func (s *Set) Intersect(other *Set) {
	s.bits.InPlaceIntersection(other.bits)
}

// Persist writes the ancestor set of every concept to w.
func (c *Closure) Persist(ctx context.Context, w store.IndexWriter) error {
	for o, id := range c.ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.PutClosure(ctx, id, c.resolve(c.ancestors[o])); err != nil {
			return err
		}
	}
	return nil
}

// Load rebuilds a closure from persisted ancestor sets.
func Load(ctx context.Context, s store.IndexStore) (*Closure, error) {
	var entries []*store.ClosureEntry
	for e, err := range s.StreamClosure(ctx) {
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "reading closure")
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ConceptID < entries[j].ConceptID })

	ids := make([]uint64, len(entries))
	for i, e := range entries {
		ids[i] = e.ConceptID
	}
	c := newClosure(ids)
	for i, e := range entries {
		anc := make([]uint32, 0, len(e.Ancestors))
		for _, a := range e.Ancestors {
			o, ok := c.ordinals[a]
			if !ok {
				return nil, sigilerr.New(sigilerr.CodeIndexHierarchyUnknownNode, "closure references unknown ancestor",
					sigilerr.FieldConceptID(e.ConceptID), sigilerr.Field("ancestor_id", a))
			}
			anc = append(anc, o)
		}
		slices.Sort(anc)
		c.ancestors[i] = anc
	}
	c.invert()
	return c, nil
}
