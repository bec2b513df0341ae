// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package hierarchy

import (
	"context"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// maxCycleReport bounds the concept ids attached to a cycle error.
const maxCycleReport = 10

// Build computes the closure of the active IS-A relationships in s.
//
// Nodes are processed in topological order: a concept is finished once all
// of its direct parents are, and its ancestor set is the union of each
// parent and that parent's ancestors. Nodes left unfinished when the queue
// drains lie on or below a cycle, which fails the build.
func Build(ctx context.Context, s store.Store, logger *zap.SugaredLogger) (*Closure, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var ids []uint64
	for concept, err := range s.StreamAllConcepts(ctx) {
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "streaming concepts")
		}
		ids = append(ids, concept.ID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	c := newClosure(ids)

	parents := make([][]uint32, len(ids))
	children := make([][]uint32, len(ids))
	edges := 0
	for rel, err := range s.StreamRelationships(ctx, snomed.IsA) {
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "streaming IS-A relationships")
		}
		src, ok := c.ordinals[rel.SourceID]
		if !ok {
			return nil, unknownNode(rel, rel.SourceID)
		}
		dst, ok := c.ordinals[rel.DestinationID]
		if !ok {
			return nil, unknownNode(rel, rel.DestinationID)
		}
		if src == dst {
			return nil, sigilerr.New(sigilerr.CodeIndexHierarchyCycle, "concept is a parent of itself",
				sigilerr.FieldConceptID(rel.SourceID))
		}
		if slices.Contains(parents[src], dst) {
			continue
		}
		parents[src] = append(parents[src], dst)
		children[dst] = append(children[dst], src)
		edges++
	}

	pending := make([]int, len(ids))
	queue := make([]uint32, 0, len(ids))
	for o := range ids {
		pending[o] = len(parents[o])
		if pending[o] == 0 {
			queue = append(queue, uint32(o))
		}
	}

	seen := bitset.New(uint(len(ids)))
	var scratch []uint32
	done := 0
	for len(queue) > 0 {
		if done%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n := queue[0]
		queue = queue[1:]

		scratch = scratch[:0]
		add := func(o uint32) {
			if !seen.Test(uint(o)) {
				seen.Set(uint(o))
				scratch = append(scratch, o)
			}
		}
		for _, p := range parents[n] {
			add(p)
			for _, a := range c.ancestors[p] {
				add(a)
			}
		}
		for _, o := range scratch {
			seen.Clear(uint(o))
		}
		if len(scratch) > 0 {
			anc := slices.Clone(scratch)
			slices.Sort(anc)
			c.ancestors[n] = anc
		}
		done++

		for _, child := range children[n] {
			pending[child]--
			if pending[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if done < len(ids) {
		var stuck []uint64
		for o, p := range pending {
			if p > 0 {
				stuck = append(stuck, ids[o])
				if len(stuck) == maxCycleReport {
					break
				}
			}
		}
		return nil, sigilerr.New(sigilerr.CodeIndexHierarchyCycle, "IS-A graph contains a cycle",
			sigilerr.Field("unresolved", len(ids)-done), sigilerr.Field("concept_ids", stuck))
	}

	c.invert()
	logger.Infow("hierarchy closure built", "concepts", len(ids), "is_a_edges", edges)
	return c, nil
}

func unknownNode(rel *snomed.Relationship, id uint64) error {
	return sigilerr.New(sigilerr.CodeIndexHierarchyUnknownNode, "IS-A relationship references unknown concept",
		sigilerr.FieldConceptID(id), sigilerr.Field("relationship_id", rel.ID))
}
