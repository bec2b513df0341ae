// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package index builds the derived indexes of an imported store: the IS-A
// closure, the search documents and the cross-map reverse entries.
package index

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/snomed/internal/crossmap"
	"github.com/sigil-dev/snomed/internal/hierarchy"
	"github.com/sigil-dev/snomed/internal/search"
	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Required lists the indexes a store must have before it can be served.
var Required = []string{store.IndexCrossMap, store.IndexHierarchy, store.IndexSearch}

// maxDanglingReport bounds the dangling references fetched and logged.
const maxDanglingReport = 100

// Options tunes a build.
type Options struct {
	// StrictReferences fails the build when a refset item references a
	// missing component. Otherwise such items are logged and indexed.
	StrictReferences bool
	// Buffer is the number of pending writes producers may queue.
	Buffer int
	Logger *zap.SugaredLogger
}

// Report summarises a build.
type Report struct {
	Concepts        int
	SearchDocuments int
	CrossMapTargets int
	Dangling        []*store.DanglingReference
	Elapsed         time.Duration
}

// Build replaces the derived indexes of b. The three indexes are produced
// concurrently and written by a single writer inside one transaction, so a
// failed build leaves the previous indexes in place.
func Build(ctx context.Context, b store.Backend, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	start := time.Now()
	report := &Report{}

	dangling, err := b.DanglingReferences(ctx, maxDanglingReport)
	if err != nil {
		return nil, err
	}
	report.Dangling = dangling
	if len(dangling) > 0 {
		if opts.StrictReferences {
			first := dangling[0]
			return nil, sigilerr.New(sigilerr.CodeIndexDanglingReference, "refset item references a missing component",
				sigilerr.Field("item_id", first.ItemID.String()),
				sigilerr.FieldRefsetID(first.RefsetID),
				sigilerr.Field("component_id", first.ComponentID),
				sigilerr.Field("reason", first.Reason),
				sigilerr.Field("count", len(dangling)))
		}
		for _, d := range dangling {
			logger.Warnw("dangling refset reference",
				"item_id", d.ItemID.String(), "refset_id", d.RefsetID, "component_id", d.ComponentID, "reason", d.Reason)
		}
	}

	err = b.BuildIndexes(ctx, func(w store.IndexWriter) error {
		g, gctx := errgroup.WithContext(ctx)
		ops := make(chan writeOp, opts.Buffer)
		cw := &chanWriter{ctx: gctx, ops: ops}

		g.Go(func() error {
			defer close(ops)
			p, pctx := errgroup.WithContext(gctx)
			p.Go(func() error {
				closure, err := hierarchy.Build(pctx, b, logger)
				if err != nil {
					return err
				}
				report.Concepts = closure.Len()
				return closure.Persist(pctx, cw)
			})
			p.Go(func() error {
				n, err := search.Build(pctx, b, cw, logger)
				report.SearchDocuments = n
				return err
			})
			p.Go(func() error {
				n, err := crossmap.Build(pctx, b, cw, logger)
				report.CrossMapTargets = n
				return err
			})
			return p.Wait()
		})

		g.Go(func() error {
			for op := range ops {
				if err := op(gctx, w); err != nil {
					return err
				}
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		for name, entries := range map[string]int{
			store.IndexHierarchy: report.Concepts,
			store.IndexSearch:    report.SearchDocuments,
			store.IndexCrossMap:  report.CrossMapTargets,
		} {
			if err := w.SetIndexStatus(ctx, name, entries); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	logger.Infow("indexes built",
		"concepts", report.Concepts, "search_documents", report.SearchDocuments,
		"crossmap_targets", report.CrossMapTargets, "dangling", len(report.Dangling), "elapsed", report.Elapsed)
	return report, nil
}

// Missing returns the required indexes that s has no build record for.
func Missing(ctx context.Context, s store.IndexStore) ([]string, error) {
	status, err := s.IndexStatus(ctx)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, name := range Required {
		if !slices.ContainsFunc(status, func(st *store.IndexStatus) bool { return st.Name == name }) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

type writeOp func(ctx context.Context, w store.IndexWriter) error

// chanWriter is an IndexWriter that forwards every write to the single
// writer goroutine. Arguments must not be modified after the call.
type chanWriter struct {
	ctx context.Context
	ops chan<- writeOp
}

var _ store.IndexWriter = (*chanWriter)(nil)

func (c *chanWriter) send(op writeOp) error {
	select {
	case c.ops <- op:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *chanWriter) PutClosure(_ context.Context, conceptID uint64, ancestors []uint64) error {
	return c.send(func(ctx context.Context, w store.IndexWriter) error {
		return w.PutClosure(ctx, conceptID, ancestors)
	})
}

func (c *chanWriter) PutSearchDoc(_ context.Context, doc *store.SearchDoc, tokens []string) error {
	return c.send(func(ctx context.Context, w store.IndexWriter) error {
		return w.PutSearchDoc(ctx, doc, tokens)
	})
}

func (c *chanWriter) PutCrossMapTarget(_ context.Context, t *store.CrossMapTarget) error {
	return c.send(func(ctx context.Context, w store.IndexWriter) error {
		return w.PutCrossMapTarget(ctx, t)
	})
}

func (c *chanWriter) SetIndexStatus(_ context.Context, name string, entries int) error {
	return c.send(func(ctx context.Context, w store.IndexWriter) error {
		return w.SetIndexStatus(ctx, name, entries)
	})
}
