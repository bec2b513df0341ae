// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package rf2

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Summary reports what an import wrote.
type Summary struct {
	Files         int
	Concepts      int
	Descriptions  int
	Relationships int
	RefsetItems   int
	Elapsed       time.Duration
}

// Options tunes an Importer. Zero values select the defaults.
type Options struct {
	Workers   int
	BatchSize int
	// Release restricts the import to one release type (Snapshot, Full or
	// Delta). Empty imports every discovered file.
	Release string
	Logger  *zap.SugaredLogger
}

// Importer loads release directories into a store backend.
type Importer struct {
	backend   store.Backend
	workers   int
	batchSize int
	release   string
	logger    *zap.SugaredLogger
}

// NewImporter returns an Importer writing to backend.
func NewImporter(backend store.Backend, opts Options) *Importer {
	im := &Importer{
		backend:   backend,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		release:   opts.Release,
		logger:    opts.Logger,
	}
	if im.workers <= 0 {
		im.workers = 4
	}
	if im.batchSize <= 0 {
		im.batchSize = 5000
	}
	if im.logger == nil {
		im.logger = zap.NewNop().Sugar()
	}
	return im
}

// ImportDir discovers the release files under dir and imports them in a
// single store transaction. Files are parsed concurrently; one writer
// applies the parsed batches.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Summary, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	files = Filter(files, im.release)
	if len(files) == 0 {
		return nil, sigilerr.New(sigilerr.CodeImportNoReleaseFiles, "no release files found", sigilerr.FieldPath(dir))
	}
	return im.ImportFiles(ctx, files)
}

// ImportFiles imports the given files in a single store transaction.
func (im *Importer) ImportFiles(ctx context.Context, files []File) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Files: len(files)}

	err := im.backend.Import(ctx, func(w store.ImportWriter) error {
		g, gctx := errgroup.WithContext(ctx)
		batches := make(chan batch, im.workers)

		g.Go(func() error {
			defer close(batches)
			p, pctx := errgroup.WithContext(gctx)
			p.SetLimit(im.workers)
			for _, f := range files {
				p.Go(func() error {
					im.logger.Debugw("parsing release file", "path", f.Path, "kind", f.Kind.String())
					return parseFile(pctx, f, im.batchSize, func(b batch) error {
						select {
						case batches <- b:
							return nil
						case <-pctx.Done():
							return pctx.Err()
						}
					})
				})
			}
			return p.Wait()
		})

		g.Go(func() error {
			for b := range batches {
				if err := b.write(gctx, w); err != nil {
					return err
				}
				b.count(summary)
			}
			return nil
		})

		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	im.logger.Infow("release imported",
		"files", summary.Files, "concepts", summary.Concepts, "descriptions", summary.Descriptions,
		"relationships", summary.Relationships, "refset_items", summary.RefsetItems,
		"elapsed", summary.Elapsed)
	return summary, nil
}
