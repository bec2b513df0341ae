// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package crossmap resolves external code system codes back to the SNOMED CT
// components that map to them.
package crossmap

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Normalize is applied to map targets when indexing and to codes when
// querying.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Build writes a reverse entry for every refset item carrying a map target.
func Build(ctx context.Context, s store.Store, w store.IndexWriter, logger *zap.SugaredLogger) (int, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	n := 0
	refsets := make(map[uint64]int)
	for item, err := range s.StreamReferenceSetItems(ctx) {
		if err != nil {
			return n, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "streaming refset items")
		}
		code := Normalize(item.MapTarget)
		if code == "" {
			continue
		}
		if err := w.PutCrossMapTarget(ctx, &store.CrossMapTarget{
			RefsetID: item.RefsetID,
			Code:     code,
			ItemID:   item.ID,
			Active:   item.Active,
		}); err != nil {
			return n, err
		}
		refsets[item.RefsetID]++
		n++
	}

	logger.Infow("cross-map index built", "targets", n, "refsets", len(refsets))
	return n, nil
}

// Source is the storage behind an Index.
type Source interface {
	CrossMapLookup(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)
	CrossMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)
	GetReferenceSetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error)
}

// Index answers map lookups in both directions.
type Index struct {
	src Source
}

// New returns an Index reading from src.
func New(src Source) *Index {
	return &Index{src: src}
}

func validate(refsetID uint64, code string) error {
	if refsetID == 0 {
		return sigilerr.New(sigilerr.CodeCrossMapRequestInvalid, "refset id is required")
	}
	if code == "" {
		return sigilerr.New(sigilerr.CodeCrossMapRequestInvalid, "code is required", sigilerr.FieldRefsetID(refsetID))
	}
	return nil
}

// ReverseMap returns the items of refsetID whose map target equals code,
// ignoring case and surrounding space. Inactive items are returned only
// when includeInactive is set.
func (ix *Index) ReverseMap(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	code = Normalize(code)
	if err := validate(refsetID, code); err != nil {
		return nil, err
	}
	items, err := ix.src.CrossMapLookup(ctx, refsetID, code, includeInactive)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// ReverseMapPrefix is ReverseMap for every target starting with prefix, so
// "I21" finds items mapped to "I21.0".
func (ix *Index) ReverseMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	prefix = Normalize(prefix)
	if err := validate(refsetID, prefix); err != nil {
		return nil, err
	}
	items, err := ix.src.CrossMapPrefix(ctx, refsetID, prefix, includeInactive)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// ComponentRefsetItems is the forward direction: the items of refsetID
// that reference componentID. A zero refsetID matches every refset.
func (ix *Index) ComponentRefsetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error) {
	items, err := ix.src.GetReferenceSetItems(ctx, componentID, refsetID)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func nonNil(items []*snomed.ReferenceSetItem) []*snomed.ReferenceSetItem {
	if items == nil {
		return []*snomed.ReferenceSetItem{}
	}
	return items
}
