// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/snomed/internal/hierarchy"
	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/store"
	"github.com/sigil-dev/snomed/internal/store/storetest"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()
	b := storetest.NewBackend(t)

	missing, err := index.Missing(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, index.Required, missing)

	report, err := index.Build(ctx, b, index.Options{StrictReferences: true, Buffer: 1})
	require.NoError(t, err)
	assert.Equal(t, 9, report.Concepts)
	assert.Equal(t, len(storetest.Descriptions()), report.SearchDocuments)
	assert.Equal(t, 4, report.CrossMapTargets)
	assert.Empty(t, report.Dangling)

	missing, err = index.Missing(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, missing)

	status, err := b.IndexStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 3)
	for _, st := range status {
		assert.False(t, st.BuiltAt.IsZero(), st.Name)
	}

	closure, err := hierarchy.Load(ctx, b)
	require.NoError(t, err)
	ok, err := closure.SubsumedBy(storetest.AcuteMI, storetest.Root)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuild_Rebuild(t *testing.T) {
	ctx := context.Background()
	b := storetest.NewBackend(t)

	first, err := index.Build(ctx, b, index.Options{})
	require.NoError(t, err)
	second, err := index.Build(ctx, b, index.Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Concepts, second.Concepts)
	assert.Equal(t, first.SearchDocuments, second.SearchDocuments)

	n, err := b.SearchDocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.SearchDocuments, n, "a rebuild replaces rather than appends")
}

func addItems(t *testing.T, b store.Backend, items ...*snomed.ReferenceSetItem) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Import(ctx, func(w store.ImportWriter) error {
		return w.PutReferenceSetItems(ctx, items)
	}))
}

func danglingItem() *snomed.ReferenceSetItem {
	return &snomed.ReferenceSetItem{
		ID:                    storetest.ItemID(900),
		EffectiveTime:         time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC),
		Active:                true,
		RefsetID:              storetest.SimpleRefset,
		ReferencedComponentID: 424242,
	}
}

func TestBuild_DanglingStrict(t *testing.T) {
	ctx := context.Background()
	b := storetest.NewBackend(t)
	addItems(t, b, danglingItem())

	_, err := index.Build(ctx, b, index.Options{StrictReferences: true})
	require.Error(t, err)
	assert.True(t, sigilerr.IsBuildError(err))
	assert.Equal(t, sigilerr.CodeIndexDanglingReference, sigilerr.CodeOf(err))
	assert.Equal(t, uint64(424242), sigilerr.FieldsOf(err)["component_id"])

	missing, err := index.Missing(ctx, b)
	require.NoError(t, err)
	assert.Len(t, missing, 3, "nothing is published")
}

func TestBuild_DanglingLenient(t *testing.T) {
	ctx := context.Background()
	b := storetest.NewBackend(t)
	addItems(t, b, danglingItem())

	report, err := index.Build(ctx, b, index.Options{StrictReferences: false})
	require.NoError(t, err)
	require.Len(t, report.Dangling, 1)
	assert.Equal(t, storetest.ItemID(900), report.Dangling[0].ItemID)
}

func TestBuild_CycleAborts(t *testing.T) {
	ctx := context.Background()
	b := storetest.NewBackend(t)
	require.NoError(t, b.Import(ctx, func(w store.ImportWriter) error {
		return w.PutRelationships(ctx, []*snomed.Relationship{{
			ID:            20001,
			EffectiveTime: time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC),
			Active:        true,
			SourceID:      storetest.ClinicalFinding,
			DestinationID: storetest.AcuteMI,
			TypeID:        snomed.IsA,
		}})
	}))

	_, err := index.Build(ctx, b, index.Options{})
	require.Error(t, err)
	assert.True(t, sigilerr.IsBuildError(err))
	assert.Equal(t, sigilerr.CodeIndexHierarchyCycle, sigilerr.CodeOf(err))

	n, err := b.SearchDocCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no partial index is committed")
}
