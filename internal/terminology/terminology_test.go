// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package terminology_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/search"
	"github.com/sigil-dev/snomed/internal/store"
	"github.com/sigil-dev/snomed/internal/store/sqlite"
	"github.com/sigil-dev/snomed/internal/store/storetest"
	"github.com/sigil-dev/snomed/internal/terminology"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// buildDB writes the fixture to a fresh database file, optionally builds
// its indexes, and returns the closed file's path.
func buildDB(t *testing.T, indexed bool) string {
	t.Helper()
	ctx := context.Background()
	path := storetest.DBPath(t, "terminology")
	b, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, storetest.Load(ctx, b))
	if indexed {
		_, err = index.Build(ctx, b, index.Options{StrictReferences: true})
		require.NoError(t, err)
	}
	require.NoError(t, b.Close())
	return path
}

func openService(t *testing.T, opts terminology.Options) *terminology.Terminology {
	t.Helper()
	opts.Path = buildDB(t, true)
	svc, err := terminology.Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestOpen_IndexesNotBuilt(t *testing.T) {
	_, err := terminology.Open(context.Background(), terminology.Options{Path: buildDB(t, false)})
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreIndexesNotBuilt))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := terminology.Open(context.Background(), terminology.Options{Path: storetest.DBPath(t, "absent")})
	require.Error(t, err)
}

func TestGetConcept(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	c, err := svc.GetConcept(ctx, storetest.AcuteMI)
	require.NoError(t, err)
	assert.Equal(t, storetest.AcuteMI, c.ID)
	assert.True(t, c.Active)

	inactive, err := svc.GetConcept(ctx, storetest.HeartThing)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	_, err = svc.GetConcept(ctx, 24700007)
	assert.True(t, sigilerr.IsNotFound(err))

	history, err := svc.GetConceptHistory(ctx, storetest.HeartThing)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Active)
	assert.False(t, history[1].Active)

	_, err = svc.GetConceptHistory(ctx, 24700007)
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestComponentHistory(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	descs, err := svc.GetDescriptionHistory(ctx, 3005)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.False(t, descs[0].Active)
	_, err = svc.GetDescriptionHistory(ctx, 1)
	assert.True(t, sigilerr.IsNotFound(err))

	rels, err := svc.GetRelationshipHistory(ctx, 10009)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, storetest.HeartThing, rels[0].SourceID)
	_, err = svc.GetRelationshipHistory(ctx, 1)
	assert.True(t, sigilerr.IsNotFound(err))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.FailureCount, "not-found lookups are not failures")
}

func TestDescriptionsAndRelationships(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	d, err := svc.GetDescription(ctx, storetest.HeartAttackDescription)
	require.NoError(t, err)
	assert.Equal(t, "Heart attack", d.Term)
	assert.True(t, d.PreferredIn(storetest.US))

	descs, err := svc.GetDescriptions(ctx, storetest.MyocardialInfarction)
	require.NoError(t, err)
	assert.Len(t, descs, 5, "inactive descriptions are included")

	out, err := svc.GetRelationships(ctx, storetest.AcuteMI, store.AsSource)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	in, err := svc.GetRelationships(ctx, storetest.HeartStructure, store.AsDestination)
	require.NoError(t, err)
	assert.Len(t, in, 3)
}

func TestHierarchy(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	tests := []struct {
		concept, subsumer uint64
		want              bool
	}{
		{storetest.AcuteMI, storetest.Root, true},
		{storetest.AcuteMI, storetest.HeartDisease, true},
		{storetest.AcuteMI, storetest.AcuteMI, true},
		{storetest.Root, storetest.AcuteMI, false},
		{storetest.HeartStructure, storetest.ClinicalFinding, false},
		{storetest.HeartThing, storetest.ClinicalFinding, false},
	}
	for _, tt := range tests {
		got, err := svc.SubsumedBy(ctx, tt.concept, tt.subsumer)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%d subsumed by %d", tt.concept, tt.subsumer)
	}

	parents, err := svc.GetAllParents(ctx, storetest.AcuteMI)
	require.NoError(t, err)
	assert.Equal(t, []uint64{storetest.Root, storetest.ClinicalFinding, storetest.MyocardialInfarction, storetest.HeartDisease}, parents)

	children, err := svc.GetAllChildren(ctx, storetest.ClinicalFinding)
	require.NoError(t, err)
	assert.Equal(t, []uint64{storetest.MyocardialInfarction, storetest.AcuteMI, storetest.HeartDisease}, children)

	_, err = svc.SubsumedBy(ctx, 24700007, storetest.Root)
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestGetExtendedConcept(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{CacheSize: 8})

	ec, err := svc.GetExtendedConcept(ctx, storetest.AcuteMI)
	require.NoError(t, err)
	assert.Equal(t, storetest.AcuteMI, ec.Concept.ID)
	assert.Len(t, ec.Descriptions, 3)
	require.NotNil(t, ec.PreferredSynonym)
	assert.Equal(t, "Acute myocardial infarction", ec.PreferredSynonym.Term)
	assert.Len(t, ec.ParentRelationships, 3)
	assert.Empty(t, ec.ChildRelationships)
	assert.Equal(t, map[uint64][]uint64{
		snomed.IsA:            {storetest.MyocardialInfarction, storetest.HeartDisease},
		storetest.FindingSite: {storetest.HeartStructure},
	}, ec.DirectParents)
	assert.Equal(t, []uint64{storetest.Root, storetest.ClinicalFinding, storetest.MyocardialInfarction, storetest.HeartDisease}, ec.AllParents)
	assert.Equal(t, []uint64{storetest.MapRefset}, ec.ReferenceSets)
	require.Len(t, ec.RefsetItems, 1)
	assert.Equal(t, "I21.0", ec.RefsetItems[0].MapTarget)

	again, err := svc.GetExtendedConcept(ctx, storetest.AcuteMI)
	require.NoError(t, err)
	assert.Same(t, ec, again)

	mi, err := svc.GetExtendedConcept(ctx, storetest.MyocardialInfarction)
	require.NoError(t, err)
	require.Len(t, mi.ChildRelationships, 1)
	assert.Equal(t, storetest.AcuteMI, mi.ChildRelationships[0].SourceID)
	assert.ElementsMatch(t, []uint64{storetest.SimpleRefset, storetest.MapRefset}, mi.ReferenceSets)
	assert.Len(t, mi.RefsetItems, 2, "inactive map item is left out")

	_, err = svc.GetExtendedConcept(ctx, 24700007)
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestGetExtendedConcept_Uncached(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	first, err := svc.GetExtendedConcept(ctx, storetest.HeartDisease)
	require.NoError(t, err)
	second, err := svc.GetExtendedConcept(ctx, storetest.HeartDisease)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
}

func TestGetPreferredSynonym(t *testing.T) {
	ctx := context.Background()
	spanish := []uint64{snomed.SpanishLanguageRefset}

	t.Run("dialects", func(t *testing.T) {
		svc := openService(t, terminology.Options{})

		us, err := svc.GetPreferredSynonym(ctx, storetest.MyocardialInfarction, []uint64{storetest.US})
		require.NoError(t, err)
		assert.Equal(t, "Heart attack", us.Term)

		gb, err := svc.GetPreferredSynonym(ctx, storetest.MyocardialInfarction, []uint64{storetest.GB})
		require.NoError(t, err)
		assert.Equal(t, "Myocardial infarction", gb.Term)

		ordered, err := svc.GetPreferredSynonym(ctx, storetest.MyocardialInfarction, []uint64{snomed.SpanishLanguageRefset, storetest.GB})
		require.NoError(t, err)
		assert.Equal(t, storetest.MIGBDescription, ordered.ID)

		defaults, err := svc.GetPreferredSynonym(ctx, storetest.MyocardialInfarction, nil)
		require.NoError(t, err)
		assert.Equal(t, storetest.HeartAttackDescription, defaults.ID)
	})

	t.Run("configured languages", func(t *testing.T) {
		svc := openService(t, terminology.Options{Languages: []string{"en-GB"}})

		d, err := svc.GetPreferredSynonym(ctx, storetest.MyocardialInfarction, nil)
		require.NoError(t, err)
		assert.Equal(t, storetest.MIGBDescription, d.ID)
	})

	t.Run("fallback any", func(t *testing.T) {
		svc := openService(t, terminology.Options{Fallback: terminology.FallbackAny})

		d, err := svc.GetPreferredSynonym(ctx, storetest.ClinicalFinding, spanish)
		require.NoError(t, err)
		assert.Equal(t, "Clinical finding", d.Term)
	})

	t.Run("fallback strict", func(t *testing.T) {
		svc := openService(t, terminology.Options{Fallback: terminology.FallbackStrict})

		_, err := svc.GetPreferredSynonym(ctx, storetest.ClinicalFinding, spanish)
		require.Error(t, err)
		assert.True(t, sigilerr.HasCode(err, sigilerr.CodeTerminologyPreferredAbsent))
		assert.True(t, sigilerr.IsNotFound(err))
	})

	t.Run("unknown concept", func(t *testing.T) {
		svc := openService(t, terminology.Options{})

		_, err := svc.GetPreferredSynonym(ctx, 24700007, nil)
		assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreConceptNotFound))
	})
}

func TestLanguageRefsets(t *testing.T) {
	svc := openService(t, terminology.Options{})

	tests := []struct {
		accept string
		want   []uint64
	}{
		{"en-GB", []uint64{storetest.GB}},
		{"en-US", []uint64{storetest.US}},
		{"en-US,en-GB;q=0.5", []uint64{storetest.US, storetest.GB}},
		{"en-GB;q=0.9,en-US", []uint64{storetest.US, storetest.GB}},
		{"es", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			got, err := svc.LanguageRefsets(tt.accept)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := svc.LanguageRefsets("en;q=nope")
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeTerminologyLanguageInvalid))
}

func TestRefsets(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	installed, err := svc.InstalledReferenceSets(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{storetest.US, storetest.GB, storetest.MapRefset, storetest.SimpleRefset}, installed)

	refsets, err := svc.GetReferenceSets(ctx, storetest.HeartStructure)
	require.NoError(t, err)
	assert.NotNil(t, refsets)
	assert.Empty(t, refsets, "only inactive membership")

	item, err := svc.GetReferenceSetItem(ctx, storetest.ItemID(70))
	require.NoError(t, err)
	assert.Equal(t, storetest.SimpleRefset, item.RefsetID)

	_, err = svc.GetReferenceSetItem(ctx, storetest.ItemID(999))
	assert.True(t, sigilerr.IsNotFound(err))

	items, err := svc.GetComponentRefsetItems(ctx, storetest.MyocardialInfarction, storetest.SimpleRefset)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, storetest.ItemID(70), items[0].ID)
}

func TestReverseMap(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	items, err := svc.ReverseMap(ctx, storetest.MapRefset, "i21", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, storetest.MyocardialInfarction, items[0].ReferencedComponentID)

	items, err = svc.ReverseMap(ctx, storetest.MapRefset, "I22", false)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.ReverseMap(ctx, storetest.MapRefset, "I22", true)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = svc.ReverseMapPrefix(ctx, storetest.MapRefset, "I21", false)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.ReverseMap(ctx, storetest.MapRefset, " ", false)
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	results, err := svc.Search(ctx, &search.Request{Text: "heart attack"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, storetest.HeartAttackDescription, results[0].DescriptionID)
	assert.Equal(t, "Heart attack", results[0].PreferredTerm)
	assert.Equal(t, uint64(3503), results[1].DescriptionID)
	assert.Equal(t, "Acute myocardial infarction", results[1].PreferredTerm)

	gb, err := svc.Search(ctx, &search.Request{Text: "heart attack", LanguageRefsets: []uint64{storetest.GB}})
	require.NoError(t, err)
	require.NotEmpty(t, gb)
	assert.Equal(t, "Myocardial infarction", gb[0].PreferredTerm)

	filtered, err := svc.Search(ctx, &search.Request{
		Text:       "heart",
		Properties: map[uint64][]uint64{snomed.IsA: {storetest.HeartDisease}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	for _, r := range filtered {
		assert.Contains(t, []uint64{storetest.HeartDisease, storetest.AcuteMI}, r.ConceptID)
	}
}

func TestSearch_ByIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	results, err := svc.Search(ctx, &search.Request{Text: " 363698007 "})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, storetest.FindingSite, results[0].ConceptID)
	assert.Equal(t, uint64(7002), results[0].DescriptionID)
	assert.Equal(t, "Finding site", results[0].PreferredTerm)

	// A well-formed identifier of an absent concept falls through to text.
	results, err = svc.Search(ctx, &search.Request{Text: "24700007"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ByIdentifierFiltered(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	tests := []struct {
		name string
		req  *search.Request
		want []uint64
	}{
		{
			name: "outside is-a target",
			req: &search.Request{Text: "363698007",
				Properties: map[uint64][]uint64{snomed.IsA: {storetest.ClinicalFinding}}},
		},
		{
			name: "inside is-a target",
			req: &search.Request{Text: "363698007",
				Properties: map[uint64][]uint64{snomed.IsA: {storetest.Root}}},
			want: []uint64{storetest.FindingSite},
		},
		{
			name: "not a refset member",
			req:  &search.Request{Text: "363698007", ConceptRefsets: []uint64{storetest.SimpleRefset}},
		},
		{
			name: "relationship target not matched",
			req: &search.Request{Text: "363698007",
				Properties: map[uint64][]uint64{storetest.FindingSite: {storetest.BodyStructure}}},
		},
		{
			name: "inactive concept excluded by default",
			req:  &search.Request{Text: "800"},
		},
		{
			name: "inactive concept when requested",
			req:  &search.Request{Text: "800", IncludeInactive: search.BoolPtr(true)},
			want: []uint64{storetest.HeartThing},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Search(ctx, tt.req)
			require.NoError(t, err)
			got := make([]uint64, 0, len(results))
			for _, r := range results {
				got = append(got, r.ConceptID)
			}
			assert.Equal(t, append([]uint64{}, tt.want...), got)
		})
	}

	_, err := svc.Search(ctx, &search.Request{Text: "363698007", Properties: map[uint64][]uint64{snomed.IsA: {}}})
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestSearch_Invalid(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	_, err := svc.Search(ctx, nil)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = svc.Search(ctx, &search.Request{Text: "heart", MaxHits: search.IntPtr(0)})
	assert.True(t, sigilerr.IsInvalidInput(err))

	results, err := svc.Search(ctx, &search.Request{Text: ""})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParseExpression(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{})

	expr, err := svc.ParseExpression(ctx, "363698007 |Finding site|")
	require.NoError(t, err)
	assert.Equal(t, []uint64{storetest.FindingSite}, expr.Concepts())

	_, err = svc.ParseExpression(ctx, "73211009 |Diabetes mellitus|")
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeExpressionConceptUnknown))
	assert.True(t, sigilerr.IsNotFound(err))

	_, err = svc.ParseExpression(ctx, "363698007 :")
	assert.True(t, sigilerr.IsParseError(err))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{CacheSize: 4})

	_, err := svc.GetExtendedConcept(ctx, storetest.Root)
	require.NoError(t, err)
	_, err = svc.GetConcept(ctx, 24700007)
	require.Error(t, err)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.EqualValues(t, 9, st.Concepts)
	assert.EqualValues(t, 8, st.ActiveConcepts)
	assert.EqualValues(t, 4, st.ReferenceSets)
	assert.Equal(t, len(storetest.Descriptions()), st.SearchDocuments)
	assert.Positive(t, st.SearchTokens)
	assert.Equal(t, 1, st.CachedConcepts)
	assert.Len(t, st.Indexes, 3)
	assert.NotNil(t, st.LatestRelease)
	assert.Zero(t, st.FailureCount, "not found is not a failure")
	assert.Nil(t, st.LastFailureAt)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{CacheSize: 4})

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	_, err := svc.GetConcept(ctx, storetest.Root)
	assert.True(t, sigilerr.IsServiceClosed(err))
	_, err = svc.Search(ctx, &search.Request{Text: "heart"})
	assert.True(t, sigilerr.IsServiceClosed(err))
	_, err = svc.LanguageRefsets("en")
	assert.True(t, sigilerr.IsServiceClosed(err))
	_, err = svc.GetDescriptionHistory(ctx, 3005)
	assert.True(t, sigilerr.IsServiceClosed(err))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Available)
}

func TestConcurrentQueries(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, terminology.Options{CacheSize: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []uint64{storetest.Root, storetest.AcuteMI, storetest.HeartDisease} {
				ec, err := svc.GetExtendedConcept(ctx, id)
				assert.NoError(t, err)
				assert.Equal(t, id, ec.Concept.ID)
			}
			results, err := svc.Search(ctx, &search.Request{Text: "myocardial"})
			assert.NoError(t, err)
			assert.NotEmpty(t, results)
		}()
	}
	wg.Wait()
}
