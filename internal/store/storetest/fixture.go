// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package storetest provides a small terminology used by the package tests
// of the store, the derived indexes and the terminology service.
//
// Hierarchy (IS-A):
//
//	100 root
//	├── 200 clinical finding
//	│   ├── 300 myocardial infarction ─┐
//	│   ├── 400 heart disease ─────────┤
//	│   │                              └── 350 acute myocardial infarction
//	│   └── 800 heart thing (inactive, no active parents)
//	├── 500 body structure
//	│   └── 600 heart structure
//	└── 363698007 finding site
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/snomed/internal/store"
	"github.com/sigil-dev/snomed/internal/store/sqlite"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

const (
	Root                 uint64 = 100
	ClinicalFinding      uint64 = 200
	MyocardialInfarction uint64 = 300
	AcuteMI              uint64 = 350
	HeartDisease         uint64 = 400
	BodyStructure        uint64 = 500
	HeartStructure       uint64 = 600
	HeartThing           uint64 = 800
	FindingSite          uint64 = 363698007

	// Descriptions referenced by tests.
	HeartAttackDescription    uint64 = 3002
	CardiacInfarctDescription uint64 = 3003
	MIGBDescription           uint64 = 3004
	HeartDiseaseDescription   uint64 = 4002
	DiseaseOfHeartDescription uint64 = 4003

	SimpleRefset uint64 = 991000

	MapRefset = snomed.ICD10ComplexMapRefset
	US        = snomed.USEnglishLanguageRefset
	GB        = snomed.GBEnglishLanguageRefset
)

var (
	release2002 = time.Date(2002, time.January, 31, 0, 0, 0, 0, time.UTC)
	release2020 = time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC)
	release2021 = time.Date(2021, time.July, 31, 0, 0, 0, 0, time.UTC)
)

// ItemID returns the deterministic identifier of the n-th fixture refset
// item.
func ItemID(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("storetest/refset-item/%d", n)))
}

func concept(id uint64, active bool, et time.Time) *snomed.Concept {
	return &snomed.Concept{
		ID:                 id,
		EffectiveTime:      et,
		Active:             active,
		ModuleID:           snomed.CoreModule,
		DefinitionStatusID: snomed.Primitive,
	}
}

// Concepts returns the current concept rows plus one superseded version of
// HeartThing.
func Concepts() []*snomed.Concept {
	return []*snomed.Concept{
		concept(Root, true, release2002),
		concept(ClinicalFinding, true, release2002),
		concept(MyocardialInfarction, true, release2002),
		concept(AcuteMI, true, release2020),
		concept(HeartDisease, true, release2002),
		concept(BodyStructure, true, release2002),
		concept(HeartStructure, true, release2002),
		concept(FindingSite, true, release2002),
		concept(HeartThing, true, release2002),
		concept(HeartThing, false, release2021),
	}
}

func description(id, conceptID, typeID uint64, term string) *snomed.Description {
	return &snomed.Description{
		ID:                 id,
		EffectiveTime:      release2002,
		Active:             true,
		ModuleID:           snomed.CoreModule,
		ConceptID:          conceptID,
		LanguageCode:       "en",
		TypeID:             typeID,
		Term:               term,
		CaseSignificanceID: 900000000000448009,
	}
}

// Descriptions returns every fixture description.
func Descriptions() []*snomed.Description {
	retired := description(3005, MyocardialInfarction, snomed.Synonym, "Heart attack obsolete")
	retired.Active = false
	return []*snomed.Description{
		description(1001, Root, snomed.FullySpecifiedName, "SNOMED CT Concept (SNOMED RT+CTV3)"),
		description(1002, Root, snomed.Synonym, "SNOMED CT Concept"),
		description(2001, ClinicalFinding, snomed.FullySpecifiedName, "Clinical finding (finding)"),
		description(2002, ClinicalFinding, snomed.Synonym, "Clinical finding"),
		description(3001, MyocardialInfarction, snomed.FullySpecifiedName, "Myocardial infarction (disorder)"),
		description(HeartAttackDescription, MyocardialInfarction, snomed.Synonym, "Heart attack"),
		description(CardiacInfarctDescription, MyocardialInfarction, snomed.Synonym, "Cardiac infarct"),
		description(MIGBDescription, MyocardialInfarction, snomed.Synonym, "Myocardial infarction"),
		retired,
		description(3501, AcuteMI, snomed.FullySpecifiedName, "Acute myocardial infarction (disorder)"),
		description(3502, AcuteMI, snomed.Synonym, "Acute myocardial infarction"),
		description(3503, AcuteMI, snomed.Synonym, "Acute heart attack"),
		description(4001, HeartDisease, snomed.FullySpecifiedName, "Heart disease (disorder)"),
		description(HeartDiseaseDescription, HeartDisease, snomed.Synonym, "Heart disease"),
		description(DiseaseOfHeartDescription, HeartDisease, snomed.Synonym, "Disease of heart"),
		description(5001, BodyStructure, snomed.FullySpecifiedName, "Body structure (body structure)"),
		description(5002, BodyStructure, snomed.Synonym, "Body structure"),
		description(6001, HeartStructure, snomed.FullySpecifiedName, "Heart structure (body structure)"),
		description(6002, HeartStructure, snomed.Synonym, "Heart structure"),
		description(6003, HeartStructure, snomed.Synonym, "Cardiac structure"),
		description(7001, FindingSite, snomed.FullySpecifiedName, "Finding site (attribute)"),
		description(7002, FindingSite, snomed.Synonym, "Finding site"),
		description(8001, HeartThing, snomed.FullySpecifiedName, "Heart thing (disorder)"),
		description(8002, HeartThing, snomed.Synonym, "Heart thing"),
	}
}

func relationship(id, source, typeID, destination uint64, group int) *snomed.Relationship {
	return &snomed.Relationship{
		ID:                   id,
		EffectiveTime:        release2002,
		Active:               true,
		ModuleID:             snomed.CoreModule,
		SourceID:             source,
		DestinationID:        destination,
		Group:                group,
		TypeID:               typeID,
		CharacteristicTypeID: snomed.InferredRelationship,
		ModifierID:           900000000000451002,
	}
}

// Relationships returns every fixture relationship.
func Relationships() []*snomed.Relationship {
	retired := relationship(10009, HeartThing, snomed.IsA, ClinicalFinding, 0)
	retired.Active = false
	retired.EffectiveTime = release2021
	return []*snomed.Relationship{
		relationship(10001, ClinicalFinding, snomed.IsA, Root, 0),
		relationship(10002, MyocardialInfarction, snomed.IsA, ClinicalFinding, 0),
		relationship(10003, AcuteMI, snomed.IsA, MyocardialInfarction, 0),
		relationship(10004, AcuteMI, snomed.IsA, HeartDisease, 0),
		relationship(10005, HeartDisease, snomed.IsA, ClinicalFinding, 0),
		relationship(10006, BodyStructure, snomed.IsA, Root, 0),
		relationship(10007, HeartStructure, snomed.IsA, BodyStructure, 0),
		relationship(10008, FindingSite, snomed.IsA, Root, 0),
		retired,
		relationship(10010, MyocardialInfarction, FindingSite, HeartStructure, 1),
		relationship(10011, HeartDisease, FindingSite, HeartStructure, 1),
		relationship(10012, AcuteMI, FindingSite, HeartStructure, 1),
	}
}

func item(n int, refsetID, componentID uint64) *snomed.ReferenceSetItem {
	return &snomed.ReferenceSetItem{
		ID:                    ItemID(n),
		EffectiveTime:         release2002,
		Active:                true,
		ModuleID:              snomed.CoreModule,
		RefsetID:              refsetID,
		ReferencedComponentID: componentID,
	}
}

func language(n int, refsetID, descriptionID, acceptability uint64) *snomed.ReferenceSetItem {
	i := item(n, refsetID, descriptionID)
	i.AcceptabilityID = acceptability
	return i
}

func mapping(n int, componentID uint64, target string, active bool) *snomed.ReferenceSetItem {
	i := item(n, MapRefset, componentID)
	i.Active = active
	i.MapTarget = target
	i.MapGroup = 1
	i.MapPriority = 1
	i.MapRule = "TRUE"
	i.MapAdvice = "ALWAYS " + target
	i.CorrelationID = 447561005
	i.MapCategoryID = 447637006
	return i
}

// RefsetItems returns the language, map and simple refset items.
func RefsetItems() []*snomed.ReferenceSetItem {
	p, a := snomed.Preferred, snomed.Acceptable
	items := []*snomed.ReferenceSetItem{
		// Language refsets: every FSN preferred in both dialects.
		language(1, US, 1001, p), language(2, GB, 1001, p),
		language(3, US, 1002, p), language(4, GB, 1002, p),
		language(5, US, 2001, p), language(6, GB, 2001, p),
		language(7, US, 2002, p), language(8, GB, 2002, p),
		language(9, US, 3001, p), language(10, GB, 3001, p),
		language(11, US, HeartAttackDescription, p), language(12, GB, HeartAttackDescription, a),
		language(13, US, CardiacInfarctDescription, a), language(14, GB, CardiacInfarctDescription, a),
		language(15, US, MIGBDescription, a), language(16, GB, MIGBDescription, p),
		language(17, US, 3501, p), language(18, GB, 3501, p),
		language(19, US, 3502, p), language(20, GB, 3502, p),
		language(21, US, 3503, a), language(22, GB, 3503, a),
		language(23, US, 4001, p), language(24, GB, 4001, p),
		language(25, US, HeartDiseaseDescription, p), language(26, GB, HeartDiseaseDescription, p),
		language(27, US, DiseaseOfHeartDescription, a), language(28, GB, DiseaseOfHeartDescription, a),
		language(29, US, 5001, p), language(30, GB, 5001, p),
		language(31, US, 5002, p), language(32, GB, 5002, p),
		language(33, US, 6001, p), language(34, GB, 6001, p),
		language(35, US, 6002, p), language(36, GB, 6002, p),
		language(37, US, 6003, a), language(38, GB, 6003, a),
		language(39, US, 7001, p), language(40, GB, 7001, p),
		language(41, US, 7002, p), language(42, GB, 7002, p),
		language(43, US, 8001, p), language(44, GB, 8001, p),
		language(45, US, 8002, p), language(46, GB, 8002, p),

		// ICD-10 cross-map.
		mapping(60, MyocardialInfarction, "I21", true),
		mapping(61, AcuteMI, "I21.0", true),
		mapping(62, HeartDisease, "I51.9", true),
		mapping(63, MyocardialInfarction, "I22", false),

		// Simple refset.
		item(70, SimpleRefset, MyocardialInfarction),
		item(71, SimpleRefset, HeartDisease),
	}
	retired := item(72, SimpleRefset, HeartStructure)
	retired.Active = false
	return append(items, retired)
}

// Load imports the fixture into b in one transaction.
func Load(ctx context.Context, b store.Backend) error {
	return b.Import(ctx, func(w store.ImportWriter) error {
		if err := w.PutConcepts(ctx, Concepts()); err != nil {
			return err
		}
		if err := w.PutDescriptions(ctx, Descriptions()); err != nil {
			return err
		}
		if err := w.PutRelationships(ctx, Relationships()); err != nil {
			return err
		}
		return w.PutReferenceSetItems(ctx, RefsetItems())
	})
}

// DBPath returns a database path inside a per-test temp directory.
func DBPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

// NewBackend returns a writable sqlite backend loaded with the fixture.
// Derived indexes are not built.
func NewBackend(t testing.TB) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.New(DBPath(t, "fixture"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, Load(context.Background(), b))
	return b
}
