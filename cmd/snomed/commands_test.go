// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/snomed/internal/search"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/health"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0o644))
}

// writeRelease lays out a snapshot release with 100 root, 200 IS-A 100 and
// 300 IS-A 200, US English terms and one ICD-10 map item.
func writeRelease(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "SnomedCT_Test", "Snapshot")
	const module = "900000000000207008"

	writeFile(t, filepath.Join(dir, "Terminology", "sct2_Concept_Snapshot_INT_20230131.txt"),
		"id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId",
		"100\t20230131\t1\t"+module+"\t900000000000074008",
		"200\t20230131\t1\t"+module+"\t900000000000074008",
		"300\t20230131\t1\t"+module+"\t900000000000074008",
	)
	writeFile(t, filepath.Join(dir, "Terminology", "sct2_Description_Snapshot-en_INT_20230131.txt"),
		"id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId",
		"1001\t20230131\t1\t"+module+"\t100\ten\t900000000000013009\tSNOMED CT Concept\t900000000000448009",
		"2001\t20230131\t1\t"+module+"\t200\ten\t900000000000013009\tClinical finding\t900000000000448009",
		"3001\t20230131\t1\t"+module+"\t300\ten\t900000000000013009\tHeart attack\t900000000000448009",
		"3002\t20230131\t1\t"+module+"\t300\ten\t900000000000013009\tCardiac infarct\t900000000000448009",
	)
	writeFile(t, filepath.Join(dir, "Terminology", "sct2_Relationship_Snapshot_INT_20230131.txt"),
		"id\teffectiveTime\tactive\tmoduleId\tsourceId\tdestinationId\trelationshipGroup\ttypeId\tcharacteristicTypeId\tmodifierId",
		"10001\t20230131\t1\t"+module+"\t200\t100\t0\t116680003\t900000000000011006\t900000000000451002",
		"10002\t20230131\t1\t"+module+"\t300\t200\t0\t116680003\t900000000000011006\t900000000000451002",
	)
	writeFile(t, filepath.Join(dir, "Refset", "Language", "der2_cRefset_LanguageSnapshot-en_INT_20230131.txt"),
		"id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tacceptabilityId",
		"80000000-0000-0000-0000-000000000001\t20230131\t1\t"+module+"\t900000000000509007\t1001\t900000000000548007",
		"80000000-0000-0000-0000-000000000002\t20230131\t1\t"+module+"\t900000000000509007\t2001\t900000000000548007",
		"80000000-0000-0000-0000-000000000003\t20230131\t1\t"+module+"\t900000000000509007\t3001\t900000000000548007",
		"80000000-0000-0000-0000-000000000004\t20230131\t1\t"+module+"\t900000000000509007\t3002\t900000000000549004",
	)
	writeFile(t, filepath.Join(dir, "Refset", "Map", "der2_iisssccRefset_ExtendedMapSnapshot_INT_20230131.txt"),
		"id\teffectiveTime\tactive\tmoduleId\trefsetId\treferencedComponentId\tmapGroup\tmapPriority\tmapRule\tmapAdvice\tmapTarget\tcorrelationId\tmapCategoryId",
		"90000000-0000-0000-0000-000000000001\t20230131\t1\t"+module+"\t447562003\t300\t1\t1\tTRUE\tALWAYS I21.9\tI21.9\t447561005\t447637006",
	)
	return dir
}

// importRelease imports a fresh release and returns the database path.
func importRelease(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "snomed.db")
	out, err := run(t, "import", writeRelease(t), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "3 concepts, 4 descriptions, 2 relationships, 5 refset items")
	assert.Contains(t, out, "indexed 3 concepts, 4 search documents, 1 map targets")
	return db
}

func TestImportCommand_NoIndex(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snomed.db")

	out, err := run(t, "import", writeRelease(t), "--db", db, "--no-index")
	require.NoError(t, err)
	assert.Contains(t, out, "indexes not rebuilt")

	_, err = run(t, "status", "--db", db)
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreIndexesNotBuilt))

	out, err = run(t, "doctor", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "missing")

	out, err = run(t, "index", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 concepts")

	_, err = run(t, "status", "--db", db)
	require.NoError(t, err)
}

func TestImportCommand_NoReleaseFiles(t *testing.T) {
	_, err := run(t, "import", t.TempDir(), "--db", filepath.Join(t.TempDir(), "snomed.db"))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeImportNoReleaseFiles))
}

func TestStatusCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "status", "--db", db, "-o", "json")
	require.NoError(t, err)
	var st health.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Available)
	assert.EqualValues(t, 3, st.Concepts)
	assert.Len(t, st.Indexes, 3)
}

func TestConceptCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "concept", "300", "--db", db)
	require.NoError(t, err)
	var ec struct {
		Concept struct {
			ID uint64 `yaml:"id"`
		} `yaml:"concept"`
		AllParents []uint64 `yaml:"allParents"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &ec))
	assert.Equal(t, uint64(300), ec.Concept.ID)
	assert.Equal(t, []uint64{100, 200}, ec.AllParents)

	out, err = run(t, "concept", "300", "--history", "--db", db, "-o", "json")
	require.NoError(t, err)
	var history []*snomed.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Len(t, history, 1)

	_, err = run(t, "concept", "abc", "--db", db)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = run(t, "concept", "24700007", "--db", db)
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestHistoryCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "history", "3002", "--kind", "description", "--db", db, "-o", "json")
	require.NoError(t, err)
	var descs []*snomed.Description
	require.NoError(t, json.Unmarshal([]byte(out), &descs))
	require.Len(t, descs, 1)
	assert.Equal(t, "Cardiac infarct", descs[0].Term)

	out, err = run(t, "history", "10002", "--kind", "relationship", "--db", db, "-o", "json")
	require.NoError(t, err)
	var rels []*snomed.Relationship
	require.NoError(t, json.Unmarshal([]byte(out), &rels))
	require.Len(t, rels, 1)
	assert.Equal(t, uint64(300), rels[0].SourceID)

	out, err = run(t, "history", "300", "--kind", "concept", "--db", db, "-o", "json")
	require.NoError(t, err)
	var concepts []*snomed.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &concepts))
	assert.Len(t, concepts, 1)

	// Short fixture ids carry no partition digits.
	_, err = run(t, "history", "300", "--db", db)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = run(t, "history", "300", "--kind", "refset", "--db", db)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = run(t, "history", "24700007", "--db", db)
	assert.True(t, sigilerr.IsNotFound(err), "partition digits select the concept history")
}

func TestTermCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "term", "300", "200", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "300 |Heart attack|\n200 |Clinical finding|\n", out)

	out, err = run(t, "term", "300", "--lang", "en-US", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "300 |Heart attack|\n", out)
}

func TestSearchCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "search", "heart", "attack", "--db", db, "-o", "json")
	require.NoError(t, err)
	var results []*search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, uint64(300), results[0].ConceptID)
	assert.Equal(t, "Heart attack", results[0].PreferredTerm)

	out, err = run(t, "search", "infarct", "--is-a", "200", "--db", db, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Cardiac infarct", results[0].Term)
	assert.Equal(t, "Heart attack", results[0].PreferredTerm)

	out, err = run(t, "search", "infarct", "--is-a", "100", "--refset", "447562003", "--db", db, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 1)

	_, err = run(t, "search", "heart", "--max-hits", "0", "--db", db)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = run(t, "search", "heart", "--fuzzy", "maybe", "--db", db)
	assert.Error(t, err)
}

func TestHierarchyCommands(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "subsumes", "300", "100", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, "subsumes", "100", "300", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = run(t, "parents", "300", "--db", db, "-o", "json")
	require.NoError(t, err)
	var ids []uint64
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []uint64{100, 200}, ids)

	out, err = run(t, "children", "100", "--db", db, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []uint64{200, 300}, ids)
}

func TestMapCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "map", "i21.9", "--db", db, "-o", "json")
	require.NoError(t, err)
	var items []*snomed.ReferenceSetItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, uint64(300), items[0].ReferencedComponentID)

	out, err = run(t, "map", "I21", "--prefix", "--db", db, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 1)

	out, err = run(t, "map", "I99", "--db", db, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Empty(t, items)
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", "--offline", "64572001:{363698007=39057004}")
	require.NoError(t, err)
	assert.Equal(t, "64572001 : { 363698007 = 39057004 }\n", out)

	_, err = run(t, "parse", "--offline", "64572001 :")
	assert.True(t, sigilerr.IsParseError(err))

	db := importRelease(t)
	_, err = run(t, "parse", "64572001", "--db", db)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeExpressionConceptUnknown))
}

func TestDoctorCommand(t *testing.T) {
	db := importRelease(t)

	out, err := run(t, "doctor", "--db", db)
	require.NoError(t, err)
	for _, check := range []string{"Binary:", "Platform:", "Config:", "Database:", "Indexes:", "Disk Space:"} {
		assert.Contains(t, out, check)
	}
	assert.Contains(t, out, "built, 3 concepts, release 20230131")

	out, err = run(t, "doctor", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "no database")
}
