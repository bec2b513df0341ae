// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package rf2 reads SNOMED CT Release Format 2 distributions: it discovers
// the release files in a directory tree and streams their rows into a store
// import.
package rf2

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Kind is the component type held by a release file.
type Kind int

const (
	KindConcept Kind = iota + 1
	KindDescription
	KindRelationship
	KindRefset
)

func (k Kind) String() string {
	switch k {
	case KindConcept:
		return "concept"
	case KindDescription:
		return "description"
	case KindRelationship:
		return "relationship"
	case KindRefset:
		return "refset"
	default:
		return "unknown"
	}
}

// Release types as they appear in file names.
const (
	Snapshot = "Snapshot"
	Full     = "Full"
	Delta    = "Delta"
)

// File is one discovered release file.
type File struct {
	Path    string
	Kind    Kind
	Release string
	// Pattern is the refset attribute pattern from the file name, for
	// example "c" for language refsets or "iissscc" for extended maps.
	Pattern string
}

// Discover walks root and returns the recognised release files sorted by
// path. Stated relationships and concrete values are not imported.
func Discover(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if f, ok := classify(path); ok {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeImportDiscoveryFailure, "walking release directory", sigilerr.FieldPath(root))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// classify recognises a release file from its base name.
func classify(path string) (File, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".txt") {
		return File{}, false
	}

	f := File{Path: path, Release: releaseOf(name)}
	switch {
	case strings.HasPrefix(name, "sct2_Concept_"):
		f.Kind = KindConcept
	case strings.HasPrefix(name, "sct2_Description_"), strings.HasPrefix(name, "sct2_TextDefinition_"):
		f.Kind = KindDescription
	case strings.HasPrefix(name, "sct2_Relationship_"):
		f.Kind = KindRelationship
	case strings.HasPrefix(name, "der2_"):
		idx := strings.Index(name, "Refset_")
		if idx < 0 {
			return File{}, false
		}
		f.Kind = KindRefset
		f.Pattern = name[len("der2_"):idx]
	default:
		return File{}, false
	}
	if f.Release == "" {
		return File{}, false
	}
	return f, true
}

func releaseOf(name string) string {
	for _, r := range []string{Snapshot, Full, Delta} {
		if strings.Contains(name, r) {
			return r
		}
	}
	return ""
}

// Filter keeps the files of the given release type. An empty release keeps
// everything.
func Filter(files []File, release string) []File {
	if release == "" {
		return files
	}
	var out []File
	for _, f := range files {
		if strings.EqualFold(f.Release, release) {
			out = append(out, f)
		}
	}
	return out
}
