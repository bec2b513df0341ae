// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package rf2

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// maxLineBytes bounds a single row; OWL axioms can be long.
const maxLineBytes = 1 << 20

// batch is a group of parsed rows of one kind.
type batch interface {
	write(ctx context.Context, w store.ImportWriter) error
	count(s *Summary)
}

type conceptBatch []*snomed.Concept
type descriptionBatch []*snomed.Description
type relationshipBatch []*snomed.Relationship
type refsetBatch []*snomed.ReferenceSetItem

func (b conceptBatch) write(ctx context.Context, w store.ImportWriter) error {
	return w.PutConcepts(ctx, b)
}
func (b descriptionBatch) write(ctx context.Context, w store.ImportWriter) error {
	return w.PutDescriptions(ctx, b)
}
func (b relationshipBatch) write(ctx context.Context, w store.ImportWriter) error {
	return w.PutRelationships(ctx, b)
}
func (b refsetBatch) write(ctx context.Context, w store.ImportWriter) error {
	return w.PutReferenceSetItems(ctx, b)
}

func (b conceptBatch) count(s *Summary)      { s.Concepts += len(b) }
func (b descriptionBatch) count(s *Summary)  { s.Descriptions += len(b) }
func (b relationshipBatch) count(s *Summary) { s.Relationships += len(b) }
func (b refsetBatch) count(s *Summary)       { s.RefsetItems += len(b) }

// row gives typed access to the columns of one line by header name.
type row struct {
	file   string
	line   int
	cols   map[string]int
	fields []string
	err    error
}

func (r *row) fail(format string, args ...any) {
	if r.err == nil {
		r.err = sigilerr.New(sigilerr.CodeImportFileInvalid, "invalid release row: "+fmt.Sprintf(format, args...),
			sigilerr.FieldPath(r.file), sigilerr.Field("line", r.line))
	}
}

func (r *row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r *row) id(name string) uint64 {
	s := r.str(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.fail("column %s: %q is not an identifier", name, s)
	}
	return v
}

func (r *row) num(name string) int {
	s := r.str(name)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail("column %s: %q is not a number", name, s)
	}
	return v
}

func (r *row) flag(name string) bool {
	switch s := r.str(name); s {
	case "1":
		return true
	case "0":
		return false
	default:
		r.fail("column %s: %q is not 0 or 1", name, s)
		return false
	}
}

func (r *row) uuidCol(name string) uuid.UUID {
	s := r.str(name)
	v, err := uuid.Parse(s)
	if err != nil {
		r.fail("column %s: %q is not a UUID", name, s)
	}
	return v
}

func (r *row) effectiveTime() time.Time {
	v, err := snomed.ParseEffectiveTime(r.str("effectiveTime"))
	if err != nil {
		r.fail("column effectiveTime: %q is not yyyymmdd", r.str("effectiveTime"))
	}
	return v
}

// Required columns per kind.
var required = map[Kind][]string{
	KindConcept:      {"id", "effectiveTime", "active", "moduleId", "definitionStatusId"},
	KindDescription:  {"id", "effectiveTime", "active", "moduleId", "conceptId", "languageCode", "typeId", "term", "caseSignificanceId"},
	KindRelationship: {"id", "effectiveTime", "active", "moduleId", "sourceId", "destinationId", "relationshipGroup", "typeId", "characteristicTypeId", "modifierId"},
	KindRefset:       {"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId"},
}

// Refset columns mapped onto ReferenceSetItem fields; any other column is
// kept in Attributes.
var knownRefsetColumns = map[string]bool{
	"id": true, "effectiveTime": true, "active": true, "moduleId": true, "refsetId": true,
	"referencedComponentId": true, "acceptabilityId": true, "mapTarget": true, "mapGroup": true,
	"mapPriority": true, "mapRule": true, "mapAdvice": true, "correlationId": true,
	"mapCategoryId": true, "targetComponentId": true, "valueId": true, "owlExpression": true,
}

// parseFile reads f and hands rows to emit in batches of batchSize.
func parseFile(ctx context.Context, f File, batchSize int, emit func(batch) error) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeImportFileInvalid, "opening release file", sigilerr.FieldPath(f.Path))
	}
	defer func() { _ = fh.Close() }()

	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return sigilerr.Wrap(err, sigilerr.CodeImportFileInvalid, "reading header", sigilerr.FieldPath(f.Path))
		}
		return nil
	}
	cols := make(map[string]int)
	for i, name := range strings.Split(strings.TrimPrefix(strings.TrimRight(sc.Text(), "\r"), "\ufeff"), "\t") {
		cols[name] = i
	}
	for _, name := range required[f.Kind] {
		if _, ok := cols[name]; !ok {
			return sigilerr.New(sigilerr.CodeImportFileInvalid, "release file is missing column "+name, sigilerr.FieldPath(f.Path))
		}
	}

	var (
		concepts      conceptBatch
		descriptions  descriptionBatch
		relationships relationshipBatch
		items         refsetBatch
		pending       int
	)
	flush := func() error {
		if pending == 0 {
			return nil
		}
		var b batch
		switch f.Kind {
		case KindConcept:
			b, concepts = concepts, nil
		case KindDescription:
			b, descriptions = descriptions, nil
		case KindRelationship:
			b, relationships = relationships, nil
		case KindRefset:
			b, items = items, nil
		}
		pending = 0
		return emit(b)
	}

	r := &row{file: f.Path, cols: cols}
	for line := 2; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		r.line, r.fields, r.err = line, strings.Split(text, "\t"), nil

		switch f.Kind {
		case KindConcept:
			concepts = append(concepts, parseConcept(r))
		case KindDescription:
			descriptions = append(descriptions, parseDescription(r))
		case KindRelationship:
			relationships = append(relationships, parseRelationship(r))
		case KindRefset:
			items = append(items, parseRefsetItem(r))
		}
		if r.err != nil {
			return r.err
		}

		pending++
		if pending >= batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeImportFileInvalid, "reading release file", sigilerr.FieldPath(f.Path))
	}
	return flush()
}

func parseConcept(r *row) *snomed.Concept {
	return &snomed.Concept{
		ID:                 r.id("id"),
		EffectiveTime:      r.effectiveTime(),
		Active:             r.flag("active"),
		ModuleID:           r.id("moduleId"),
		DefinitionStatusID: r.id("definitionStatusId"),
	}
}

func parseDescription(r *row) *snomed.Description {
	return &snomed.Description{
		ID:                 r.id("id"),
		EffectiveTime:      r.effectiveTime(),
		Active:             r.flag("active"),
		ModuleID:           r.id("moduleId"),
		ConceptID:          r.id("conceptId"),
		LanguageCode:       r.str("languageCode"),
		TypeID:             r.id("typeId"),
		Term:               r.str("term"),
		CaseSignificanceID: r.id("caseSignificanceId"),
	}
}

func parseRelationship(r *row) *snomed.Relationship {
	return &snomed.Relationship{
		ID:                   r.id("id"),
		EffectiveTime:        r.effectiveTime(),
		Active:               r.flag("active"),
		ModuleID:             r.id("moduleId"),
		SourceID:             r.id("sourceId"),
		DestinationID:        r.id("destinationId"),
		Group:                r.num("relationshipGroup"),
		TypeID:               r.id("typeId"),
		CharacteristicTypeID: r.id("characteristicTypeId"),
		ModifierID:           r.id("modifierId"),
	}
}

func parseRefsetItem(r *row) *snomed.ReferenceSetItem {
	item := &snomed.ReferenceSetItem{
		ID:                    r.uuidCol("id"),
		EffectiveTime:         r.effectiveTime(),
		Active:                r.flag("active"),
		ModuleID:              r.id("moduleId"),
		RefsetID:              r.id("refsetId"),
		ReferencedComponentID: r.id("referencedComponentId"),
		AcceptabilityID:       r.id("acceptabilityId"),
		MapTarget:             r.str("mapTarget"),
		MapGroup:              r.num("mapGroup"),
		MapPriority:           r.num("mapPriority"),
		MapRule:               r.str("mapRule"),
		MapAdvice:             r.str("mapAdvice"),
		CorrelationID:         r.id("correlationId"),
		MapCategoryID:         r.id("mapCategoryId"),
		TargetComponentID:     r.id("targetComponentId"),
		ValueID:               r.id("valueId"),
		OWLExpression:         r.str("owlExpression"),
	}
	for name, i := range r.cols {
		if knownRefsetColumns[name] || i >= len(r.fields) {
			continue
		}
		if item.Attributes == nil {
			item.Attributes = make(map[string]string)
		}
		item.Attributes[name] = r.fields[i]
	}
	return item
}
