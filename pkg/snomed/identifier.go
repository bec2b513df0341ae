// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snomed

import (
	"strconv"
	"strings"
	"time"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Partition identifies the component kind encoded in an SCTID.
type Partition int

const (
	PartitionUnknown Partition = iota
	PartitionConcept
	PartitionDescription
	PartitionRelationship
)

func (p Partition) String() string {
	switch p {
	case PartitionConcept:
		return "concept"
	case PartitionDescription:
		return "description"
	case PartitionRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

const (
	minSCTIDLength = 6
	maxIDLength    = 18
)

// ParseID parses a positive decimal identifier of at most 18 digits. Only
// the syntax is checked; check digits are validated separately by Verhoeff.
func ParseID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxIDLength {
		return 0, sigilerr.Errorf(sigilerr.CodeTerminologyIDInvalid,
			"identifier %q must have between 1 and %d digits", s, maxIDLength)
	}
	if s[0] == '0' {
		return 0, sigilerr.Errorf(sigilerr.CodeTerminologyIDInvalid, "identifier %q has a leading zero", s)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, sigilerr.Wrapf(err, sigilerr.CodeTerminologyIDInvalid, "parsing identifier %q", s)
	}
	return id, nil
}

// ParseIDs parses a comma or whitespace separated list of SCTIDs.
func ParseIDs(s string) ([]uint64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]uint64, 0, len(fields))
	for _, f := range fields {
		id, err := ParseID(f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PartitionOf returns the component kind encoded in the id's partition digit.
func PartitionOf(id uint64) Partition {
	s := strconv.FormatUint(id, 10)
	if len(s) < minSCTIDLength {
		return PartitionUnknown
	}
	switch s[len(s)-2] {
	case '0':
		return PartitionConcept
	case '1':
		return PartitionDescription
	case '2':
		return PartitionRelationship
	default:
		return PartitionUnknown
	}
}

// IsConceptID reports whether id is syntactically a concept identifier
// with a valid check digit.
func IsConceptID(id uint64) bool {
	return PartitionOf(id) == PartitionConcept && Verhoeff(id)
}

// IsDescriptionID reports whether id is syntactically a description
// identifier with a valid check digit.
func IsDescriptionID(id uint64) bool {
	return PartitionOf(id) == PartitionDescription && Verhoeff(id)
}

var (
	verhoeffD = [10][10]uint8{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
		{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
		{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
		{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
		{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
		{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
		{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
		{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}
	verhoeffP = [8][10]uint8{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
		{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
		{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
		{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
		{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
		{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
		{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
	}
)

// Verhoeff reports whether the trailing digit of id is a valid Verhoeff
// check digit for the preceding digits.
func Verhoeff(id uint64) bool {
	var c uint8
	for i := 0; id > 0; i++ {
		c = verhoeffD[c][verhoeffP[i%8][id%10]]
		id /= 10
	}
	return c == 0
}

// --- Effective times ---

const effectiveTimeLayout = "20060102"

// ParseEffectiveTime parses an RF2 yyyymmdd date. An empty value yields the
// zero time.
func ParseEffectiveTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(effectiveTimeLayout, s)
	if err != nil {
		return time.Time{}, sigilerr.Wrapf(err, sigilerr.CodeImportFileInvalid, "parsing effective time %q", s)
	}
	return t, nil
}

// EffectiveTimeInt encodes t as the integer yyyymmdd.
func EffectiveTimeInt(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// EffectiveTimeFromInt decodes an integer yyyymmdd.
func EffectiveTimeFromInt(v int) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Date(v/10000, time.Month(v/100%100), v%100, 0, 0, 0, 0, time.UTC)
}

// FormatEffectiveTime renders t in RF2 form.
func FormatEffectiveTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(effectiveTimeLayout)
}
