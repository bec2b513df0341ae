// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package expression_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/snomed/internal/expression"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

func TestParse_Simple(t *testing.T) {
	e, err := expression.Parse("  73211009 |Diabetes mellitus|  ")
	require.NoError(t, err)
	assert.Equal(t, expression.Unspecified, e.DefinitionStatus)
	require.Len(t, e.Focus, 1)
	assert.Equal(t, uint64(73211009), e.Focus[0].ID)
	assert.Equal(t, "Diabetes mellitus", e.Focus[0].Term)
	assert.Empty(t, e.Attributes)
	assert.Empty(t, e.Groups)
}

func TestParse_Refinements(t *testing.T) {
	e, err := expression.Parse(`=== 64572001 |Disease| + 404684003 |Clinical finding| :
		246075003 |Causative agent| = 387517004 |Paracetamol|,
		{ 363698007 |Finding site| = 39057004 |Pulmonary valve structure|,
		  116676008 |Associated morphology| = 415582006 |Stenosis| }
		{ 363698007 = 53085002 }`)
	require.NoError(t, err)

	assert.Equal(t, expression.EquivalentTo, e.DefinitionStatus)
	assert.Equal(t, []uint64{64572001, 404684003}, []uint64{e.Focus[0].ID, e.Focus[1].ID})
	require.Len(t, e.Attributes, 1)
	assert.Equal(t, uint64(246075003), e.Attributes[0].Name.ID)
	assert.Equal(t, "Paracetamol", e.Attributes[0].Value.Concept.Term)
	require.Len(t, e.Groups, 2)
	assert.Len(t, e.Groups[0], 2)
	assert.Len(t, e.Groups[1], 1)
	assert.Equal(t, uint64(53085002), e.Groups[1][0].Value.Concept.ID)
}

func TestParse_Values(t *testing.T) {
	e, err := expression.Parse(`<<< 322236009 : 209813002 = (385055001 : 411116001 = 421026006),
		1142135004 = #250, 1142136003 = #-0.5, 774158006 = "Brand \"X\" \\ tablet"`)
	require.NoError(t, err)
	assert.Equal(t, expression.SubtypeOf, e.DefinitionStatus)
	require.Len(t, e.Attributes, 4)

	nested := e.Attributes[0].Value
	require.Equal(t, expression.NestedValue, nested.Kind)
	assert.Equal(t, uint64(385055001), nested.Nested.Focus[0].ID)
	assert.Equal(t, uint64(421026006), nested.Nested.Attributes[0].Value.Concept.ID)

	assert.Equal(t, expression.NumericValue, e.Attributes[1].Value.Kind)
	assert.Equal(t, "250", e.Attributes[1].Value.Number)
	assert.Equal(t, "-0.5", e.Attributes[2].Value.Number)
	assert.Equal(t, expression.StringValue, e.Attributes[3].Value.Kind)
	assert.Equal(t, `Brand "X" \ tablet`, e.Attributes[3].Value.String)
}

func TestParse_Comments(t *testing.T) {
	e, err := expression.Parse("/* focus */ 73211009 /* done */")
	require.NoError(t, err)
	assert.Equal(t, uint64(73211009), e.Focus[0].ID)
}

func TestString_RoundTrip(t *testing.T) {
	inputs := []string{
		"73211009",
		"73211009 |Diabetes mellitus|",
		"=== 64572001 |Disease| : { 363698007 |Finding site| = 39057004 |Pulmonary valve| }",
		"<<< 322236009 : 209813002 = (385055001 : 411116001 = 421026006), 1142135004 = #250",
		`421720008 + 7946007 : 774158006 = "a \"b\"", { 363698007 = 53085002 }, { 116676008 = 415582006 }`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			e, err := expression.Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, e.String())

			again, err := expression.Parse(e.String())
			require.NoError(t, err)
			assert.Equal(t, e, again)
		})
	}
}

func TestString_Canonical(t *testing.T) {
	e := expression.MustParse("64572001:{363698007=39057004,116676008=415582006}")
	assert.Equal(t, "64572001 : { 363698007 = 39057004, 116676008 = 415582006 }", e.String())
}

func TestConcepts(t *testing.T) {
	e := expression.MustParse("64572001 + 404684003 : 246075003 = (387517004 : 127489000 = 64572001), { 363698007 = 39057004 }")
	assert.Equal(t, []uint64{64572001, 404684003, 246075003, 387517004, 127489000, 363698007, 39057004}, e.Concepts())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		offset int
	}{
		{"empty", "", 0},
		{"text", "heart attack", 0},
		{"short id", "12345", 0},
		{"leading zero", "0123456", 0},
		{"too long", "1234567890123456789", 0},
		{"unterminated term", "73211009 |Diabetes", 10},
		{"dangling plus", "73211009 +", 10},
		{"empty refinement", "73211009 :", 10},
		{"missing value", "73211009 : 363698007 =", 22},
		{"unclosed group", "73211009 : { 363698007 = 39057004", 33},
		{"bad number", "73211009 : 363698007 = #1.", 24},
		{"unterminated string", `73211009 : 363698007 = "abc`, 23},
		{"trailing input", "73211009 73211009", 9},
		{"unterminated comment", "73211009 /* x", 9},
		{"unclosed nested", "73211009 : 363698007 = (39057004", 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expression.Parse(tt.in)
			require.Error(t, err)
			assert.True(t, sigilerr.IsParseError(err))
			assert.False(t, sigilerr.IsInvalidInput(err))
			assert.Equal(t, sigilerr.CodeExpressionParseSyntax, sigilerr.CodeOf(err))
			assert.Equal(t, tt.offset, sigilerr.FieldsOf(err)["offset"])
		})
	}
}

func TestParse_ErrorLine(t *testing.T) {
	_, err := expression.Parse("73211009 :\n  363698007 = ?")
	require.Error(t, err)
	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, 2, fields["line"])
	assert.Equal(t, 14, fields["column"])
}

func TestExpression_JSON(t *testing.T) {
	e := expression.MustParse("=== 64572001 |Disease| : 363698007 = 39057004")
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"definitionStatus": 1,
		"focusConcepts": [{"conceptId": 64572001, "term": "Disease"}],
		"attributes": [{
			"name": {"conceptId": 363698007},
			"value": {"kind": 0, "concept": {"conceptId": 39057004}}
		}]
	}`, string(data))
}
