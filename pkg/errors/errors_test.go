// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := sigilerr.New(
		sigilerr.CodeStoreConceptNotFound,
		"concept not found",
		sigilerr.FieldConceptID(22298006),
		sigilerr.Field("backend", "sqlite"),
	)

	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreConceptNotFound, sigilerr.CodeOf(err))
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreConceptNotFound))

	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, uint64(22298006), fields["concept_id"])
	assert.Equal(t, "sqlite", fields["backend"])
}

func TestNewWithNoFields(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := sigilerr.Errorf(sigilerr.CodeImportFileInvalid, "parsing %s: line %d", "sct2_Concept.txt", 12)
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeImportFileInvalid, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "parsing sct2_Concept.txt: line 12")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := sigilerr.Wrap(
		root,
		sigilerr.CodeStoreConceptNotFound,
		"loading concept",
		sigilerr.FieldConceptID(42),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, sigilerr.CodeStoreConceptNotFound, sigilerr.CodeOf(err))
	assert.True(t, sigilerr.IsNotFound(err))
	assert.Equal(t, uint64(42), sigilerr.FieldsOf(err)["concept_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, sigilerr.Wrap(nil, sigilerr.CodeInternalFailure, "ignored"))
	assert.NoError(t, sigilerr.Wrapf(nil, sigilerr.CodeInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, sigilerr.With(nil, sigilerr.FieldPath("x")))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := sigilerr.New(sigilerr.CodeSearchRequestInvalid, "bad request")
	withCtx := sigilerr.With(base, sigilerr.FieldRefsetID(447562003))

	require.Error(t, withCtx)
	assert.Equal(t, sigilerr.CodeSearchRequestInvalid, sigilerr.CodeOf(withCtx))
	assert.Equal(t, uint64(447562003), sigilerr.FieldsOf(withCtx)["refset_id"])
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := sigilerr.With(stderrors.New("something broke"), sigilerr.FieldPath("/tmp/x"))

	require.Error(t, enriched)
	assert.Equal(t, sigilerr.CodeInternalFailure, sigilerr.CodeOf(enriched))
	assert.Equal(t, "/tmp/x", sigilerr.FieldsOf(enriched)["path"])
}

func TestCodeOfReturnsInnermostCodedError(t *testing.T) {
	inner := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "db")
	outer := sigilerr.Wrap(inner, sigilerr.CodeInternalFailure, "handler")
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(outer))
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(nil))
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(stderrors.New("plain")))
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	mid := fmt.Errorf("mid: %w", sentinel)
	outer := sigilerr.Wrap(mid, sigilerr.CodeInternalFailure, "handler")

	assert.ErrorIs(t, outer, sentinel)
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "oops",
		sigilerr.Field("", "should-be-dropped"),
		sigilerr.FieldPath("kept"),
	)
	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["path"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   sigilerr.Code
		status int
		check  func(error) bool
	}{
		{name: "concept not found", code: sigilerr.CodeStoreConceptNotFound, status: 404, check: sigilerr.IsNotFound},
		{name: "hierarchy not found", code: sigilerr.CodeHierarchyConceptNotFound, status: 404, check: sigilerr.IsNotFound},
		{name: "preferred absent", code: sigilerr.CodeTerminologyPreferredAbsent, status: 404, check: sigilerr.IsNotFound},
		{name: "search invalid", code: sigilerr.CodeSearchRequestInvalid, status: 400, check: sigilerr.IsInvalidInput},
		{name: "id invalid", code: sigilerr.CodeTerminologyIDInvalid, status: 400, check: sigilerr.IsInvalidInput},
		{name: "store invalid input", code: sigilerr.CodeStoreInvalidInput, status: 400, check: sigilerr.IsInvalidInput},
		{name: "config invalid value", code: sigilerr.CodeConfigValidateInvalidValue, status: 400, check: sigilerr.IsInvalidInput},
		{name: "parse error", code: sigilerr.CodeExpressionParseSyntax, status: 500, check: sigilerr.IsParseError},
		{name: "cycle", code: sigilerr.CodeIndexHierarchyCycle, status: 500, check: sigilerr.IsBuildError},
		{name: "dangling reference", code: sigilerr.CodeIndexDanglingReference, status: 500, check: sigilerr.IsBuildError},
		{name: "closed", code: sigilerr.CodeTerminologyServiceClosed, status: 500, check: sigilerr.IsServiceClosed},
		{name: "internal", code: sigilerr.CodeInternalFailure, status: 500, check: func(err error) bool { return !sigilerr.IsNotFound(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sigilerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, sigilerr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestParseErrorIsNotInvalidInput(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeExpressionParseSyntax, "unexpected token")
	assert.True(t, sigilerr.IsParseError(err))
	assert.False(t, sigilerr.IsInvalidInput(err))
	assert.False(t, sigilerr.IsBuildError(err))
}

func TestClassificationOnNilAndPlainErrors(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain")} {
		assert.False(t, sigilerr.IsNotFound(err))
		assert.False(t, sigilerr.IsInvalidInput(err))
		assert.False(t, sigilerr.IsParseError(err))
		assert.False(t, sigilerr.IsBuildError(err))
		assert.False(t, sigilerr.IsServiceClosed(err))
		assert.Equal(t, http.StatusInternalServerError, sigilerr.HTTPStatus(err))
	}
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := sigilerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, sigilerr.CodeInternalFailure, sigilerr.CodeOf(joined))
}
