// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreConceptNotFound       Code = "store.concept.get.not_found"
	CodeStoreDescriptionNotFound   Code = "store.description.get.not_found"
	CodeStoreRefsetItemNotFound    Code = "store.refset_item.get.not_found"
	CodeStoreRelationshipNotFound  Code = "store.relationship.get.not_found"
	CodeStoreDatabaseFailure       Code = "store.database.failure"
	CodeStoreBackendUnsupported    Code = "store.backend.unsupported"
	CodeStoreOpenFailure           Code = "store.open.failure"
	CodeStoreInvalidInput          Code = "store.invalid_input"
	CodeStoreImportFailure         Code = "store.import.failure"
	CodeStoreIndexesNotBuilt       Code = "store.indexes.not_built"
	CodeImportFileInvalid          Code = "import.rf2.file.invalid_format"
	CodeImportDiscoveryFailure     Code = "import.rf2.discovery.failure"
	CodeImportNoReleaseFiles       Code = "import.rf2.discovery.not_found"
	CodeIndexHierarchyCycle        Code = "index.hierarchy.cycle.build_failure"
	CodeIndexHierarchyUnknownNode  Code = "index.hierarchy.node.build_failure"
	CodeIndexDanglingReference     Code = "index.reference.dangling.build_failure"
	CodeIndexWriteFailure          Code = "index.write.build_failure"
	CodeHierarchyConceptNotFound   Code = "hierarchy.concept.not_found"
	CodeSearchRequestInvalid       Code = "search.request.invalid"
	CodeSearchQueryFailure         Code = "search.query.failure"
	CodeCrossMapRequestInvalid     Code = "crossmap.request.invalid"
	CodeTerminologyIDInvalid       Code = "terminology.id.parse.invalid"
	CodeTerminologyPreferredAbsent Code = "terminology.synonym.preferred.not_found"
	CodeTerminologyServiceClosed   Code = "terminology.service.closed"
	CodeTerminologyOpenFailure     Code = "terminology.service.open.failure"
	CodeTerminologyLanguageInvalid Code = "terminology.language.invalid"
	CodeExpressionParseSyntax      Code = "expression.parse.syntax_error"
	CodeExpressionConceptUnknown   Code = "expression.concept.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"

	CodeInternalFailure Code = "internal.failure"
)

// Field is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldConceptID(value uint64) Attr {
	return Field("concept_id", value)
}

func FieldRefsetID(value uint64) Attr {
	return Field("refset_id", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsParseError reports expression grammar failures. They are kept apart from
// IsInvalidInput so callers can tell a bad expression from a bad parameter.
func IsParseError(err error) bool {
	return reason(CodeOf(err)) == "syntax_error"
}

// IsBuildError reports fatal index construction failures.
func IsBuildError(err error) bool {
	return reason(CodeOf(err)) == "build_failure"
}

func IsServiceClosed(err error) bool {
	return reason(CodeOf(err)) == "closed"
}

// HTTPStatus maps an error to the status a delivery layer is expected to
// answer with: not found is 404, invalid arguments are 400, anything else 500.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
