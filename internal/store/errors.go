// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"github.com/google/uuid"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// ConceptNotFound reports a lookup of an unknown concept id.
func ConceptNotFound(id uint64) error {
	return sigilerr.New(sigilerr.CodeStoreConceptNotFound, "concept not found", sigilerr.FieldConceptID(id))
}

// DescriptionNotFound reports a lookup of an unknown description id.
func DescriptionNotFound(id uint64) error {
	return sigilerr.New(sigilerr.CodeStoreDescriptionNotFound, "description not found", sigilerr.Field("description_id", id))
}

// RefsetItemNotFound reports a lookup of an unknown reference set item.
func RefsetItemNotFound(id uuid.UUID) error {
	return sigilerr.New(sigilerr.CodeStoreRefsetItemNotFound, "reference set item not found", sigilerr.Field("item_id", id.String()))
}

// IndexesNotBuilt reports a serving open of a store whose derived indexes
// are missing.
func IndexesNotBuilt(missing []string) error {
	return sigilerr.New(sigilerr.CodeStoreIndexesNotBuilt, "derived indexes have not been built", sigilerr.Field("missing", missing))
}
