// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package snomed defines the SNOMED CT component types shared by the store,
// the derived indexes and the terminology service, together with the
// well-known identifiers and identifier validation helpers.
package snomed
