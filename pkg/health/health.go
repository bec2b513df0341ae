// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package health describes the serving state of a terminology service.
package health

import "time"

// Status is a point-in-time snapshot of a terminology service for
// monitoring and operator visibility. All fields are safe to serialize to
// JSON.
type Status struct {
	Available bool      `json:"available" yaml:"available"`
	OpenedAt  time.Time `json:"opened_at" yaml:"opened_at"`
	// FailureCount counts queries that failed for reasons other than a
	// missing component or a bad argument.
	FailureCount  int64      `json:"failure_count" yaml:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`

	Concepts       int64      `json:"concepts" yaml:"concepts"`
	ActiveConcepts int64      `json:"active_concepts" yaml:"active_concepts"`
	Descriptions   int64      `json:"descriptions" yaml:"descriptions"`
	Relationships  int64      `json:"relationships" yaml:"relationships"`
	RefsetItems    int64      `json:"refset_items" yaml:"refset_items"`
	ReferenceSets  int64      `json:"reference_sets" yaml:"reference_sets"`
	LatestRelease  *time.Time `json:"latest_release,omitempty" yaml:"latest_release,omitempty"`

	SearchTokens    int     `json:"search_tokens" yaml:"search_tokens"`
	SearchDocuments int     `json:"search_documents" yaml:"search_documents"`
	CachedConcepts  int     `json:"cached_concepts" yaml:"cached_concepts"`
	Indexes         []Index `json:"indexes" yaml:"indexes"`
}

// Index is the build record of one derived index.
type Index struct {
	Name    string    `json:"name" yaml:"name"`
	Entries int       `json:"entries" yaml:"entries"`
	BuiltAt time.Time `json:"built_at" yaml:"built_at"`
}
