// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import "database/sql"

// Current tables hold the latest row per id; *_history tables keep every
// imported version keyed by (id, effective_time).
const entityDDL = `
CREATE TABLE IF NOT EXISTS concepts (
	id                   INTEGER PRIMARY KEY,
	effective_time       INTEGER NOT NULL,
	active               INTEGER NOT NULL,
	module_id            INTEGER NOT NULL,
	definition_status_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS concepts_history (
	id                   INTEGER NOT NULL,
	effective_time       INTEGER NOT NULL,
	active               INTEGER NOT NULL,
	module_id            INTEGER NOT NULL,
	definition_status_id INTEGER NOT NULL,
	PRIMARY KEY (id, effective_time)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS descriptions (
	id                   INTEGER PRIMARY KEY,
	effective_time       INTEGER NOT NULL,
	active               INTEGER NOT NULL,
	module_id            INTEGER NOT NULL,
	concept_id           INTEGER NOT NULL,
	language_code        TEXT NOT NULL,
	type_id              INTEGER NOT NULL,
	term                 TEXT NOT NULL,
	case_significance_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_descriptions_concept ON descriptions(concept_id);

CREATE TABLE IF NOT EXISTS descriptions_history (
	id                   INTEGER NOT NULL,
	effective_time       INTEGER NOT NULL,
	active               INTEGER NOT NULL,
	module_id            INTEGER NOT NULL,
	concept_id           INTEGER NOT NULL,
	language_code        TEXT NOT NULL,
	type_id              INTEGER NOT NULL,
	term                 TEXT NOT NULL,
	case_significance_id INTEGER NOT NULL,
	PRIMARY KEY (id, effective_time)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS relationships (
	id                     INTEGER PRIMARY KEY,
	effective_time         INTEGER NOT NULL,
	active                 INTEGER NOT NULL,
	module_id              INTEGER NOT NULL,
	source_id              INTEGER NOT NULL,
	destination_id         INTEGER NOT NULL,
	relationship_group     INTEGER NOT NULL,
	type_id                INTEGER NOT NULL,
	characteristic_type_id INTEGER NOT NULL,
	modifier_id            INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id, type_id);
CREATE INDEX IF NOT EXISTS idx_relationships_destination ON relationships(destination_id, type_id);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(type_id, active);

CREATE TABLE IF NOT EXISTS relationships_history (
	id                     INTEGER NOT NULL,
	effective_time         INTEGER NOT NULL,
	active                 INTEGER NOT NULL,
	module_id              INTEGER NOT NULL,
	source_id              INTEGER NOT NULL,
	destination_id         INTEGER NOT NULL,
	relationship_group     INTEGER NOT NULL,
	type_id                INTEGER NOT NULL,
	characteristic_type_id INTEGER NOT NULL,
	modifier_id            INTEGER NOT NULL,
	PRIMARY KEY (id, effective_time)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS refset_items (
	id                      TEXT PRIMARY KEY,
	effective_time          INTEGER NOT NULL,
	active                  INTEGER NOT NULL,
	module_id               INTEGER NOT NULL,
	refset_id               INTEGER NOT NULL,
	referenced_component_id INTEGER NOT NULL,
	acceptability_id        INTEGER NOT NULL DEFAULT 0,
	map_target              TEXT NOT NULL DEFAULT '',
	map_group               INTEGER NOT NULL DEFAULT 0,
	map_priority            INTEGER NOT NULL DEFAULT 0,
	map_rule                TEXT NOT NULL DEFAULT '',
	map_advice              TEXT NOT NULL DEFAULT '',
	correlation_id          INTEGER NOT NULL DEFAULT 0,
	map_category_id         INTEGER NOT NULL DEFAULT 0,
	target_component_id     INTEGER NOT NULL DEFAULT 0,
	value_id                INTEGER NOT NULL DEFAULT 0,
	owl_expression          TEXT NOT NULL DEFAULT '',
	attributes              TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_refset_items_component ON refset_items(referenced_component_id, refset_id);
CREATE INDEX IF NOT EXISTS idx_refset_items_refset ON refset_items(refset_id);
`

// Derived tables are rebuilt wholesale by BuildIndexes.
const indexDDL = `
CREATE TABLE IF NOT EXISTS concept_closure (
	concept_id INTEGER PRIMARY KEY,
	ancestors  BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS search_docs (
	description_id INTEGER PRIMARY KEY,
	concept_id     INTEGER NOT NULL,
	type_id        INTEGER NOT NULL,
	term           TEXT NOT NULL,
	token_count    INTEGER NOT NULL,
	phrase_hash    INTEGER NOT NULL,
	active         INTEGER NOT NULL,
	concept_active INTEGER NOT NULL,
	preferred      BLOB NOT NULL,
	acceptable     BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS search_postings (
	token          TEXT NOT NULL,
	description_id INTEGER NOT NULL,
	PRIMARY KEY (token, description_id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS search_vocab (
	token    TEXT PRIMARY KEY,
	doc_freq INTEGER NOT NULL,
	postings BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS crossmap_targets (
	refset_id INTEGER NOT NULL,
	code      TEXT NOT NULL,
	item_id   TEXT NOT NULL,
	active    INTEGER NOT NULL,
	PRIMARY KEY (refset_id, code, item_id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS index_status (
	name     TEXT PRIMARY KEY,
	entries  INTEGER NOT NULL,
	built_at TEXT NOT NULL
);
`

var derivedTables = []string{
	"concept_closure",
	"search_docs",
	"search_postings",
	"search_vocab",
	"crossmap_targets",
	"index_status",
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(entityDDL); err != nil {
		return err
	}
	_, err := db.Exec(indexDDL)
	return err
}
