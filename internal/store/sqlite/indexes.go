// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"iter"
	"time"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Compile-time interface check.
var _ store.IndexWriter = (*indexWriter)(nil)

// searchDocChunk bounds the number of bound parameters per IN query.
const searchDocChunk = 500

// BuildIndexes clears all derived tables and runs fn inside one
// transaction. The token vocabulary is derived from the staged postings
// before commit.
func (b *Backend) BuildIndexes(ctx context.Context, fn func(w store.IndexWriter) error) error {
	if b.readOnly {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput, "store is open read-only", sigilerr.FieldPath(b.path))
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := clearDerived(ctx, tx); err != nil {
		return err
	}

	w := &indexWriter{importWriter: importWriter{tx: tx, stmts: map[string]*sql.Stmt{}}}
	defer w.close()

	if err := fn(w); err != nil {
		return err
	}

	if err := buildVocabulary(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "committing indexes: %w", err)
	}
	return nil
}

// buildVocabulary folds the staged (token, description) rows into one
// vocabulary row per token carrying its encoded postings, then drops the
// staging rows.
func buildVocabulary(ctx context.Context, tx *sql.Tx) error {
	type entry struct {
		token string
		ids   []uint64
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT token, description_id FROM search_postings ORDER BY token, description_id`)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "reading postings: %w", err)
	}
	var vocab []entry
	for rows.Next() {
		var (
			token string
			id    uint64
		)
		if err := rows.Scan(&token, &id); err != nil {
			_ = rows.Close()
			return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "scanning posting: %w", err)
		}
		if n := len(vocab); n == 0 || vocab[n-1].token != token {
			vocab = append(vocab, entry{token: token})
		}
		last := &vocab[len(vocab)-1]
		last.ids = append(last.ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "reading postings: %w", err)
	}
	_ = rows.Close()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO search_vocab (token, doc_freq, postings) VALUES (?, ?, ?)`)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "preparing vocabulary insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range vocab {
		if _, err := stmt.ExecContext(ctx, e.token, len(e.ids), encodeIDs(e.ids)); err != nil {
			return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing vocabulary token %q: %w", e.token, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_postings`); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "clearing staged postings: %w", err)
	}
	return nil
}

// indexWriter reuses the statement cache of the import writer.
type indexWriter struct {
	importWriter
}

func (w *indexWriter) PutClosure(ctx context.Context, conceptID uint64, ancestors []uint64) error {
	s, err := w.stmt(ctx, `INSERT INTO concept_closure (concept_id, ancestors) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	if _, err := s.ExecContext(ctx, conceptID, encodeIDs(ancestors)); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing closure of %d: %w", conceptID, err)
	}
	return nil
}

func (w *indexWriter) PutSearchDoc(ctx context.Context, doc *store.SearchDoc, tokens []string) error {
	s, err := w.stmt(ctx, `INSERT OR REPLACE INTO search_docs
(description_id, concept_id, type_id, term, token_count, phrase_hash, active, concept_active, preferred, acceptable)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	// SQLite integers are signed; the hash is stored by its bit pattern.
	if _, err := s.ExecContext(ctx, doc.DescriptionID, doc.ConceptID, doc.TypeID, doc.Term, doc.TokenCount,
		int64(doc.PhraseHash), doc.Active, doc.ConceptActive,
		encodeIDs(doc.Preferred), encodeIDs(doc.Acceptable)); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing search doc %d: %w", doc.DescriptionID, err)
	}

	ps, err := w.stmt(ctx, `INSERT OR IGNORE INTO search_postings (token, description_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if _, err := ps.ExecContext(ctx, tok, doc.DescriptionID); err != nil {
			return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing posting %q: %w", tok, err)
		}
	}
	return nil
}

func (w *indexWriter) PutCrossMapTarget(ctx context.Context, t *store.CrossMapTarget) error {
	s, err := w.stmt(ctx, `INSERT OR REPLACE INTO crossmap_targets (refset_id, code, item_id, active) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	if _, err := s.ExecContext(ctx, t.RefsetID, t.Code, t.ItemID.String(), t.Active); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing cross-map target %q: %w", t.Code, err)
	}
	return nil
}

func (w *indexWriter) SetIndexStatus(ctx context.Context, name string, entries int) error {
	s, err := w.stmt(ctx, `INSERT OR REPLACE INTO index_status (name, entries, built_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	if _, err := s.ExecContext(ctx, name, entries, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return sigilerr.Errorf(sigilerr.CodeIndexWriteFailure, "writing index status %s: %w", name, err)
	}
	return nil
}

// --- Reads ---

func scanIndexStatus(s rowScanner) (*store.IndexStatus, error) {
	var (
		st      store.IndexStatus
		builtAt string
	)
	if err := s.Scan(&st.Name, &st.Entries, &builtAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, builtAt)
	if err != nil {
		return nil, err
	}
	st.BuiltAt = t
	return &st, nil
}

// IndexStatus lists the built derived indexes.
func (b *Backend) IndexStatus(ctx context.Context) ([]*store.IndexStatus, error) {
	return collect(ctx, b.db, scanIndexStatus, `SELECT name, entries, built_at FROM index_status ORDER BY name`)
}

func scanClosure(s rowScanner) (*store.ClosureEntry, error) {
	var (
		e    store.ClosureEntry
		blob []byte
	)
	if err := s.Scan(&e.ConceptID, &blob); err != nil {
		return nil, err
	}
	ids, err := decodeIDs(blob)
	if err != nil {
		return nil, err
	}
	e.Ancestors = ids
	return &e, nil
}

// StreamClosure yields the persisted ancestor set of every concept.
func (b *Backend) StreamClosure(ctx context.Context) iter.Seq2[*store.ClosureEntry, error] {
	return stream(ctx, b.db, scanClosure, `SELECT concept_id, ancestors FROM concept_closure ORDER BY concept_id`)
}

func scanVocab(s rowScanner) (*store.VocabEntry, error) {
	var (
		v    store.VocabEntry
		blob []byte
	)
	if err := s.Scan(&v.Token, &v.DocFreq, &blob); err != nil {
		return nil, err
	}
	ids, err := decodeIDs(blob)
	if err != nil {
		return nil, err
	}
	v.Postings = ids
	return &v, nil
}

// StreamVocabulary yields every search token in byte order with its
// postings.
func (b *Backend) StreamVocabulary(ctx context.Context) iter.Seq2[*store.VocabEntry, error] {
	return stream(ctx, b.db, scanVocab, `SELECT token, doc_freq, postings FROM search_vocab ORDER BY token`)
}

// scanSearchFields fills the ranking fields shared by both search doc
// reads; the caller scans the leading columns.
func scanSearchFields(d *store.SearchDoc, phrase int64, preferred, acceptable []byte) error {
	d.PhraseHash = uint64(phrase)
	var err error
	if d.Preferred, err = decodeIDs(preferred); err != nil {
		return err
	}
	d.Acceptable, err = decodeIDs(acceptable)
	return err
}

func scanSearchDoc(s rowScanner) (*store.SearchDoc, error) {
	var (
		d                     store.SearchDoc
		phrase                int64
		preferred, acceptable []byte
	)
	if err := s.Scan(&d.DescriptionID, &d.ConceptID, &d.TypeID, &d.Term, &d.TokenCount,
		&phrase, &d.Active, &d.ConceptActive, &preferred, &acceptable); err != nil {
		return nil, err
	}
	if err := scanSearchFields(&d, phrase, preferred, acceptable); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSearchMeta(s rowScanner) (*store.SearchDoc, error) {
	var (
		d                     store.SearchDoc
		phrase                int64
		preferred, acceptable []byte
	)
	if err := s.Scan(&d.DescriptionID, &d.ConceptID, &d.TypeID, &d.TokenCount,
		&phrase, &d.Active, &d.ConceptActive, &preferred, &acceptable); err != nil {
		return nil, err
	}
	if err := scanSearchFields(&d, phrase, preferred, acceptable); err != nil {
		return nil, err
	}
	return &d, nil
}

// StreamSearchDocs yields every search document without its term, in
// ascending description id order.
func (b *Backend) StreamSearchDocs(ctx context.Context) iter.Seq2[*store.SearchDoc, error] {
	return stream(ctx, b.db, scanSearchMeta,
		`SELECT description_id, concept_id, type_id, token_count, phrase_hash, active, concept_active, preferred, acceptable
FROM search_docs ORDER BY description_id`)
}

// SearchDocs loads the indexed documents for the given description ids.
func (b *Backend) SearchDocs(ctx context.Context, descriptionIDs []uint64) ([]*store.SearchDoc, error) {
	out := make([]*store.SearchDoc, 0, len(descriptionIDs))
	for start := 0; start < len(descriptionIDs); start += searchDocChunk {
		end := min(start+searchDocChunk, len(descriptionIDs))
		chunk := descriptionIDs[start:end]
		docs, err := collect(ctx, b.db, scanSearchDoc,
			`SELECT description_id, concept_id, type_id, term, token_count, phrase_hash, active, concept_active, preferred, acceptable
FROM search_docs WHERE description_id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// SearchDocCount returns the number of indexed descriptions.
func (b *Backend) SearchDocCount(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_docs`).Scan(&n); err != nil {
		return 0, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "counting search docs: %w", err)
	}
	return n, nil
}

const crossMapSelect = `SELECT ` + refsetItemColumnsQualified + `
FROM crossmap_targets t JOIN refset_items r ON r.id = t.item_id
WHERE t.refset_id = ? AND `

const crossMapOrder = ` ORDER BY r.referenced_component_id, r.map_group, r.map_priority, r.id`

const refsetItemColumnsQualified = `r.id, r.effective_time, r.active, r.module_id, r.refset_id, r.referenced_component_id,
r.acceptability_id, r.map_target, r.map_group, r.map_priority, r.map_rule, r.map_advice, r.correlation_id,
r.map_category_id, r.target_component_id, r.value_id, r.owl_expression, r.attributes`

// CrossMapLookup returns the map items whose normalised target equals code.
func (b *Backend) CrossMapLookup(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	q := crossMapSelect + `t.code = ?`
	if !includeInactive {
		q += ` AND t.active = 1`
	}
	return collect(ctx, b.db, scanRefsetItem, q+crossMapOrder, refsetID, code)
}

// CrossMapPrefix returns the map items whose normalised target starts with
// prefix.
func (b *Backend) CrossMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	q := crossMapSelect + `t.code >= ? AND t.code < ?`
	if !includeInactive {
		q += ` AND t.active = 1`
	}
	// U+10FFFF sorts after every valid UTF-8 continuation of prefix.
	return collect(ctx, b.db, scanRefsetItem, q+crossMapOrder, refsetID, prefix, prefix+"\U0010FFFF")
}
