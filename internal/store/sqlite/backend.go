// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

const (
	writeDSNParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL"
	readDSNParams  = "?_busy_timeout=5000&_query_only=true"
)

// Backend implements store.Backend on a single SQLite database holding both
// the entity tables and the derived index tables.
type Backend struct {
	db       *sql.DB
	path     string
	readOnly bool
	logger   *zap.SugaredLogger
}

// New opens (or creates) the database at dbPath for import and index
// builds, creating the schema if needed.
func New(dbPath string) (*Backend, error) {
	return open(&store.StorageConfig{Path: dbPath})
}

func open(cfg *store.StorageConfig) (*Backend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, sigilerr.New(sigilerr.CodeStoreOpenFailure, "database path must not be empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	dsn := cfg.Path + writeDSNParams
	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreOpenFailure, "database does not exist", sigilerr.FieldPath(cfg.Path))
		}
		dsn = cfg.Path + readDSNParams
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreOpenFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sigilerr.Errorf(sigilerr.CodeStoreOpenFailure, "pinging sqlite db: %w", err)
	}

	if !cfg.ReadOnly {
		if err := migrate(db); err != nil {
			_ = db.Close()
			return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "migrating tables: %w", err)
		}
	}

	logger.Debugw("opened sqlite store", "path", cfg.Path, "read_only", cfg.ReadOnly)
	return &Backend{db: db, path: cfg.Path, readOnly: cfg.ReadOnly, logger: logger}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// stream yields one scanned value per row. The rows are closed when the
// consumer stops ranging or the result set is exhausted.
func stream[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(zero, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "scanning row: %w", err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "iterating rows: %w", err))
		}
	}
}

// collect runs query and scans every row into a slice.
func collect[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	var out []T
	for v, err := range stream(ctx, db, scan, query, args...) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func scanID(s rowScanner) (uint64, error) {
	var id uint64
	err := s.Scan(&id)
	return id, err
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
