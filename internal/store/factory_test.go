// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/snomed/internal/store"
	_ "github.com/sigil-dev/snomed/internal/store/sqlite" // register sqlite backend
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &store.StorageConfig{
		Backend: "sqlite",
		Path:    filepath.Join(t.TempDir(), "snomed.db"),
	}

	b, err := store.Open(cfg)
	require.NoError(t, err)
	assert.NotNil(t, b)
	require.NoError(t, b.Close())
}

func TestOpen_DefaultBackend(t *testing.T) {
	cfg := &store.StorageConfig{Path: filepath.Join(t.TempDir(), "snomed.db")} // empty backend defaults to sqlite

	b, err := store.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &store.StorageConfig{
		Backend: "unknown",
		Path:    filepath.Join(t.TempDir(), "snomed.db"),
	}

	_, err := store.Open(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
	assert.Equal(t, sigilerr.CodeStoreBackendUnsupported, sigilerr.CodeOf(err))
}

func TestOpen_ReadOnlyMissingFile(t *testing.T) {
	cfg := &store.StorageConfig{
		Path:     filepath.Join(t.TempDir(), "absent.db"),
		ReadOnly: true,
	}

	_, err := store.Open(cfg)
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreOpenFailure, sigilerr.CodeOf(err))
}

// TestRegisterBackend_Concurrent verifies that RegisterBackend is goroutine-safe
// and can handle concurrent registrations without race conditions.
func TestRegisterBackend_Concurrent(t *testing.T) {
	const numGoroutines = 10
	const registrationsPerGoroutine = 10

	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer func() { done <- true }()
			for j := 0; j < registrationsPerGoroutine; j++ {
				name := fmt.Sprintf("backend-%d-%d", goroutineID, j)
				store.RegisterBackend(name, func(*store.StorageConfig) (store.Backend, error) {
					return nil, nil
				})
			}
		}(i)
	}

	// Wait for all goroutines to complete
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	assert.Contains(t, store.Backends(), "sqlite")
	assert.Contains(t, store.Backends(), "backend-9-9")
}
