// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import "github.com/sigil-dev/snomed/internal/store"

func init() {
	store.RegisterBackend("sqlite", newBackend)
}

func newBackend(cfg *store.StorageConfig) (store.Backend, error) {
	return open(cfg)
}
