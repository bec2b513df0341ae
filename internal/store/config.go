// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "go.uber.org/zap"

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend  string             // "sqlite" is the only supported backend for now.
	Path     string             // Database file.
	ReadOnly bool               // Serving mode; the file must already exist.
	Logger   *zap.SugaredLogger // nil disables logging.
}
