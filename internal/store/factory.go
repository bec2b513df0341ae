// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sort"
	"sync"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

// BackendFactory opens a backend for the given configuration.
type BackendFactory func(cfg *StorageConfig) (Backend, error)

var (
	factories   = map[string]BackendFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open opens the configured backend.
func Open(cfg *StorageConfig) (Backend, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
