// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"os"
	"path/filepath"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
)

//go:embed snomed.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/snomed/snomed.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "snomed", "snomed.yaml"), nil
}

// WriteDefault writes the default commented config to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}

	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		return false, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	return true, nil
}
