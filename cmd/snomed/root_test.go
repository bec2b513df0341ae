// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it wrote to
// stdout. HOME points at an empty directory so no user config is read.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"import", "index", "status", "concept", "search", "subsumes", "map", "parse", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	out, err := run(t, "--verbose", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "--verbose")
	assert.Contains(t, out, "--output")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "snomed dev")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := run(t, "version", "--config", "/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "snomed.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("search:\n  fuzzy: sometimes\n"), 0o644))

	_, err := run(t, "version", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.fuzzy")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "snomed.yaml")

	out, err := run(t, "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	out, err = run(t, "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	_, err = run(t, "version", "--config", path)
	require.NoError(t, err)
}

func TestInitCommand_InvalidExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snomed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  default_max_hits: 0\n"), 0o644))

	_, err := run(t, "init", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_max_hits")
}

func TestEncode_UnknownFormat(t *testing.T) {
	err := encode(new(bytes.Buffer), "xml", []uint64{1})
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
