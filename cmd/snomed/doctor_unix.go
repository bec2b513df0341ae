// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build unix

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func checkDiskSpace(dir string) string {
	path := dir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := uint64(stat.Bavail) * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}
