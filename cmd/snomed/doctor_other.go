// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !unix

package main

func checkDiskSpace(string) string {
	return "not supported on this platform"
}
