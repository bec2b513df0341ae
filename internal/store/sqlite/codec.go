// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"encoding/binary"
	"errors"
	"slices"
)

var errCorruptIDs = errors.New("corrupt id list encoding")

// encodeIDs stores a sorted id list as uvarint deltas.
func encodeIDs(ids []uint64) []byte {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	buf := make([]byte, 0, len(sorted)*3)
	var prev uint64
	for _, id := range sorted {
		buf = binary.AppendUvarint(buf, id-prev)
		prev = id
	}
	return buf
}

func decodeIDs(buf []byte) ([]uint64, error) {
	var (
		out  []uint64
		prev uint64
	)
	for len(buf) > 0 {
		delta, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptIDs
		}
		prev += delta
		out = append(out, prev)
		buf = buf[n:]
	}
	return out, nil
}
