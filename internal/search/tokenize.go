// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package search

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold normalises text for matching: accents are stripped and case is
// folded, so "Ménière" and "MENIERE" fold to the same string.
func Fold(s string) string {
	// Transformers carry state; build a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Tokenize folds s and splits it on anything that is not a letter or a
// digit. Tokens keep their order and repeats.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// PhraseHash identifies a token sequence. Two terms fold to the same
// sequence exactly when their hashes agree, barring collisions.
func PhraseHash(tokens []string) uint64 {
	return xxhash.Sum64String(strings.Join(tokens, " "))
}

// unique drops repeated tokens, keeping first occurrences.
func unique(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
