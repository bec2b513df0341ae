// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package terminology

import (
	"slices"
	"strings"

	"golang.org/x/text/language"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// dialect binds a language tag to the language refsets that carry its
// preferred terms, best first.
type dialect struct {
	tag     language.Tag
	refsets []uint64
}

var dialects = []dialect{
	{language.AmericanEnglish, []uint64{snomed.USEnglishLanguageRefset}},
	{language.BritishEnglish, []uint64{
		snomed.UKClinicalLanguageRefset, snomed.UKPharmacyLanguageRefset, snomed.GBEnglishLanguageRefset,
	}},
	{language.Spanish, []uint64{snomed.SpanishLanguageRefset}},
	{language.Danish, []uint64{snomed.DanishLanguageRefset}},
	{language.Swedish, []uint64{snomed.SwedishLanguageRefset}},
	{language.Dutch, []uint64{snomed.NetherlandsLanguageRefset}},
	{language.MustParse("fr-BE"), []uint64{snomed.BelgianFrenchLanguageRefset}},
}

// languageMatcher maps BCP-47 preferences onto the installed language
// refsets.
type languageMatcher struct {
	matcher language.Matcher
	present map[uint64]bool
}

func newLanguageMatcher(installed []uint64) *languageMatcher {
	tags := make([]language.Tag, len(dialects))
	for i, d := range dialects {
		tags[i] = d.tag
	}
	m := &languageMatcher{matcher: language.NewMatcher(tags), present: make(map[uint64]bool)}
	for _, id := range installed {
		m.present[id] = true
	}
	return m
}

// refsets parses an Accept-Language style list and returns the installed
// language refsets it selects, in preference order.
func (m *languageMatcher) refsets(acceptLanguage string) ([]uint64, error) {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeTerminologyLanguageInvalid, "parsing language preferences",
			sigilerr.Field("accept_language", acceptLanguage))
	}
	var out []uint64
	for _, tag := range tags {
		_, i, confidence := m.matcher.Match(tag)
		if confidence == language.No {
			continue
		}
		for _, id := range dialects[i].refsets {
			if m.present[id] && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// installed returns the installed refsets known to carry language
// preferences, in dialect order.
func (m *languageMatcher) installed() []uint64 {
	var out []uint64
	for _, d := range dialects {
		for _, id := range d.refsets {
			if m.present[id] && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// LanguageRefsets maps an Accept-Language value such as "en-GB,en;q=0.8"
// to installed language refsets in preference order. Languages without an
// installed refset are skipped.
func (t *Terminology) LanguageRefsets(acceptLanguage string) ([]uint64, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return t.languages.refsets(acceptLanguage)
}
