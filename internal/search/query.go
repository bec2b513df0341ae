// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package search

import (
	"container/heap"
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/sigil-dev/snomed/internal/hierarchy"
	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Match quality per kind of token match.
const (
	exactQuality  = 1.0
	prefixQuality = 0.7
	fuzzyQuality  = 0.4
)

// Score multipliers.
const (
	preferredBoost  = 2.0
	unlistedPenalty = 0.8
	exactTermBoost  = 1.5
	inactivePenalty = 0.5
)

// maxPrefixExpansions bounds the vocabulary tokens one query token may
// expand to by prefix.
const maxPrefixExpansions = 64

// Request describes one search.
type Request struct {
	Text string
	// MaxHits caps the results. Nil selects the configured default; zero or
	// negative is rejected.
	MaxHits *int
	// Properties maps a relationship type to target concepts. A concept
	// passes when, for every type, it is related to a descendant-or-self of
	// one of the targets. For IS-A the concept itself must be a
	// descendant-or-self of a target.
	Properties map[uint64][]uint64
	// ConceptRefsets keeps concepts with an active item in any of these
	// refsets.
	ConceptRefsets []uint64
	// LanguageRefsets selects whose preferred terms are boosted. Empty
	// boosts a term preferred in any refset.
	LanguageRefsets []uint64
	// DistinctConcepts keeps only the best description per concept.
	DistinctConcepts bool
	// IncludeInactive nil selects the configured default.
	IncludeInactive *bool
	// Fuzzy empty selects the configured default.
	Fuzzy FuzzyMode
}

// Result is one ranked description match.
type Result struct {
	ConceptID     uint64  `json:"conceptId" yaml:"conceptId"`
	DescriptionID uint64  `json:"descriptionId" yaml:"descriptionId"`
	Term          string  `json:"term" yaml:"term"`
	PreferredTerm string  `json:"preferredTerm,omitempty" yaml:"preferredTerm,omitempty"`
	Score         float64 `json:"score" yaml:"score"`
	Active        bool    `json:"active" yaml:"active"`
}

// IntPtr returns a pointer to v, for Request.MaxHits.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v, for Request.IncludeInactive.
func BoolPtr(v bool) *bool { return &v }

type tokenMatch struct {
	entry   *vocabEntry
	quality float64
}

// candidate is a scored document awaiting filters.
type candidate struct {
	concept uint64
	id      uint64
	score   float64
	active  bool
}

// ranked orders candidates by descending score, then ascending concept id
// and description id.
type ranked []candidate

func (r ranked) Len() int { return len(r) }
func (r ranked) Less(i, j int) bool {
	a, b := r[i], r[j]
	if a.score != b.score {
		return a.score > b.score
	}
	if a.concept != b.concept {
		return a.concept < b.concept
	}
	return a.id < b.id
}
func (r ranked) Swap(i, j int) { r[i], r[j] = r[j], r[i] }
func (r *ranked) Push(x any)   { *r = append(*r, x.(candidate)) }
func (r *ranked) Pop() any {
	old := *r
	c := old[len(old)-1]
	*r = old[:len(old)-1]
	return c
}

// IncludeInactive resolves whether req admits inactive descriptions and
// descriptions of inactive concepts.
func (ix *Index) IncludeInactive(req *Request) bool {
	if req.IncludeInactive != nil {
		return *req.IncludeInactive
	}
	return ix.opts.IncludeInactive
}

// Accept reports whether conceptID passes the property and refset filters
// of req.
func (ix *Index) Accept(ctx context.Context, req *Request, conceptID uint64) (bool, error) {
	f, err := ix.newFilter(req)
	if err != nil {
		return false, err
	}
	return f.accept(ctx, conceptID)
}

// Search runs req and returns results ordered by descending score, then
// ascending concept id and description id.
func (ix *Index) Search(ctx context.Context, req *Request) ([]*Result, error) {
	maxHits := ix.opts.DefaultMaxHits
	if req.MaxHits != nil {
		if *req.MaxHits <= 0 {
			return nil, sigilerr.New(sigilerr.CodeSearchRequestInvalid, "max hits must be positive",
				sigilerr.Field("max_hits", *req.MaxHits))
		}
		maxHits = *req.MaxHits
	}
	mode := ix.opts.Fuzzy
	if req.Fuzzy != "" {
		m, err := ParseFuzzyMode(string(req.Fuzzy))
		if err != nil {
			return nil, err
		}
		mode = m
	}
	includeInactive := ix.IncludeInactive(req)
	f, err := ix.newFilter(req)
	if err != nil {
		return nil, err
	}

	ordered := Tokenize(req.Text)
	tokens := unique(ordered)
	if len(tokens) == 0 {
		return []*Result{}, nil
	}
	phrase := PhraseHash(ordered)

	scores := ix.score(tokens, mode)
	if len(scores) == 0 {
		return []*Result{}, nil
	}

	candidates := make(ranked, 0, len(scores))
	for ord, score := range scores {
		active := ix.docs.active(ord)
		if !active && !includeInactive {
			continue
		}
		score /= math.Sqrt(float64(max(ix.docs.tokens[ord], 1)))
		score *= languageBoost(ix.docs.langSets[ix.docs.langs[ord]], req.LanguageRefsets)
		if ix.docs.phrases[ord] == phrase {
			score *= exactTermBoost
		}
		if !active {
			score *= inactivePenalty
		}
		candidates = append(candidates, candidate{
			concept: ix.docs.concepts[ord],
			id:      ix.docs.ids[ord],
			score:   score,
			active:  active,
		})
	}
	heap.Init(&candidates)

	// Filters run in rank order and stop once enough hits pass, so only the
	// leading candidates ever reach the store.
	var (
		hits []candidate
		seen map[uint64]bool
	)
	if req.DistinctConcepts {
		seen = make(map[uint64]bool)
	}
	for candidates.Len() > 0 && len(hits) < maxHits {
		if err := ctx.Err(); err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeSearchQueryFailure, "search cancelled")
		}
		c := heap.Pop(&candidates).(candidate)
		if seen != nil && seen[c.concept] {
			continue
		}
		ok, err := f.accept(ctx, c.concept)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if seen != nil {
			seen[c.concept] = true
		}
		hits = append(hits, c)
	}
	return ix.results(ctx, hits)
}

// results reads the terms of hits from the store.
func (ix *Index) results(ctx context.Context, hits []candidate) ([]*Result, error) {
	out := make([]*Result, len(hits))
	if len(hits) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	slices.Sort(ids)
	docs, err := ix.src.SearchDocs(ctx, ids)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeSearchQueryFailure, "loading search documents")
	}
	terms := make(map[uint64]string, len(docs))
	for _, d := range docs {
		terms[d.DescriptionID] = d.Term
	}
	for i, h := range hits {
		out[i] = &Result{
			ConceptID:     h.concept,
			DescriptionID: h.id,
			Term:          terms[h.id],
			Score:         h.score,
			Active:        h.active,
		}
	}
	return out, nil
}

// score returns, for each document matching every token, the sum over
// tokens of its best match quality weighted by inverse document frequency.
func (ix *Index) score(tokens []string, mode FuzzyMode) map[uint32]float64 {
	var scores map[uint32]float64
	for i, tok := range tokens {
		matches := ix.expand(tok, mode)
		if len(matches) == 0 {
			return nil
		}
		if i == 0 {
			n := 0
			for _, m := range matches {
				n += len(m.entry.postings)
			}
			scores = make(map[uint32]float64, n)
			for _, m := range matches {
				w := m.quality * ix.idf(m.entry.df)
				for _, ord := range m.entry.postings {
					if w > scores[ord] {
						scores[ord] = w
					}
				}
			}
			continue
		}

		best := make(map[uint32]float64, len(scores))
		for _, m := range matches {
			w := m.quality * ix.idf(m.entry.df)
			for _, ord := range m.entry.postings {
				if _, ok := scores[ord]; ok && w > best[ord] {
					best[ord] = w
				}
			}
		}
		for ord := range scores {
			if w, ok := best[ord]; ok {
				scores[ord] += w
			} else {
				delete(scores, ord)
			}
		}
		if len(scores) == 0 {
			return nil
		}
	}
	return scores
}

func (ix *Index) idf(df int) float64 {
	return math.Log(1 + float64(ix.docs.len())/float64(max(df, 1)))
}

// expand returns the vocabulary tokens tok matches: itself, tokens it is a
// prefix of, and depending on mode tokens within a small edit distance.
func (ix *Index) expand(tok string, mode FuzzyMode) []tokenMatch {
	var out []tokenMatch
	start := sort.Search(len(ix.vocab), func(i int) bool { return ix.vocab[i].token >= tok })
	prefixes := 0
	for j := start; j < len(ix.vocab) && strings.HasPrefix(ix.vocab[j].token, tok); j++ {
		v := &ix.vocab[j]
		if v.token == tok {
			out = append(out, tokenMatch{entry: v, quality: exactQuality})
			continue
		}
		if prefixes == maxPrefixExpansions {
			break
		}
		prefixes++
		out = append(out, tokenMatch{entry: v, quality: prefixQuality})
	}

	if mode == FuzzyAlways || (mode == FuzzyFallback && len(out) == 0) {
		out = append(out, ix.fuzzyMatches(tok)...)
	}
	return out
}

// maxEdits is the edit distance allowed for a token of n runes.
func maxEdits(n int) int {
	switch {
	case n < 3:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func (ix *Index) fuzzyMatches(tok string) []tokenMatch {
	n := utf8.RuneCountInString(tok)
	edits := maxEdits(n)
	if edits == 0 {
		return nil
	}
	var out []tokenMatch
	for l := n - edits; l <= n+edits; l++ {
		for _, i := range ix.byLength[l] {
			v := &ix.vocab[i]
			if strings.HasPrefix(v.token, tok) {
				continue
			}
			if d := fuzzy.LevenshteinDistance(tok, v.token); d > 0 && d <= edits {
				out = append(out, tokenMatch{entry: v, quality: fuzzyQuality})
			}
		}
	}
	return out
}

func languageBoost(langs langSet, refsets []uint64) float64 {
	if len(refsets) == 0 {
		switch {
		case len(langs.preferred) > 0:
			return preferredBoost
		case len(langs.acceptable) > 0:
			return 1
		default:
			return unlistedPenalty
		}
	}
	for _, r := range refsets {
		if slices.Contains(langs.preferred, r) {
			return preferredBoost
		}
	}
	for _, r := range refsets {
		if slices.Contains(langs.acceptable, r) {
			return 1
		}
	}
	return unlistedPenalty
}
// filter applies the concept-level constraints of a request, remembering
// the verdict per concept.
type filter struct {
	ix         *Index
	properties []propertyFilter
	refsets    []uint64
	verdicts   map[uint64]bool
}

type propertyFilter struct {
	typeID uint64
	set    *hierarchy.Set
}

func (ix *Index) newFilter(req *Request) (*filter, error) {
	f := &filter{ix: ix, refsets: req.ConceptRefsets, verdicts: make(map[uint64]bool)}
	if len(req.Properties) == 0 {
		return f, nil
	}
	if ix.closure == nil {
		return nil, sigilerr.New(sigilerr.CodeSearchQueryFailure, "property filters need the hierarchy index")
	}
	types := make([]uint64, 0, len(req.Properties))
	for t := range req.Properties {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		targets := req.Properties[t]
		if len(targets) == 0 {
			return nil, sigilerr.New(sigilerr.CodeSearchRequestInvalid, "property filter has no targets",
				sigilerr.Field("type_id", t))
		}
		f.properties = append(f.properties, propertyFilter{typeID: t, set: ix.closure.DescendantsOrSelf(targets...)})
	}
	return f, nil
}

func (f *filter) accept(ctx context.Context, conceptID uint64) (bool, error) {
	if v, ok := f.verdicts[conceptID]; ok {
		return v, nil
	}
	v, err := f.check(ctx, conceptID)
	if err != nil {
		return false, err
	}
	f.verdicts[conceptID] = v
	return v, nil
}

func (f *filter) check(ctx context.Context, conceptID uint64) (bool, error) {
	var rels []*snomed.Relationship
	for _, p := range f.properties {
		if p.typeID == snomed.IsA {
			if !p.set.Contains(conceptID) {
				return false, nil
			}
			continue
		}
		if rels == nil {
			var err error
			rels, err = f.ix.src.GetRelationships(ctx, conceptID, store.AsSource)
			if err != nil {
				return false, err
			}
		}
		if !slices.ContainsFunc(rels, func(r *snomed.Relationship) bool {
			return r.Active && r.TypeID == p.typeID && p.set.Contains(r.DestinationID)
		}) {
			return false, nil
		}
	}
	if len(f.refsets) > 0 {
		return f.ix.src.IsMember(ctx, conceptID, f.refsets)
	}
	return true, nil
}
