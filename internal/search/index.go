// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package search implements ranked full-text lookup of concepts by their
// description terms.
//
// The ranking fields of every document and the postings of every token are
// loaded into ordinal-indexed arrays at Open, so matching, scoring and the
// hierarchy filter run in memory. Terms are read from the store only for
// the hits a query returns.
package search

import (
	"context"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/hierarchy"
	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// FuzzyMode controls edit-distance matching of query tokens.
type FuzzyMode string

const (
	// FuzzyOff matches tokens exactly or by prefix only.
	FuzzyOff FuzzyMode = "off"
	// FuzzyFallback tries fuzzy matches for a token only when it has no
	// exact or prefix match.
	FuzzyFallback FuzzyMode = "fallback"
	// FuzzyAlways adds fuzzy matches for every token.
	FuzzyAlways FuzzyMode = "always"
)

// ParseFuzzyMode validates a configured fuzzy mode.
func ParseFuzzyMode(s string) (FuzzyMode, error) {
	switch m := FuzzyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FuzzyOff, FuzzyFallback, FuzzyAlways:
		return m, nil
	default:
		return "", sigilerr.Errorf(sigilerr.CodeSearchRequestInvalid, "unknown fuzzy mode %q", s)
	}
}

// Source is the storage the index reads: the persisted search tables at
// Open, and terms plus relationship and membership filters at query time.
type Source interface {
	store.IndexStore
	GetRelationships(ctx context.Context, conceptID uint64, dir store.Direction) ([]*snomed.Relationship, error)
	IsMember(ctx context.Context, componentID uint64, refsetIDs []uint64) (bool, error)
}

// Options configures query defaults.
type Options struct {
	DefaultMaxHits  int
	Fuzzy           FuzzyMode
	IncludeInactive bool
	Logger          *zap.SugaredLogger
}

type vocabEntry struct {
	token string
	df    int
	// postings holds document ordinals in ascending order.
	postings []uint32
}

// Document flags.
const (
	docActive uint8 = 1 << iota
	docConceptActive
)

// langSet is an interned pair of language refset lists. Most descriptions
// share one of a handful of combinations.
type langSet struct {
	preferred  []uint64
	acceptable []uint64
}

// docTable holds the ranking fields of every document in columns indexed
// by ordinal. Ordinals follow ascending description id.
type docTable struct {
	ids      []uint64
	concepts []uint64
	tokens   []uint16
	flags    []uint8
	phrases  []uint64
	langs    []uint32
	langSets []langSet
}

func (d *docTable) len() int { return len(d.ids) }

func (d *docTable) active(ord uint32) bool {
	return d.flags[ord] == docActive|docConceptActive
}

func (d *docTable) ordinal(descriptionID uint64) (uint32, bool) {
	i, ok := slices.BinarySearch(d.ids, descriptionID)
	return uint32(i), ok
}

// Index answers search requests. It is immutable after Open and safe for
// concurrent use.
type Index struct {
	src     Source
	closure *hierarchy.Closure
	opts    Options
	logger  *zap.SugaredLogger

	docs     docTable
	vocab    []vocabEntry
	byLength map[int][]int
}

// Open loads the documents and the vocabulary with its postings of a built
// search index. The closure backs property filters.
func Open(ctx context.Context, src Source, closure *hierarchy.Closure, opts Options) (*Index, error) {
	if opts.DefaultMaxHits <= 0 {
		opts.DefaultMaxHits = 200
	}
	if opts.Fuzzy == "" {
		opts.Fuzzy = FuzzyFallback
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ix := &Index{
		src:      src,
		closure:  closure,
		opts:     opts,
		logger:   logger,
		byLength: make(map[int][]int),
	}
	if err := ix.loadDocs(ctx); err != nil {
		return nil, err
	}
	if err := ix.loadVocabulary(ctx); err != nil {
		return nil, err
	}

	logger.Debugw("search index opened", "tokens", len(ix.vocab), "documents", ix.docs.len())
	return ix, nil
}

func (ix *Index) loadDocs(ctx context.Context) error {
	n, err := ix.src.SearchDocCount(ctx)
	if err != nil {
		return err
	}
	d := docTable{
		ids:      make([]uint64, 0, n),
		concepts: make([]uint64, 0, n),
		tokens:   make([]uint16, 0, n),
		flags:    make([]uint8, 0, n),
		phrases:  make([]uint64, 0, n),
		langs:    make([]uint32, 0, n),
	}
	interned := make(map[string]uint32)
	var key []byte
	for doc, err := range ix.src.StreamSearchDocs(ctx) {
		if err != nil {
			return sigilerr.Wrap(err, sigilerr.CodeSearchQueryFailure, "loading search documents")
		}
		if len(d.ids) > 0 && doc.DescriptionID <= d.ids[len(d.ids)-1] {
			return sigilerr.New(sigilerr.CodeSearchQueryFailure, "search documents out of order",
				sigilerr.Field("description_id", doc.DescriptionID))
		}

		key = langKey(key[:0], doc.Preferred, doc.Acceptable)
		lang, ok := interned[string(key)]
		if !ok {
			lang = uint32(len(d.langSets))
			interned[string(key)] = lang
			d.langSets = append(d.langSets, langSet{preferred: doc.Preferred, acceptable: doc.Acceptable})
		}

		var flags uint8
		if doc.Active {
			flags |= docActive
		}
		if doc.ConceptActive {
			flags |= docConceptActive
		}
		d.ids = append(d.ids, doc.DescriptionID)
		d.concepts = append(d.concepts, doc.ConceptID)
		d.tokens = append(d.tokens, uint16(min(doc.TokenCount, math.MaxUint16)))
		d.flags = append(d.flags, flags)
		d.phrases = append(d.phrases, doc.PhraseHash)
		d.langs = append(d.langs, lang)
	}
	ix.docs = d
	return nil
}

// langKey renders a preferred/acceptable pair as an interning key.
func langKey(buf []byte, preferred, acceptable []uint64) []byte {
	for _, id := range preferred {
		buf = strconv.AppendUint(buf, id, 10)
		buf = append(buf, ',')
	}
	buf = append(buf, '|')
	for _, id := range acceptable {
		buf = strconv.AppendUint(buf, id, 10)
		buf = append(buf, ',')
	}
	return buf
}

func (ix *Index) loadVocabulary(ctx context.Context) error {
	for v, err := range ix.src.StreamVocabulary(ctx) {
		if err != nil {
			return sigilerr.Wrap(err, sigilerr.CodeSearchQueryFailure, "loading search vocabulary")
		}
		postings := make([]uint32, 0, len(v.Postings))
		for _, id := range v.Postings {
			ord, ok := ix.docs.ordinal(id)
			if !ok {
				return sigilerr.New(sigilerr.CodeSearchQueryFailure, "posting references an unindexed description",
					sigilerr.Field("token", v.Token), sigilerr.Field("description_id", id))
			}
			postings = append(postings, ord)
		}
		slices.Sort(postings)
		ix.vocab = append(ix.vocab, vocabEntry{token: v.Token, df: v.DocFreq, postings: postings})
	}
	if !sort.SliceIsSorted(ix.vocab, func(i, j int) bool { return ix.vocab[i].token < ix.vocab[j].token }) {
		sort.Slice(ix.vocab, func(i, j int) bool { return ix.vocab[i].token < ix.vocab[j].token })
	}
	for i, v := range ix.vocab {
		n := utf8.RuneCountInString(v.token)
		ix.byLength[n] = append(ix.byLength[n], i)
	}
	return nil
}

// Tokens returns the vocabulary size.
func (ix *Index) Tokens() int { return len(ix.vocab) }

// Documents returns the number of indexed descriptions.
func (ix *Index) Documents() int { return ix.docs.len() }
