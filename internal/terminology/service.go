// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package terminology is the query façade over an imported and indexed
// store. A Terminology is opened read-only, shared by any number of
// concurrent callers, and closed once by its owner.
package terminology

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/sigil-dev/snomed/internal/config"
	"github.com/sigil-dev/snomed/internal/crossmap"
	"github.com/sigil-dev/snomed/internal/expression"
	"github.com/sigil-dev/snomed/internal/hierarchy"
	"github.com/sigil-dev/snomed/internal/index"
	"github.com/sigil-dev/snomed/internal/search"
	"github.com/sigil-dev/snomed/internal/store"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/health"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// Service is the capability set offered to delivery layers. After Close
// every method fails with a service-closed error, except Status, which
// reports Available=false with a nil error so health probes keep working.
type Service interface {
	GetConcept(ctx context.Context, id uint64) (*snomed.Concept, error)
	GetConceptHistory(ctx context.Context, id uint64) ([]*snomed.Concept, error)
	GetDescriptionHistory(ctx context.Context, id uint64) ([]*snomed.Description, error)
	GetRelationshipHistory(ctx context.Context, id uint64) ([]*snomed.Relationship, error)
	GetExtendedConcept(ctx context.Context, id uint64) (*snomed.ExtendedConcept, error)
	GetDescription(ctx context.Context, id uint64) (*snomed.Description, error)
	GetDescriptions(ctx context.Context, conceptID uint64) ([]*snomed.Description, error)
	GetRelationships(ctx context.Context, conceptID uint64, dir store.Direction) ([]*snomed.Relationship, error)
	GetPreferredSynonym(ctx context.Context, conceptID uint64, languageRefsets []uint64) (*snomed.Description, error)
	LanguageRefsets(acceptLanguage string) ([]uint64, error)

	GetReferenceSets(ctx context.Context, componentID uint64) ([]uint64, error)
	GetReferenceSetItem(ctx context.Context, id uuid.UUID) (*snomed.ReferenceSetItem, error)
	GetComponentRefsetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error)
	InstalledReferenceSets(ctx context.Context) ([]uint64, error)
	ReverseMap(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)
	ReverseMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error)

	SubsumedBy(ctx context.Context, conceptID, subsumerID uint64) (bool, error)
	GetAllParents(ctx context.Context, conceptID uint64) ([]uint64, error)
	GetAllChildren(ctx context.Context, conceptID uint64) ([]uint64, error)

	Search(ctx context.Context, req *search.Request) ([]*search.Result, error)
	ParseExpression(ctx context.Context, s string) (*expression.Expression, error)

	Status(ctx context.Context) (*health.Status, error)
	Close() error
}

// Compile-time interface check.
var _ Service = (*Terminology)(nil)

// FallbackPolicy decides what GetPreferredSynonym returns when no
// description is preferred in the requested language refsets.
type FallbackPolicy string

const (
	// FallbackAny falls back to a term preferred in any refset, then to any
	// active synonym, then to any active description.
	FallbackAny FallbackPolicy = "any"
	// FallbackStrict fails with a not-found error instead.
	FallbackStrict FallbackPolicy = "strict"
)

// Options configures Open.
type Options struct {
	Backend string
	Path    string
	Search  search.Options
	// Languages is an ordered BCP-47 preference list used when a call
	// names no language refsets.
	Languages []string
	Fallback  FallbackPolicy
	// CacheSize bounds the extended concept cache. Zero disables it.
	CacheSize int
	Logger    *zap.SugaredLogger
}

// OptionsFromConfig maps the serving settings of cfg.
func OptionsFromConfig(cfg *config.Config, logger *zap.SugaredLogger) (Options, error) {
	fuzzy, err := search.ParseFuzzyMode(cfg.Search.Fuzzy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Search: search.Options{
			DefaultMaxHits:  cfg.Search.DefaultMaxHits,
			Fuzzy:           fuzzy,
			IncludeInactive: cfg.Search.IncludeInactive,
			Logger:          logger,
		},
		Languages: cfg.Language.Preferences,
		Fallback:  FallbackPolicy(cfg.Language.Fallback),
		CacheSize: cfg.Cache.ExtendedConcepts,
		Logger:    logger,
	}, nil
}

// Terminology implements Service over a read-only store backend.
type Terminology struct {
	backend  store.Backend
	closure  *hierarchy.Closure
	search   *search.Index
	crossmap *crossmap.Index
	cache    *lru.Cache
	logger   *zap.SugaredLogger

	fallback  FallbackPolicy
	languages *languageMatcher
	defaults  []uint64
	openedAt  time.Time

	failures    atomic.Int64
	lastFailure atomic.Pointer[time.Time]

	// mu guards the lifecycle only: queries hold the read lock, Close the
	// write lock.
	mu     sync.RWMutex
	closed bool
}

// Open opens the store at opts.Path read-only and loads its indexes. A
// store whose indexes were never built is refused.
func Open(ctx context.Context, opts Options) (*Terminology, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	backend, err := store.Open(&store.StorageConfig{
		Backend:  opts.Backend,
		Path:     opts.Path,
		ReadOnly: true,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	t, err := New(ctx, backend, opts)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return t, nil
}

// New serves an already opened backend. The Terminology takes ownership of
// backend and closes it on Close.
func New(ctx context.Context, backend store.Backend, opts Options) (*Terminology, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	start := time.Now()

	missing, err := index.Missing(ctx, backend)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, store.IndexesNotBuilt(missing)
	}

	closure, err := hierarchy.Load(ctx, backend)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeTerminologyOpenFailure, "loading hierarchy")
	}
	opts.Search.Logger = logger
	searchIx, err := search.Open(ctx, backend, closure, opts.Search)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeTerminologyOpenFailure, "loading search index")
	}

	installed, err := backend.InstalledReferenceSets(ctx)
	if err != nil {
		return nil, err
	}

	t := &Terminology{
		backend:   backend,
		closure:   closure,
		search:    searchIx,
		crossmap:  crossmap.New(backend),
		logger:    logger,
		fallback:  opts.Fallback,
		languages: newLanguageMatcher(installed),
		openedAt:  time.Now(),
	}
	if t.fallback == "" {
		t.fallback = FallbackAny
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New(opts.CacheSize)
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeTerminologyOpenFailure, "creating concept cache")
		}
		t.cache = cache
	}

	if len(opts.Languages) > 0 {
		defaults, err := t.languages.refsets(joinTags(opts.Languages))
		if err != nil {
			return nil, err
		}
		t.defaults = defaults
	}
	if len(t.defaults) == 0 {
		t.defaults = t.languages.installed()
	}

	logger.Infow("terminology opened",
		"concepts", closure.Len(), "search_tokens", searchIx.Tokens(),
		"language_refsets", t.defaults, "elapsed", time.Since(start))
	return t, nil
}

// acquire takes the lifecycle read lock for one query. The returned
// function releases it.
func (t *Terminology) acquire() (func(), error) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return nil, sigilerr.New(sigilerr.CodeTerminologyServiceClosed, "terminology service is closed")
	}
	return t.mu.RUnlock, nil
}

// observe counts unexpected query failures.
func (t *Terminology) observe(err error) error {
	if err == nil || sigilerr.IsNotFound(err) || sigilerr.IsInvalidInput(err) || sigilerr.IsParseError(err) {
		return err
	}
	now := time.Now()
	t.failures.Add(1)
	t.lastFailure.Store(&now)
	t.logger.Warnw("query failed", "error", err, "code", string(sigilerr.CodeOf(err)))
	return err
}

// Close waits for in-flight queries and releases the store. Queries after
// Close fail with a service closed error. Close is idempotent.
func (t *Terminology) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.cache != nil {
		t.cache.Purge()
	}
	t.logger.Infow("terminology closed")
	return t.backend.Close()
}

// Status reports the serving state. A closed service reports itself
// unavailable rather than failing.
func (t *Terminology) Status(ctx context.Context) (*health.Status, error) {
	release, err := t.acquire()
	if err != nil {
		return &health.Status{Available: false, OpenedAt: t.openedAt}, nil
	}
	defer release()

	stats, err := t.backend.Statistics(ctx)
	if err != nil {
		return nil, t.observe(err)
	}
	built, err := t.backend.IndexStatus(ctx)
	if err != nil {
		return nil, t.observe(err)
	}

	st := &health.Status{
		Available:       true,
		OpenedAt:        t.openedAt,
		FailureCount:    t.failures.Load(),
		LastFailureAt:   t.lastFailure.Load(),
		Concepts:        stats.Concepts,
		ActiveConcepts:  stats.ActiveConcepts,
		Descriptions:    stats.Descriptions,
		Relationships:   stats.Relationships,
		RefsetItems:     stats.RefsetItems,
		ReferenceSets:   stats.ReferenceSets,
		SearchTokens:    t.search.Tokens(),
		SearchDocuments: t.search.Documents(),
	}
	if !stats.LatestEffective.IsZero() {
		latest := stats.LatestEffective
		st.LatestRelease = &latest
	}
	if t.cache != nil {
		st.CachedConcepts = t.cache.Len()
	}
	for _, b := range built {
		st.Indexes = append(st.Indexes, health.Index{Name: b.Name, Entries: b.Entries, BuiltAt: b.BuiltAt})
	}
	return st, nil
}
