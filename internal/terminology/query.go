// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package terminology

import (
	"context"
	"strings"

	"github.com/sigil-dev/snomed/internal/expression"
	"github.com/sigil-dev/snomed/internal/search"
	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/sigil-dev/snomed/pkg/snomed"
)

// GetComponentRefsetItems returns the items referencing componentID,
// optionally restricted to one refset.
func (t *Terminology) GetComponentRefsetItems(ctx context.Context, componentID, refsetID uint64) ([]*snomed.ReferenceSetItem, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := t.crossmap.ComponentRefsetItems(ctx, componentID, refsetID)
	return items, t.observe(err)
}

// ReverseMap finds the map items of refsetID whose target is code.
func (t *Terminology) ReverseMap(ctx context.Context, refsetID uint64, code string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := t.crossmap.ReverseMap(ctx, refsetID, code, includeInactive)
	return items, t.observe(err)
}

// ReverseMapPrefix finds the map items of refsetID whose target starts
// with prefix.
func (t *Terminology) ReverseMapPrefix(ctx context.Context, refsetID uint64, prefix string, includeInactive bool) ([]*snomed.ReferenceSetItem, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := t.crossmap.ReverseMapPrefix(ctx, refsetID, prefix, includeInactive)
	return items, t.observe(err)
}

// SubsumedBy reports whether conceptID is subsumerID or one of its
// descendants.
func (t *Terminology) SubsumedBy(_ context.Context, conceptID, subsumerID uint64) (bool, error) {
	release, err := t.acquire()
	if err != nil {
		return false, err
	}
	defer release()
	ok, err := t.closure.SubsumedBy(conceptID, subsumerID)
	return ok, t.observe(err)
}

func (t *Terminology) GetAllParents(_ context.Context, conceptID uint64) ([]uint64, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	ids, err := t.closure.AllParents(conceptID)
	return ids, t.observe(err)
}

func (t *Terminology) GetAllChildren(_ context.Context, conceptID uint64) ([]uint64, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	ids, err := t.closure.AllChildren(conceptID)
	return ids, t.observe(err)
}

// Search ranks descriptions against req. Text that is the identifier of
// an existing concept resolves to that concept alone. Every result carries
// the preferred term of its concept.
func (t *Terminology) Search(ctx context.Context, req *search.Request) ([]*search.Result, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if req == nil {
		return nil, sigilerr.New(sigilerr.CodeSearchRequestInvalid, "search request is required")
	}
	if req.MaxHits != nil && *req.MaxHits < 1 {
		return nil, sigilerr.New(sigilerr.CodeSearchRequestInvalid, "max hits must be positive",
			sigilerr.Field("max_hits", *req.MaxHits))
	}
	r := *req
	if len(r.LanguageRefsets) == 0 {
		r.LanguageRefsets = t.defaults
	}

	if results, ok, err := t.searchByID(ctx, &r); err != nil || ok {
		if err != nil {
			return nil, t.observe(err)
		}
		return results, nil
	}

	results, err := t.search.Search(ctx, &r)
	if err != nil {
		return nil, t.observe(err)
	}

	terms := make(map[uint64]string)
	for _, res := range results {
		term, ok := terms[res.ConceptID]
		if !ok {
			descs, err := t.backend.GetDescriptions(ctx, res.ConceptID)
			if err != nil {
				return nil, t.observe(err)
			}
			if d, err := t.choosePreferred(res.ConceptID, descs, r.LanguageRefsets); err == nil {
				term = d.Term
			}
			terms[res.ConceptID] = term
		}
		res.PreferredTerm = term
	}
	return results, nil
}

// searchByID resolves text holding a single concept identifier. The
// concept is subject to the same activity and concept filters as a text
// match; ok reports that the text named a known concept.
func (t *Terminology) searchByID(ctx context.Context, req *search.Request) ([]*search.Result, bool, error) {
	id, err := snomed.ParseID(strings.TrimSpace(req.Text))
	if err != nil || !snomed.IsConceptID(id) {
		return nil, false, nil
	}
	concept, err := t.backend.GetConcept(ctx, id)
	if sigilerr.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !concept.Active && !t.search.IncludeInactive(req) {
		return []*search.Result{}, true, nil
	}
	accepted, err := t.search.Accept(ctx, req, id)
	if err != nil {
		return nil, false, err
	}
	if !accepted {
		return []*search.Result{}, true, nil
	}

	descs, err := t.backend.GetDescriptions(ctx, id)
	if err != nil {
		return nil, false, err
	}
	result := &search.Result{ConceptID: id, Score: 1, Active: concept.Active}
	if d, err := t.choosePreferred(id, descs, req.LanguageRefsets); err == nil {
		result.DescriptionID = d.ID
		result.Term = d.Term
		result.PreferredTerm = d.Term
	}
	return []*search.Result{result}, true, nil
}

// ParseExpression parses a compositional grammar expression and checks
// that every concept it references exists.
func (t *Terminology) ParseExpression(ctx context.Context, s string) (*expression.Expression, error) {
	release, err := t.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	expr, err := expression.Parse(s)
	if err != nil {
		return nil, t.observe(err)
	}
	for _, id := range expr.Concepts() {
		if !t.closure.Contains(id) {
			return nil, t.observe(sigilerr.New(sigilerr.CodeExpressionConceptUnknown, "expression references an unknown concept",
				sigilerr.FieldConceptID(id)))
		}
	}
	return expr, nil
}
