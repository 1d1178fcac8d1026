package search

import (
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// QueryExpander expands a natural-language legal query with multilingual
// and doctrinal synonym variants (LegalSynonyms), addressing the
// vocabulary gap between a practitioner's colloquial query ("Hundebiss")
// and the doctrinal term a decision's regeste actually uses
// ("Tierhalterhaftung"). Grounded in original_source's
// `_expand_rank_terms_for_match`.
type QueryExpander struct {
	synonyms      map[string][]string
	maxExpansions int
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithMaxExpansions sets the maximum synonyms contributed per term.
func WithMaxExpansions(n int) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.maxExpansions = n
	}
}

// WithCustomSynonyms merges additional synonym mappings.
func WithCustomSynonyms(synonyms map[string][]string) QueryExpanderOption {
	return func(e *QueryExpander) {
		for k, v := range synonyms {
			e.synonyms[k] = append(e.synonyms[k], v...)
		}
	}
}

// NewQueryExpander creates a query expander seeded with LegalSynonyms.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		synonyms:      make(map[string][]string, len(LegalSynonyms)),
		maxExpansions: MaxExpansionsPerTerm,
	}
	for k, v := range LegalSynonyms {
		e.synonyms[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the query with synonym expansions appended, suitable
// for an OR-based FTS fallback strategy.
func (e *QueryExpander) Expand(query string) string {
	terms := store.TokenizeLegalText(query)
	if len(terms) == 0 {
		return query
	}

	seen := make(map[string]bool, len(terms)*2)
	expanded := make([]string, 0, len(terms)*2)

	for _, term := range terms {
		if !seen[term] {
			expanded = append(expanded, term)
			seen[term] = true
		}
	}

	for _, term := range terms {
		added := 0
		for _, syn := range e.getSynonyms(term) {
			if !seen[syn] && added < e.maxExpansions {
				expanded = append(expanded, syn)
				seen[syn] = true
				added++
			}
		}
	}

	return strings.Join(expanded, " ")
}

// ExpandToTerms returns the expanded query as individual tokens, used to
// augment vector-search query text and rank-term coverage scoring.
func (e *QueryExpander) ExpandToTerms(query string) []string {
	return store.TokenizeLegalText(e.Expand(query))
}

// getSynonyms retrieves synonyms for a normalized term.
func (e *QueryExpander) getSynonyms(term string) []string {
	if syns, ok := e.synonyms[term]; ok {
		return syns
	}
	return nil
}
