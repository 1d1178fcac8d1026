package search

import (
	"regexp"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// SubQuery represents a decomposed sub-query with its relative weight.
// Multi-query fusion decomposes a broad natural-language query into
// several targeted sub-queries — anchor-pair phrases, language-focused
// variants, synonym-expanded OR queries — for better fused coverage.
type SubQuery struct {
	// Query is the sub-query text to search.
	Query string

	// Weight is the relative importance of this sub-query (default: 1.0).
	// Higher weights give more influence in RRF fusion.
	Weight float64

	// Hint optionally suggests a language to restrict the sub-query to
	// ("de", "fr", "it"), or "" for any language.
	Hint string
}

// QueryDecomposer transforms a single query into multiple sub-queries
// for improved retrieval coverage via multi-signal fusion.
type QueryDecomposer interface {
	// ShouldDecompose returns true if the query benefits from decomposition.
	// Conservative: single-word and already-specific queries pass through.
	ShouldDecompose(query string) bool

	// Decompose returns sub-queries for the given query.
	// If ShouldDecompose returns false, returns original query wrapped in slice.
	Decompose(query string) []SubQuery
}

// LegalStrategyDecomposer implements QueryDecomposer for Swiss legal
// queries, grounded in original_source's _build_query_strategies and its
// helpers (_build_anchor_pair_strategies, _build_language_focus_strategies,
// _build_nl_or_query, _build_nl_and_query).
type LegalStrategyDecomposer struct {
	expander *QueryExpander

	explicitFTSSyntax *regexp.Regexp
}

// NewLegalStrategyDecomposer creates a new decomposer for legal queries.
func NewLegalStrategyDecomposer() *LegalStrategyDecomposer {
	return &LegalStrategyDecomposer{
		expander: NewQueryExpander(),
		// FTS5 operators that signal the caller already hand-built a
		// query string, in which case we must not rewrite it further.
		explicitFTSSyntax: regexp.MustCompile(`["*]|\bAND\b|\bOR\b|\bNOT\b|NEAR\(`),
	}
}

// ShouldDecompose returns true if the query benefits from decomposition.
func (d *LegalStrategyDecomposer) ShouldDecompose(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}

	// Already hand-built FTS syntax: don't second-guess the caller.
	if d.explicitFTSSyntax.MatchString(query) {
		return false
	}

	// Docket numbers and BGE/statute citations are already maximally
	// specific; decomposition would only dilute them.
	if IsDocketShaped(query) || bgePattern.MatchString(query) || HasStatuteReference(query) {
		return false
	}

	terms := store.TokenizeLegalText(query)
	return len(terms) >= 2
}

// Decompose transforms a query into multiple sub-queries.
func (d *LegalStrategyDecomposer) Decompose(query string) []SubQuery {
	original := strings.TrimSpace(query)

	if !d.ShouldDecompose(original) {
		return []SubQuery{{Query: original, Weight: 1.0}}
	}

	terms := store.TokenizeLegalText(original)
	subQueries := make([]SubQuery, 0, 8)

	// Strategy 1: the original natural-language query, unweighted reference point.
	subQueries = append(subQueries, SubQuery{Query: original, Weight: 1.0})

	// Strategy 2: AND-joined query of all significant terms — tightest match.
	if andQuery := d.buildNLAndQuery(terms); andQuery != "" {
		subQueries = append(subQueries, SubQuery{Query: andQuery, Weight: 1.2})
	}

	// Strategy 3: anchor-pair strategies — known two-term legal-topic combinations.
	subQueries = append(subQueries, d.buildAnchorPairStrategies(terms)...)

	// Strategy 4: OR-expanded query using synonym table, for recall across languages.
	if orQuery := d.buildNLOrQuery(terms); orQuery != "" {
		subQueries = append(subQueries, SubQuery{Query: orQuery, Weight: 0.8})
	}

	// Strategy 5: language-focus strategies restrict to the dominant detected language(s).
	subQueries = append(subQueries, d.buildLanguageFocusStrategies(original, terms)...)

	if len(subQueries) == 0 {
		return []SubQuery{{Query: original, Weight: 1.0}}
	}
	return subQueries
}

// buildNLAndQuery joins terms with implicit AND (FTS5 default), for a
// tight-recall strategy. Returns "" if fewer than 2 significant terms.
func (d *LegalStrategyDecomposer) buildNLAndQuery(terms []string) string {
	if len(terms) < 2 {
		return ""
	}
	limit := len(terms)
	if limit > NLAndTermLimit {
		limit = NLAndTermLimit
	}
	return strings.Join(terms[:limit], " ")
}

// buildNLOrQuery builds an OR query over the original terms plus their
// synonym expansions, widening recall across the corpus's languages.
func (d *LegalStrategyDecomposer) buildNLOrQuery(terms []string) string {
	expanded := d.expander.ExpandToTerms(strings.Join(terms, " "))
	if len(expanded) < 2 {
		return ""
	}
	limit := len(expanded)
	if limit > RerankTermLimit {
		limit = RerankTermLimit
	}
	return strings.Join(expanded[:limit], " OR ")
}

// buildAnchorPairStrategies returns one sub-query per LegalAnchorPairs
// entry whose both terms (or a synonym of either) appear in the query,
// phrased as a tight AND query, grounded in
// _build_anchor_pair_strategies/_pick_anchor_pairs.
func (d *LegalStrategyDecomposer) buildAnchorPairStrategies(terms []string) []SubQuery {
	termSet := make(map[string]bool, len(terms))
	for _, t := range terms {
		termSet[t] = true
	}

	var subQueries []SubQuery
	for _, pair := range LegalAnchorPairs {
		if d.matchesAnchorTerm(termSet, pair[0]) && d.matchesAnchorTerm(termSet, pair[1]) {
			subQueries = append(subQueries, SubQuery{
				Query:  pair[0] + " " + pair[1],
				Weight: 1.5,
			})
		}
	}
	return subQueries
}

// matchesAnchorTerm reports whether the anchor term, or any of its
// synonyms, appears in the query's term set.
func (d *LegalStrategyDecomposer) matchesAnchorTerm(termSet map[string]bool, anchor string) bool {
	if termSet[anchor] {
		return true
	}
	for _, syn := range GetSynonyms(anchor) {
		if termSet[syn] {
			return true
		}
	}
	return false
}

// buildLanguageFocusStrategies adds one sub-query per detected query
// language beyond the first, restricting that sub-query to the
// corresponding language via Hint — useful when a query mixes
// vocabulary from two of the corpus's languages (e.g. a French query
// using a German legal term of art), grounded in
// _build_language_focus_strategies/_build_language_focus_query.
func (d *LegalStrategyDecomposer) buildLanguageFocusStrategies(original string, terms []string) []SubQuery {
	langs := DetectQueryLanguages(original)
	if len(langs) < 2 {
		return nil
	}

	var subQueries []SubQuery
	queryText := strings.Join(terms, " ")
	for _, lang := range langs {
		subQueries = append(subQueries, SubQuery{
			Query:  queryText,
			Weight: 0.9,
			Hint:   lang,
		})
	}
	return subQueries
}

// Term-budget constants mirroring original_source's
// NL_AND_TERM_LIMIT/RERANK_TERM_LIMIT/MAX_NL_TOKENS.
const (
	NLAndTermLimit  = 8
	RerankTermLimit = 24
	MaxNLTokens     = 16
)

// Ensure LegalStrategyDecomposer implements QueryDecomposer interface.
var _ QueryDecomposer = (*LegalStrategyDecomposer)(nil)
