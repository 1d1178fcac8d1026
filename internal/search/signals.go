package search

import (
	"math"
	"sort"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// Signal weights for the multi-signal reranking formula, grounded in
// original_source's _rerank_rows linear combination. Each weight controls
// how much a single evidence source contributes to FinalScore; together
// they replace a single BM25/vector blend with a richer relevance model
// tuned for Swiss caselaw retrieval (exact citations, doctrinal coverage,
// the citation graph, procedural/court context, and language match).
const (
	DocketExactWeight             = 6.0
	DocketPartialWeight           = 2.0
	TitleCoverageWeight           = 3.0
	RegesteCoverageWeight         = 2.2
	SnippetCoverageWeight         = 0.8
	ExpandedRegesteCoverageWeight = 1.2
	ExpandedTitleCoverageWeight   = 0.8
	PhraseHitWeight               = 1.8
	RRFWeight                     = 32.0
	StrategyHitWeight             = 0.18
	// MaxStrategyHits caps the strategy_hits term's contribution so a
	// query matched by every multi-query sub-strategy doesn't dominate
	// the other signals.
	MaxStrategyHits       = 8
	StatuteSignalWeight   = 1.5
	CitationSignalWeight  = 1.2
	AuthoritySignalWeight = 0.8
	LocalRefSignalWeight  = 0.5
	CourtPriorWeight      = 0.6
	CourtIntentWeight     = 0.6
	ProcedureWeight       = 0.5
	LanguageWeight        = 0.4

	// VectorSignalWeight/SparseSignalWeight scale the dense-vector and
	// learned-sparse channel contributions independent of RRF's blended
	// ranking, so a strong semantic match still surfaces even when its
	// BM25 rank is poor.
	VectorSignalWeight = 3.0
	SparseSignalWeight = 2.5

	// MaxSnippetLen caps the highlighted passage length returned to callers.
	MaxSnippetLen = 500

	// HighCourtAuthorityBoost scales AuthoritySignal for decisions from
	// the corpus's highest-instance courts.
	HighCourtAuthorityBoost = 1.4
)

// highCourts are the Swiss courts of last instance, whose decisions
// carry outsized precedential authority, grounded in
// original_source's HIGH_COURTS.
var highCourts = map[string]bool{
	"bger": true, "bge": true, "bvger": true, "bstger": true, "egmr": true,
}

// decisionIntentTerms signal that the user is looking for a specific
// court's ruling ("Bundesgerichtsentscheid", "arret du tribunal federal"),
// grounded in original_source's DECISION_INTENT_TERMS.
var decisionIntentTerms = []string{
	"bundesgericht", "bundesgerichts", "tribunal federal", "tribunale federale",
	"bundesverwaltungsgericht", "tribunal administratif federal",
	"bundesstrafgericht", "tribunal penal federal",
}

// acceleratedProcedureTerms signal the query is about the accelerated
// asylum procedure, grounded in ACCELERATED_PROCEDURE_TERMS.
var acceleratedProcedureTerms = []string{
	"beschleunigt", "beschleunigtes", "verkurzt", "verkurzte",
	"schnellverfahren", "procedure acceleree", "procedura accelerata",
}

// RerankSignals computes the multi-signal reranked score for every
// candidate and returns them sorted by FinalScore descending (or by
// DecisionDate when opts.Sort requests a date ordering), grounded in
// original_source's _rerank_rows. Candidates must already carry
// GraphSignals (populated by the citation-graph enrichment step) and a
// Decision record; RerankSignals itself performs no I/O.
//
// strategyHits optionally maps DecisionID to how many multi-query
// sub-queries surfaced it (MultiFusedResult.SubQueryHits); nil is
// treated as zero hits for every candidate.
func RerankSignals(query string, candidates []*SearchResult, opts SearchOptions, strategyHits map[string]int) []*SearchResult {
	if len(candidates) == 0 {
		return candidates
	}

	terms := rankTerms(query)
	expandedTerms := NewQueryExpander().ExpandToTerms(query)
	queryLangs := DetectQueryLanguages(query)
	phrase := strings.ToLower(strings.TrimSpace(query))
	wantsCourtIntent := containsAny(strings.ToLower(query), decisionIntentTerms)
	wantsProcedure := containsAny(strings.ToLower(query), acceleratedProcedureTerms)

	for _, r := range candidates {
		hits := 0
		if strategyHits != nil && r.Decision != nil {
			hits = strategyHits[r.Decision.DecisionID]
		}
		explain := computeExplain(query, terms, expandedTerms, phrase, queryLangs, wantsCourtIntent, wantsProcedure, r, opts, hits)
		r.Explain = explain
		r.Score = explain.FinalScore
		if r.Snippet == "" && r.Decision != nil {
			snippet, highlights := BuildSnippet(r.Decision.FullText, terms, MaxSnippetLen)
			r.Snippet = snippet
			r.Highlights = highlights
		}
	}

	applySortOverride(candidates, opts.Sort)
	return candidates
}

// computeExplain builds the per-signal score breakdown for one candidate.
func computeExplain(
	query string,
	terms []string,
	expandedTerms []string,
	phrase string,
	queryLangs []string,
	wantsCourtIntent bool,
	wantsProcedure bool,
	r *SearchResult,
	opts SearchOptions,
	strategyHits int,
) *ExplainData {
	e := &ExplainData{}
	d := r.Decision

	// r.Score still holds the fused RRF score at this point (RerankSignals
	// overwrites it with FinalScore only after computeExplain returns).
	// r.BM25Score is the already-negated bm25() value (store.BM25Result:
	// higher is better), so the raw-score term is a direct addition, not
	// a subtraction.
	e.BM25Component = r.BM25Score
	e.RRFContribution = RRFWeight * r.Score
	e.StrategyHits = strategyHits
	if strategyHits > 0 {
		capped := strategyHits
		if capped > MaxStrategyHits {
			capped = MaxStrategyHits
		}
		e.StrategyHitsSignal = StrategyHitWeight * float64(capped)
	}

	if d == nil {
		e.FinalScore = round4(e.BM25Component + e.RRFContribution + e.StrategyHitsSignal)
		return e
	}

	docket := strings.ToUpper(strings.TrimSpace(d.DocketNumber))
	upperQuery := strings.ToUpper(strings.TrimSpace(query))
	if IsDocketShaped(query) {
		if docket == upperQuery {
			e.DocketExactHit = DocketExactWeight
		} else if docket != "" && strings.Contains(docket, upperQuery) {
			e.DocketPartialHit = DocketPartialWeight
		}
	}

	titleLower := strings.ToLower(d.Title)
	regesteLower := strings.ToLower(d.Regeste)
	fullTextLower := strings.ToLower(d.FullText)

	e.TitleCoverage = TitleCoverageWeight * termCoverage(terms, titleLower)
	e.RegesteCoverage = RegesteCoverageWeight * termCoverage(terms, regesteLower)
	e.SnippetCoverage = SnippetCoverageWeight * termCoverage(terms, fullTextLower)
	e.ExpandedTitleCoverage = ExpandedTitleCoverageWeight * termCoverage(expandedTerms, titleLower)
	e.ExpandedRegesteCoverage = ExpandedRegesteCoverageWeight * termCoverage(expandedTerms, regesteLower)

	if phrase != "" && (strings.Contains(titleLower, phrase) ||
		strings.Contains(regesteLower, phrase)) {
		e.PhraseHit = PhraseHitWeight
	}

	if opts.StatuteLawCode != "" && r.GraphSignals.StatuteMentions > 0 {
		e.StatuteSignal = StatuteSignalWeight * math.Log1p(r.GraphSignals.StatuteMentions)
	}
	if r.GraphSignals.QueryCitationHits > 0 {
		e.CitationSignal = CitationSignalWeight * math.Log1p(r.GraphSignals.QueryCitationHits)
	}
	if r.GraphSignals.IncomingCitations > 0 {
		authority := AuthoritySignalWeight * math.Log1p(r.GraphSignals.IncomingCitations)
		if highCourts[strings.ToLower(d.Court)] {
			authority *= HighCourtAuthorityBoost
		}
		e.AuthoritySignal = authority
	}

	if opts.Court != "" && strings.EqualFold(opts.Court, d.Court) {
		e.LocalRefSignal = LocalRefSignalWeight
	}

	if highCourts[strings.ToLower(d.Court)] {
		e.CourtPriorSignal = CourtPriorWeight
	}
	if wantsCourtIntent && highCourts[strings.ToLower(d.Court)] {
		e.CourtIntentSignal = CourtIntentWeight
	}

	if wantsProcedure && containsAny(fullTextLower, acceleratedProcedureTerms) {
		e.ProcedureSignal = ProcedureWeight
	}

	for _, lang := range queryLangs {
		if strings.EqualFold(lang, d.Language) {
			e.LanguageSignal = LanguageWeight
			break
		}
	}

	e.VectorSignal = VectorSignalWeight * r.VecScore
	e.SparseSignal = SparseSignalWeight * r.SparseScore

	e.FinalScore = round4(
		e.BM25Component + e.DocketExactHit + e.DocketPartialHit +
			e.TitleCoverage + e.RegesteCoverage + e.SnippetCoverage +
			e.ExpandedRegesteCoverage + e.ExpandedTitleCoverage + e.PhraseHit +
			e.RRFContribution + e.StrategyHitsSignal +
			e.StatuteSignal + e.CitationSignal + e.AuthoritySignal + e.LocalRefSignal +
			e.CourtPriorSignal + e.CourtIntentSignal + e.ProcedureSignal + e.LanguageSignal +
			e.VectorSignal + e.SparseSignal + e.CrossEncoderBoost,
	)
	return e
}

// ApplyCrossEncoderBoost folds an optional cross-encoder reranker's
// scores into already-signal-ranked results, grounded in
// _rerank_rows' final cross-encoder boost step. boosts maps DecisionID
// to the cross-encoder's relevance score (already normalized 0-1).
func ApplyCrossEncoderBoost(results []*SearchResult, boosts map[string]float64, weight float64) {
	if len(boosts) == 0 {
		return
	}
	for _, r := range results {
		if r.Decision == nil {
			continue
		}
		if score, ok := boosts[r.Decision.DecisionID]; ok {
			boost := weight * score
			r.CrossEncoderBoostApplied(boost)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// CrossEncoderBoostApplied folds a cross-encoder boost into both Score
// and, when present, the Explain breakdown.
func (r *SearchResult) CrossEncoderBoostApplied(boost float64) {
	r.Score = round4(r.Score + boost)
	if r.Explain != nil {
		r.Explain.CrossEncoderBoost = boost
		r.Explain.FinalScore = r.Score
	}
}

// applySortOverride re-sorts by DecisionDate when the caller requested a
// chronological ordering instead of relevance, grounded in
// _rerank_rows' sort-order override.
func applySortOverride(results []*SearchResult, sortMode string) {
	switch sortMode {
	case "date_desc":
		sort.SliceStable(results, func(i, j int) bool {
			return decisionDate(results[i]) > decisionDate(results[j])
		})
	case "date_asc":
		sort.SliceStable(results, func(i, j int) bool {
			return decisionDate(results[i]) < decisionDate(results[j])
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
}

func decisionDate(r *SearchResult) string {
	if r.Decision == nil {
		return ""
	}
	return r.Decision.DecisionDate
}

// rankTerms tokenizes and bounds the query's significant terms for
// coverage scoring, grounded in _extract_rank_terms/RERANK_TERM_LIMIT.
func rankTerms(query string) []string {
	terms := store.TokenizeLegalText(query)
	if len(terms) > RerankTermLimit {
		terms = terms[:RerankTermLimit]
	}
	return terms
}

// termCoverage returns the fraction of terms present in text (already
// lowercased), grounded in _expand_rank_terms_for_match's coverage
// computation.
func termCoverage(terms []string, text string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// BuildSnippet selects the passage of fullText most relevant to terms
// and returns it alongside the rune-offset ranges of matched terms
// within that passage, grounded in _rerank_rows' snippet selection.
func BuildSnippet(fullText string, terms []string, maxLen int) (string, []Range) {
	if fullText == "" {
		return "", nil
	}

	runes := []rune(fullText)
	lower := strings.ToLower(fullText)

	bestStart := 0
	bestScore := -1
	window := maxLen
	if window <= 0 || window > len(runes) {
		window = len(runes)
	}

	// Slide a window in term-sized steps and keep the densest-match span.
	step := window / 2
	if step == 0 {
		step = 1
	}
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		segment := lower[byteOffset(fullText, start):byteOffset(fullText, end)]
		score := 0
		for _, t := range terms {
			if strings.Contains(segment, t) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
		if end == len(runes) {
			break
		}
	}

	end := bestStart + window
	if end > len(runes) {
		end = len(runes)
	}
	snippet := string(runes[bestStart:end])

	var highlights []Range
	snippetLower := strings.ToLower(snippet)
	for _, t := range terms {
		if t == "" {
			continue
		}
		idx := 0
		for {
			pos := strings.Index(snippetLower[idx:], t)
			if pos < 0 {
				break
			}
			absPos := idx + pos
			startRune := len([]rune(snippet[:absPos]))
			endRune := startRune + len([]rune(t))
			highlights = append(highlights, Range{Start: startRune, End: endRune})
			idx = absPos + len(t)
		}
	}

	return snippet, highlights
}

// byteOffset converts a rune index into s to the corresponding byte offset.
func byteOffset(s string, runeIdx int) int {
	if runeIdx <= 0 {
		return 0
	}
	count := 0
	for i := range s {
		if count == runeIdx {
			return i
		}
		count++
	}
	return len(s)
}
