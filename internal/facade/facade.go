// Package facade implements the analytics operations the MCP surface
// exposes beyond plain search: resolving a decision by ID or docket,
// walking the citation graph, ranking leading cases, charting year-by-
// year trends, and looking up Fedlex statute text. It sits above
// internal/store, combining DecisionStore/GraphStore/StatutesStore into
// the request/response shapes the tool handlers return.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	caselawerrors "github.com/swiss-caselaw/caselawmcp/internal/errors"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// maxChainDepth bounds the recursive appeal-chain walk.
const maxChainDepth = 5

// chainFanout is the per-node edge limit at each depth of the walk.
const chainFanout = 5

// Facade exposes the analytics operations (find_citations,
// find_appeal_chain, find_leading_cases, analyze_legal_trend, get_law,
// search_laws, get_decision) backing the MCP tool surface. Graph and
// Statutes are optional dependencies: a nil value degrades each
// operation that needs it to a CaselawError rather than panicking.
type Facade struct {
	Decisions store.DecisionStore
	Graph     store.GraphStore
	Statutes  store.StatutesStore
	BM25      store.BM25Index
}

// New builds a Facade over the given stores. Graph, Statutes, and BM25
// may be nil when the corresponding optional database isn't deployed.
func New(decisions store.DecisionStore, graph store.GraphStore, statutes store.StatutesStore, bm25 store.BM25Index) *Facade {
	return &Facade{Decisions: decisions, Graph: graph, Statutes: statutes, BM25: bm25}
}

// resolveDecision mirrors get_decision_by_id's fallback chain: exact
// decision_id, then exact docket match (newest first), then partial
// docket match (newest first).
func (f *Facade) resolveDecision(ctx context.Context, id string) (*store.Decision, error) {
	if d, err := f.Decisions.GetDecision(ctx, id); err == nil && d != nil {
		return d, nil
	}
	if d, err := f.Decisions.GetDecisionByDocket(ctx, id, true); err == nil && d != nil {
		return d, nil
	}
	if d, err := f.Decisions.GetDecisionByDocket(ctx, id, false); err == nil && d != nil {
		return d, nil
	}
	return nil, caselawerrors.DecisionNotFound(id)
}

// GetDecision resolves a decision by canonical ID, exact docket number,
// or partial docket number, in that order (C8 get_decision).
func (f *Facade) GetDecision(ctx context.Context, id string) (*store.Decision, error) {
	if strings.TrimSpace(id) == "" {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInvalidInput, "id is required", nil)
	}
	return f.resolveDecision(ctx, id)
}

// CitationEdge is one directed citation edge enriched with the cited/
// citing decision's identifying fields, mirroring the joined rows
// _find_outgoing_citations/_find_incoming_citations return.
type CitationEdge struct {
	DecisionID   string
	DocketNumber string
	Court        string
	DecisionDate string
	Confidence   float64
}

// CitationsResult is the find_citations response (C8).
type CitationsResult struct {
	DecisionID string
	Direction  string
	Outgoing   []CitationEdge
	Incoming   []CitationEdge
}

// FindCitations returns the outgoing and/or incoming citations for a
// decision (C8 find_citations). limit clamps to [1,200], minConfidence
// to [0,1], matching the original tool's guardrails.
func (f *Facade) FindCitations(ctx context.Context, decisionID, direction string, minConfidence float64, limit int) (*CitationsResult, error) {
	if f.Graph == nil {
		return nil, caselawerrors.GraphUnavailable()
	}
	limit = clampInt(limit, 1, 200)
	minConfidence = clampFloat(minConfidence, 0.0, 1.0)
	if direction == "" {
		direction = "both"
	}

	decision, err := f.resolveDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	result := &CitationsResult{DecisionID: decision.DecisionID, Direction: direction}

	if direction == "both" || direction == "outgoing" {
		refs, err := f.Graph.OutgoingCitations(ctx, decision.DecisionID, minConfidence, limit)
		if err != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "outgoing citation lookup failed", err)
		}
		result.Outgoing = f.enrichCitationEdges(ctx, refs, true)
	}

	if direction == "both" || direction == "incoming" {
		refs, err := f.Graph.IncomingCitations(ctx, decision.DecisionID, minConfidence, limit)
		if err != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "incoming citation lookup failed", err)
		}
		result.Incoming = f.enrichCitationEdges(ctx, refs, false)
	}

	return result, nil
}

// enrichCitationEdges resolves the decision on the other end of each
// citation edge. outgoing selects TargetDecisionID (what was cited);
// incoming selects SourceDecisionID (who cited). A partner that no
// longer resolves is skipped rather than failing the whole request.
func (f *Facade) enrichCitationEdges(ctx context.Context, refs []*store.CitationReference, outgoing bool) []CitationEdge {
	edges := make([]CitationEdge, 0, len(refs))
	for _, r := range refs {
		partnerID := r.SourceDecisionID
		if outgoing {
			partnerID = r.TargetDecisionID
		}
		d, err := f.Decisions.GetDecision(ctx, partnerID)
		if err != nil || d == nil {
			slog.Debug("citation_partner_unresolved", slog.String("decision_id", partnerID))
			continue
		}
		edges = append(edges, CitationEdge{
			DecisionID:   d.DecisionID,
			DocketNumber: d.DocketNumber,
			Court:        d.Court,
			DecisionDate: d.DecisionDate,
			Confidence:   round3(r.Confidence),
		})
	}
	return edges
}

// AppealChainNode is one node discovered while walking the appeal
// chain, tagged with its relation to the decision that discovered it.
type AppealChainNode struct {
	DecisionID   string
	DocketNumber string
	Court        string
	Canton       string
	DecisionDate string
	Confidence   float64
	Relation     string // "prior_instance" | "subsequent_instance"
	RelatedTo    string // the decision_id that appealed/was appealed by this node
}

// AppealChainResult is the find_appeal_chain response (C8).
type AppealChainResult struct {
	DecisionID   string
	DocketNumber string
	Court        string
	DecisionDate string
	Chain        []AppealChainNode
}

// FindAppealChain walks the citation graph's is_prior_instance edges in
// both directions from decisionID: down to prior instances (what this
// decision appealed) and up to subsequent instances (what appealed
// this decision). Each direction keeps its own visited set, so a node
// found walking down is still reachable walking up (C8
// find_appeal_chain).
func (f *Facade) FindAppealChain(ctx context.Context, decisionID string, minConfidence float64) (*AppealChainResult, error) {
	if f.Graph == nil {
		return nil, caselawerrors.GraphUnavailable()
	}
	minConfidence = clampFloat(minConfidence, 0.0, 1.0)

	decision, err := f.resolveDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	result := &AppealChainResult{
		DecisionID:   decision.DecisionID,
		DocketNumber: decision.DocketNumber,
		Court:        decision.Court,
		DecisionDate: decision.DecisionDate,
	}

	visitedDown := map[string]bool{}
	visitedUp := map[string]bool{}
	f.walkChain(ctx, decision.DecisionID, "down", &result.Chain, minConfidence, visitedDown, 0)
	f.walkChain(ctx, decision.DecisionID, "up", &result.Chain, minConfidence, visitedUp, 0)

	sort.SliceStable(result.Chain, func(i, j int) bool {
		return result.Chain[i].DecisionDate < result.Chain[j].DecisionDate
	})

	return result, nil
}

func (f *Facade) walkChain(ctx context.Context, decisionID, direction string, chain *[]AppealChainNode, minConfidence float64, visited map[string]bool, depth int) {
	if depth > maxChainDepth {
		return
	}
	if visited[decisionID] {
		return
	}
	visited[decisionID] = true

	var refs []*store.CitationReference
	var err error
	if direction == "down" {
		refs, err = f.Graph.OutgoingCitations(ctx, decisionID, minConfidence, chainFanout)
	} else {
		refs, err = f.Graph.IncomingCitations(ctx, decisionID, minConfidence, chainFanout)
	}
	if err != nil {
		slog.Debug("appeal_chain_walk_failed", slog.String("direction", direction), slog.String("error", err.Error()))
		return
	}

	for _, r := range refs {
		if !r.IsPriorInstance {
			continue
		}
		var nextID string
		var relation string
		if direction == "down" {
			nextID = r.TargetDecisionID
			relation = "prior_instance"
		} else {
			nextID = r.SourceDecisionID
			relation = "subsequent_instance"
		}
		if visited[nextID] {
			continue
		}

		d, err := f.Decisions.GetDecision(ctx, nextID)
		if err != nil || d == nil {
			continue
		}

		*chain = append(*chain, AppealChainNode{
			DecisionID:   d.DecisionID,
			DocketNumber: d.DocketNumber,
			Court:        d.Court,
			Canton:       d.Canton,
			DecisionDate: d.DecisionDate,
			Confidence:   round3(r.Confidence),
			Relation:     relation,
			RelatedTo:    decisionID,
		})

		f.walkChain(ctx, nextID, direction, chain, minConfidence, visited, depth+1)
	}
}

// LeadingCase is a single ranked result of find_leading_cases.
type LeadingCase struct {
	Decision     *store.Decision
	CitationCount int
}

// LeadingCasesResult is the find_leading_cases response (C8).
type LeadingCasesResult struct {
	Query    string
	LawCode  string
	Article  string
	Results  []LeadingCase
}

// FindLeadingCases ranks decisions by incoming citation count (C8
// find_leading_cases). Three paths, matching the original tool:
//   - law_code+article given: statute-filtered, via GraphStore.MostCitedByStatute.
//   - query given (no statute): FTS-first, via BM25Index.Search, then
//     GraphStore.MostCitedAmong over the FTS hit set.
//   - neither given: global/court-filtered, via GraphStore.MostCitedGlobal.
func (f *Facade) FindLeadingCases(ctx context.Context, query, lawCode, article, court, dateFrom, dateTo string, limit int) (*LeadingCasesResult, error) {
	if f.Graph == nil {
		return nil, caselawerrors.GraphUnavailable()
	}
	limit = clampInt(limit, 1, 100)

	var counts map[string]int
	var err error

	switch {
	case lawCode != "" && article != "":
		counts, err = f.Graph.MostCitedByStatute(ctx, lawCode, article, court, dateFrom, dateTo, limit)
	case query != "":
		if f.BM25 == nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeCorpusUnavailable, "lexical index not available for query-scoped leading cases", nil)
		}
		hits, searchErr := f.BM25.Search(ctx, query, 5000)
		if searchErr != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeSearchFailed, "full-text lookup for leading cases failed", searchErr)
		}
		if len(hits) == 0 {
			return &LeadingCasesResult{Query: query, LawCode: lawCode, Article: article}, nil
		}
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.DocID
		}
		counts, err = f.Graph.MostCitedAmong(ctx, ids, limit)
	default:
		counts, err = f.Graph.MostCitedGlobal(ctx, court, dateFrom, dateTo, limit)
	}
	if err != nil {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "leading cases lookup failed", err)
	}

	type pair struct {
		id    string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for id, c := range counts {
		pairs = append(pairs, pair{id, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].id < pairs[j].id
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}

	results := make([]LeadingCase, 0, len(pairs))
	for _, p := range pairs {
		d, derr := f.Decisions.GetDecision(ctx, p.id)
		if derr != nil || d == nil {
			continue
		}
		results = append(results, LeadingCase{Decision: d, CitationCount: p.count})
	}

	return &LeadingCasesResult{Query: query, LawCode: lawCode, Article: article, Results: results}, nil
}

// YearCount is a single year's decision count in a trend series.
type YearCount struct {
	Year  int
	Count int
}

// TrendResult is the analyze_legal_trend response (C8).
type TrendResult struct {
	LawCode string
	Article string
	Query   string
	Years   []YearCount
	Total   int
}

// AnalyzeLegalTrend charts year-by-year decision counts for a statute,
// a text query, or both (C8 analyze_legal_trend). At least one of
// query/lawCode is required. When both a statute and a query are
// given, a year present in both paths takes the max of the two counts
// rather than their sum, since the FTS path's hits are a superset that
// would otherwise double-count decisions the statute path already
// found (original's take-max-when-both-paths-produce-a-year rule).
func (f *Facade) AnalyzeLegalTrend(ctx context.Context, query, lawCode, article, court, dateFrom, dateTo string) (*TrendResult, error) {
	if query == "" && lawCode == "" {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInvalidInput, "at least one of query or law_code is required", nil)
	}

	yearCounts := map[int]int{}
	usedStatute := lawCode != "" && article != ""

	if usedStatute {
		counts, err := f.Decisions.TrendByStatute(ctx, lawCode, article, court, dateFrom, dateTo)
		if err != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "statute trend query failed", err)
		}
		for y, c := range counts {
			yearCounts[y] = c
		}
	}

	if query != "" {
		counts, err := f.Decisions.TrendByQuery(ctx, query, court, dateFrom, dateTo)
		if err != nil {
			if len(yearCounts) == 0 {
				return nil, caselawerrors.New(caselawerrors.ErrCodeSearchFailed, "full-text trend query failed", err)
			}
		} else {
			for y, c := range counts {
				if usedStatute {
					if existing, ok := yearCounts[y]; ok && existing > c {
						continue
					}
				}
				yearCounts[y] = c
			}
		}
	}

	years := make([]int, 0, len(yearCounts))
	for y := range yearCounts {
		years = append(years, y)
	}
	sort.Ints(years)

	total := 0
	series := make([]YearCount, len(years))
	for i, y := range years {
		series[i] = YearCount{Year: y, Count: yearCounts[y]}
		total += yearCounts[y]
	}

	return &TrendResult{LawCode: lawCode, Article: article, Query: query, Years: series, Total: total}, nil
}

// LawResult is the get_law response (C8 get_law).
type LawResult struct {
	SRNumber          string
	Title             string
	Abbreviation      string
	ConsolidationDate string
	Articles          []*store.Article
	ArticleCount      int // set when no specific article was requested
}

// GetLaw resolves a law by SR number or abbreviation and returns either
// a specific article or the law's article list (C8 get_law). language
// selects which localized title/abbreviation/article text to return,
// falling back to German when the requested language is empty for a
// given field.
func (f *Facade) GetLaw(ctx context.Context, srNumber, abbreviation, article, language string) (*LawResult, error) {
	if f.Statutes == nil {
		return nil, caselawerrors.StatutesUnavailable()
	}
	if language == "" {
		language = "de"
	}

	if srNumber == "" && abbreviation != "" {
		law, err := f.Statutes.GetLawByAbbreviation(ctx, strings.ToUpper(abbreviation))
		if err != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "law lookup by abbreviation failed", err)
		}
		if law == nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeLawNotFound, fmt.Sprintf("no law found with abbreviation %q", abbreviation), nil)
		}
		srNumber = law.SRNumber
	}
	if srNumber == "" {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInvalidInput, "sr_number or abbreviation is required", nil)
	}

	law, err := f.Statutes.GetLawBySRNumber(ctx, srNumber)
	if err != nil {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "law lookup failed", err)
	}
	if law == nil {
		return nil, caselawerrors.New(caselawerrors.ErrCodeLawNotFound, fmt.Sprintf("no law found with SR number %q", srNumber), nil)
	}

	result := &LawResult{
		SRNumber:          law.SRNumber,
		Title:             languageFallback(titleByLanguage(law, language), law.TitleDE),
		Abbreviation:      languageFallback(abbrByLanguage(law, language), law.AbbrDE),
		ConsolidationDate: law.ConsolidationDate,
	}

	if article != "" {
		articles, err := f.Statutes.GetArticle(ctx, srNumber, article, language)
		if err != nil {
			return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "article lookup failed", err)
		}
		if len(articles) == 0 {
			// Normalize sub-paragraph references (e.g. "41a") with a prefix match.
			all, err := f.Statutes.ListArticles(ctx, srNumber, language)
			if err != nil {
				return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "article lookup failed", err)
			}
			for _, a := range all {
				if a.ArticleNum == article || strings.HasPrefix(a.ArticleNum, article) {
					articles = append(articles, a)
				}
			}
		}
		if len(articles) == 0 {
			return nil, caselawerrors.New(caselawerrors.ErrCodeArticleNotFound, fmt.Sprintf("no article %q found in %q", article, srNumber), nil)
		}
		result.Articles = articles
		return result, nil
	}

	articles, err := f.Statutes.ListArticles(ctx, srNumber, language)
	if err != nil {
		return nil, caselawerrors.New(caselawerrors.ErrCodeInternal, "article list failed", err)
	}
	result.Articles = articles
	result.ArticleCount = len(articles)
	return result, nil
}

// ArticleHit is one article match in a search_laws response.
type ArticleHit struct {
	SRNumber     string
	Abbreviation string
	ArticleNum   string
	Heading      string
	Snippet      string
}

// SearchLawsResult is the search_laws response (C8 search_laws).
type SearchLawsResult struct {
	Query   string
	Results []ArticleHit
}

// SearchLaws runs a full-text search over statute article text,
// optionally restricted to a single law, returning a highlighted
// excerpt per hit (C8 search_laws).
func (f *Facade) SearchLaws(ctx context.Context, query, srNumber, language string, limit int) (*SearchLawsResult, error) {
	if f.Statutes == nil {
		return nil, caselawerrors.StatutesUnavailable()
	}
	if strings.TrimSpace(query) == "" {
		return nil, caselawerrors.New(caselawerrors.ErrCodeQueryEmpty, "query is required", nil)
	}
	if language == "" {
		language = "de"
	}
	limit = clampInt(limit, 1, 50)

	articles, err := f.Statutes.SearchArticles(ctx, query, srNumber, language, limit)
	if err != nil {
		return nil, caselawerrors.New(caselawerrors.ErrCodeSearchFailed, "statute article search failed", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	hits := make([]ArticleHit, 0, len(articles))
	for _, a := range articles {
		abbr := a.Heading
		var law *store.Law
		if l, lerr := f.Statutes.GetLawBySRNumber(ctx, a.SRNumber); lerr == nil {
			law = l
		}
		abbrText := ""
		if law != nil {
			abbrText = languageFallback(abbrByLanguage(law, language), law.AbbrDE)
		}
		snippet, _ := search.BuildSnippet(a.Text, terms, 240)
		hits = append(hits, ArticleHit{
			SRNumber:     a.SRNumber,
			Abbreviation: abbrText,
			ArticleNum:   a.ArticleNum,
			Heading:      abbr,
			Snippet:      snippet,
		})
	}

	return &SearchLawsResult{Query: query, Results: hits}, nil
}

func titleByLanguage(l *store.Law, language string) string {
	switch language {
	case "fr":
		return l.TitleFR
	case "it":
		return l.TitleIT
	default:
		return l.TitleDE
	}
}

func abbrByLanguage(l *store.Law, language string) string {
	switch language {
	case "fr":
		return l.AbbrFR
	case "it":
		return l.AbbrIT
	default:
		return l.AbbrDE
	}
}

func languageFallback(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
