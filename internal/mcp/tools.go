package mcp

// DecisionOutput is the shared decision shape returned across tools.
type DecisionOutput struct {
	DecisionID   string `json:"decision_id"`
	Court        string `json:"court"`
	Canton       string `json:"canton,omitempty"`
	DocketNumber string `json:"docket_number"`
	Language     string `json:"language"`
	Title        string `json:"title,omitempty"`
	Regeste      string `json:"regeste,omitempty"`
	DecisionDate string `json:"decision_date"`
	URL          string `json:"url,omitempty"`
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query          string  `json:"query" jsonschema:"the search query: natural-language question, docket number, or statute citation"`
	Limit          int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Court          string  `json:"court,omitempty" jsonschema:"filter by court, e.g. bger, bvger"`
	Canton         string  `json:"canton,omitempty" jsonschema:"filter by canton abbreviation"`
	Language       string  `json:"language,omitempty" jsonschema:"filter by decision language: de, fr, it, rm, en"`
	DateFrom       string  `json:"date_from,omitempty" jsonschema:"restrict to decisions on or after this ISO date"`
	DateTo         string  `json:"date_to,omitempty" jsonschema:"restrict to decisions on or before this ISO date"`
	StatuteLawCode string  `json:"statute_law_code,omitempty" jsonschema:"restrict to decisions citing this law code, e.g. OR, ZGB"`
	StatuteArticle string  `json:"statute_article,omitempty" jsonschema:"article number, used together with statute_law_code"`
	Sort           string  `json:"sort,omitempty" jsonschema:"relevance ranking override: date_desc or date_asc"`
	BM25Only       bool    `json:"bm25_only,omitempty" jsonschema:"skip semantic/sparse channels and use keyword search only"`
	Explain        bool    `json:"explain,omitempty" jsonschema:"attach a per-signal score breakdown to each result"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

// SearchResultOutput is a single ranked decision with the scoring and
// presentation data a client needs to judge and cite it.
type SearchResultOutput struct {
	Decision     DecisionOutput `json:"decision"`
	Score        float64        `json:"score"`
	BM25Score    float64        `json:"bm25_score,omitempty"`
	VectorScore  float64        `json:"vector_score,omitempty"`
	SparseScore  float64        `json:"sparse_score,omitempty"`
	Snippet      string         `json:"snippet,omitempty"`
	MatchedTerms []string       `json:"matched_terms,omitempty"`
	InBothLists  bool           `json:"in_both_lists,omitempty"`
	MatchReason  string         `json:"match_reason,omitempty"`
}

// GetDecisionInput defines the input schema for the get_decision tool.
type GetDecisionInput struct {
	ID string `json:"id" jsonschema:"decision_id, exact docket number, or partial docket number"`
}

// GetDecisionOutput defines the output schema for the get_decision tool.
type GetDecisionOutput struct {
	Decision DecisionOutput `json:"decision"`
	FullText string         `json:"full_text,omitempty"`
}

// FindCitationsInput defines the input schema for the find_citations tool.
type FindCitationsInput struct {
	DecisionID    string  `json:"decision_id" jsonschema:"decision_id, exact docket number, or partial docket number"`
	Direction     string  `json:"direction,omitempty" jsonschema:"outgoing, incoming, or both (default both)"`
	MinConfidence float64 `json:"min_confidence,omitempty" jsonschema:"minimum citation-extraction confidence, 0 to 1"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum edges per direction, default 20, max 200"`
}

// CitationEdgeOutput is one citation edge in a find_citations response.
type CitationEdgeOutput struct {
	DecisionID   string  `json:"decision_id"`
	DocketNumber string  `json:"docket_number"`
	Court        string  `json:"court"`
	DecisionDate string  `json:"decision_date"`
	Confidence   float64 `json:"confidence"`
}

// FindCitationsOutput defines the output schema for the find_citations tool.
type FindCitationsOutput struct {
	DecisionID string                `json:"decision_id"`
	Direction  string                `json:"direction"`
	Outgoing   []CitationEdgeOutput  `json:"outgoing,omitempty"`
	Incoming   []CitationEdgeOutput  `json:"incoming,omitempty"`
}

// FindAppealChainInput defines the input schema for the find_appeal_chain tool.
type FindAppealChainInput struct {
	DecisionID    string  `json:"decision_id" jsonschema:"decision_id, exact docket number, or partial docket number"`
	MinConfidence float64 `json:"min_confidence,omitempty" jsonschema:"minimum citation-extraction confidence, 0 to 1"`
}

// AppealChainNodeOutput is one decision in a find_appeal_chain response.
type AppealChainNodeOutput struct {
	DecisionID   string  `json:"decision_id"`
	DocketNumber string  `json:"docket_number"`
	Court        string  `json:"court"`
	Canton       string  `json:"canton,omitempty"`
	DecisionDate string  `json:"decision_date"`
	Confidence   float64 `json:"confidence"`
	Relation     string  `json:"relation"`
	RelatedTo    string  `json:"related_to"`
}

// FindAppealChainOutput defines the output schema for the find_appeal_chain tool.
type FindAppealChainOutput struct {
	DecisionID   string                   `json:"decision_id"`
	DocketNumber string                   `json:"docket_number"`
	Court        string                   `json:"court"`
	DecisionDate string                   `json:"decision_date"`
	Chain        []AppealChainNodeOutput  `json:"chain"`
}

// FindLeadingCasesInput defines the input schema for the find_leading_cases tool.
type FindLeadingCasesInput struct {
	Query          string `json:"query,omitempty" jsonschema:"restrict to decisions matching this full-text query"`
	StatuteLawCode string `json:"statute_law_code,omitempty" jsonschema:"restrict to decisions citing this law code"`
	StatuteArticle string `json:"statute_article,omitempty" jsonschema:"article number, used together with statute_law_code"`
	Court          string `json:"court,omitempty" jsonschema:"filter by court"`
	DateFrom       string `json:"date_from,omitempty" jsonschema:"restrict to decisions on or after this ISO date"`
	DateTo         string `json:"date_to,omitempty" jsonschema:"restrict to decisions on or before this ISO date"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum results, default 10, max 100"`
}

// LeadingCaseOutput is one ranked decision in a find_leading_cases response.
type LeadingCaseOutput struct {
	Decision      DecisionOutput `json:"decision"`
	CitationCount int            `json:"citation_count"`
}

// FindLeadingCasesOutput defines the output schema for the find_leading_cases tool.
type FindLeadingCasesOutput struct {
	Query   string              `json:"query,omitempty"`
	LawCode string              `json:"statute_law_code,omitempty"`
	Article string              `json:"statute_article,omitempty"`
	Results []LeadingCaseOutput `json:"results"`
}

// AnalyzeLegalTrendInput defines the input schema for the analyze_legal_trend tool.
type AnalyzeLegalTrendInput struct {
	Query          string `json:"query,omitempty" jsonschema:"full-text query to chart over time"`
	StatuteLawCode string `json:"statute_law_code,omitempty" jsonschema:"statute law code to chart over time"`
	StatuteArticle string `json:"statute_article,omitempty" jsonschema:"article number, used together with statute_law_code"`
	Court          string `json:"court,omitempty" jsonschema:"filter by court"`
	DateFrom       string `json:"date_from,omitempty" jsonschema:"restrict to decisions on or after this ISO date"`
	DateTo         string `json:"date_to,omitempty" jsonschema:"restrict to decisions on or before this ISO date"`
}

// YearCountOutput is a single year's decision count.
type YearCountOutput struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// AnalyzeLegalTrendOutput defines the output schema for the analyze_legal_trend tool.
type AnalyzeLegalTrendOutput struct {
	LawCode string            `json:"statute_law_code,omitempty"`
	Article string            `json:"statute_article,omitempty"`
	Query   string            `json:"query,omitempty"`
	Years   []YearCountOutput `json:"years"`
	Total   int               `json:"total"`
}

// GetLawInput defines the input schema for the get_law tool.
type GetLawInput struct {
	SRNumber     string `json:"sr_number,omitempty" jsonschema:"Fedlex systematic number, e.g. 220"`
	Abbreviation string `json:"abbreviation,omitempty" jsonschema:"law abbreviation, e.g. OR, ZGB (used when sr_number is unknown)"`
	Article      string `json:"article,omitempty" jsonschema:"specific article number; omit to list all articles"`
	Language     string `json:"language,omitempty" jsonschema:"de, fr, or it (default de)"`
}

// ArticleOutput is a single statute article.
type ArticleOutput struct {
	ArticleNum string `json:"article_num"`
	Heading    string `json:"heading,omitempty"`
	Text       string `json:"text,omitempty"`
}

// GetLawOutput defines the output schema for the get_law tool.
type GetLawOutput struct {
	SRNumber          string          `json:"sr_number"`
	Title             string          `json:"title"`
	Abbreviation      string          `json:"abbreviation,omitempty"`
	ConsolidationDate string          `json:"consolidation_date,omitempty"`
	Articles          []ArticleOutput `json:"articles"`
	ArticleCount      int             `json:"article_count,omitempty"`
}

// SearchLawsInput defines the input schema for the search_laws tool.
type SearchLawsInput struct {
	Query    string `json:"query" jsonschema:"full-text query over statute article text"`
	SRNumber string `json:"sr_number,omitempty" jsonschema:"restrict search to a single law"`
	Language string `json:"language,omitempty" jsonschema:"de, fr, or it (default de)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum results, default 10, max 50"`
}

// ArticleHitOutput is one statute-article search hit.
type ArticleHitOutput struct {
	SRNumber     string `json:"sr_number"`
	Abbreviation string `json:"abbreviation,omitempty"`
	ArticleNum   string `json:"article_num"`
	Heading      string `json:"heading,omitempty"`
	Snippet      string `json:"snippet,omitempty"`
}

// SearchLawsOutput defines the output schema for the search_laws tool.
type SearchLawsOutput struct {
	Query   string             `json:"query"`
	Results []ArticleHitOutput `json:"results"`
}

// CorpusStatusInput defines the input schema for the corpus_status tool (no parameters).
type CorpusStatusInput struct{}

// CorpusStatusOutput reports the state of the loaded decisions/BM25/
// vector/graph/statutes stores and the active embedder.
type CorpusStatusOutput struct {
	DecisionCount    int    `json:"decision_count"`
	VectorCount      int    `json:"vector_count"`
	BM25Available    bool   `json:"bm25_available"`
	GraphAvailable   bool   `json:"graph_available"`
	StatutesAvailable bool  `json:"statutes_available"`
	EmbedderProvider string `json:"embedder_provider"`
	EmbedderModel    string `json:"embedder_model"`
	EmbedderReady    bool   `json:"embedder_ready"`
	Dimensions       int    `json:"dimensions"`
}
