// Package search implements the hybrid retrieval/reranking pipeline over
// the Swiss caselaw corpus: lexical (BM25) + dense-vector (KNN) + learned-
// sparse candidate generation, Reciprocal Rank Fusion, citation-graph
// signal enrichment, and multi-signal reranking with an optional
// cross-encoder boost.
package search

import (
	"context"
	"time"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// SearchEngine provides hybrid search over the decisions corpus.
type SearchEngine interface {
	// Search executes a hybrid search query and returns ranked decisions.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)

	// Index adds decisions to the BM25, vector, and sparse indices.
	Index(ctx context.Context, decisions []*store.Decision) error

	// Delete removes decisions from all indices.
	Delete(ctx context.Context, decisionIDs []string) error

	// Stats returns engine statistics.
	Stats() *EngineStats

	// Close releases all resources.
	Close() error
}

// SearchOptions controls a single search call: retrieval filters, result
// shaping, and debugging/observability toggles.
type SearchOptions struct {
	Limit  int
	Offset int

	// Court restricts results to a single court (e.g. "bger", "bvger").
	Court string
	// Canton restricts results to a single canton abbreviation.
	Canton string
	// Language restricts results to a single decision language (de/fr/it/rm/en).
	Language string
	// DateFrom/DateTo bound decision_date (inclusive, ISO yyyy-mm-dd).
	DateFrom string
	DateTo   string
	// StatuteLawCode/StatuteArticle, when both set, restrict results to
	// decisions citing the given law article (joins through GraphStore).
	StatuteLawCode string
	StatuteArticle string

	// Sort overrides relevance ranking: "", "date_desc", "date_asc".
	Sort string

	// Weights overrides the fusion weights the classifier would otherwise
	// pick (nil means "let the classifier decide").
	Weights *Weights

	// BM25Only skips the vector/sparse channels and cross-encoder step —
	// used for the degraded path when the embedder is unavailable or the
	// stored index dimension no longer matches the active embedder.
	BM25Only bool

	// Explain attaches ExplainData (per-signal score breakdown) to results.
	Explain bool
}

// Weights controls how much each retrieval channel contributes to the
// Reciprocal Rank Fusion score (C5).
type Weights struct {
	BM25     float64
	Semantic float64
	Sparse   float64
}

// DefaultWeights returns the baseline fusion weights for a mixed query.
func DefaultWeights() Weights {
	return Weights{BM25: 0.45, Semantic: 0.40, Sparse: 0.15}
}

// QueryType classifies a query's retrieval intent (C2).
type QueryType int

const (
	// QueryTypeLexical is a docket number, statute citation, or quoted
	// phrase — exact/keyword matching dominates.
	QueryTypeLexical QueryType = iota
	// QueryTypeSemantic is a natural-language question seeking a legal
	// concept — dense retrieval dominates.
	QueryTypeSemantic
	// QueryTypeMixed is anything in between.
	QueryTypeMixed
)

func (t QueryType) String() string {
	switch t {
	case QueryTypeLexical:
		return "lexical"
	case QueryTypeSemantic:
		return "semantic"
	default:
		return "mixed"
	}
}

// WeightsForQueryType returns the channel weights tuned for a query type.
func WeightsForQueryType(qt QueryType) Weights {
	switch qt {
	case QueryTypeLexical:
		return Weights{BM25: 0.70, Semantic: 0.15, Sparse: 0.15}
	case QueryTypeSemantic:
		return Weights{BM25: 0.25, Semantic: 0.55, Sparse: 0.20}
	default:
		return DefaultWeights()
	}
}

// Classifier determines query intent and the resulting fusion weights.
type Classifier interface {
	Classify(ctx context.Context, query string) (QueryType, Weights, error)
}

// Range is a half-open [Start, End) rune offset into a text field, used
// to mark a highlighted span in a snippet (C7).
type Range struct {
	Start int
	End   int
}

// GraphSignalSummary is the citation-graph contribution to a result's
// final score, surfaced for transparency/debugging.
type GraphSignalSummary struct {
	StatuteMentions   float64
	QueryCitationHits float64
	IncomingCitations float64
}

// SearchResult is a single ranked decision with the scoring breakdown and
// presentation data the MCP surface returns.
type SearchResult struct {
	Decision *store.Decision

	Score      float64 // final reranked score
	BM25Score  float64
	VecScore   float64
	SparseScore float64
	BM25Rank   int
	VecRank    int

	InBothLists  bool
	MatchedTerms []string

	// Snippet is the best passage selected from FullText around the
	// query terms (C7), with Highlights marking matched spans within it.
	Snippet    string
	Highlights []Range

	GraphSignals GraphSignalSummary

	Explain     *ExplainData
	ExplainMeta *ExplainMeta
}

// EngineStats reports index-level statistics for `caselaw status`.
type EngineStats struct {
	BM25Stats     *store.IndexStats
	VectorCount   int
	DecisionCount int
}

// EngineConfig holds tunables for the search engine.
type EngineConfig struct {
	DefaultLimit   int
	MaxLimit       int
	DefaultWeights Weights
	RRFConstant    int
	SearchTimeout  time.Duration
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:   10,
		MaxLimit:       200,
		DefaultWeights: DefaultWeights(),
		RRFConstant:    DefaultRRFConstant,
		SearchTimeout:  10 * time.Second,
	}
}

// ExplainData captures the per-signal contributions behind a result's
// final score, mirroring the formula in signals.go.
type ExplainData struct {
	BM25Component           float64
	DocketExactHit          float64
	DocketPartialHit        float64
	TitleCoverage           float64
	RegesteCoverage         float64
	SnippetCoverage         float64
	ExpandedRegesteCoverage float64
	ExpandedTitleCoverage   float64
	PhraseHit               float64
	RRFContribution         float64
	StrategyHits            int
	StrategyHitsSignal      float64
	StatuteSignal     float64
	CitationSignal    float64
	AuthoritySignal   float64
	LocalRefSignal    float64
	CourtPriorSignal  float64
	CourtIntentSignal float64
	ProcedureSignal   float64
	LanguageSignal    float64
	VectorSignal      float64
	SparseSignal      float64
	CrossEncoderBoost float64
	FinalScore        float64
}

// ExplainMeta captures request-level debugging context (channel result
// counts, resolved weights, decomposition) attached to the first result
// when SearchOptions.Explain is set.
type ExplainMeta struct {
	Query                string
	BM25ResultCount      int
	VectorResultCount    int
	SparseResultCount    int
	Weights              Weights
	RRFConstant          int
	BM25Only             bool
	DimensionMismatch    bool
	MultiQueryDecomposed bool
	SubQueries           []string
}
