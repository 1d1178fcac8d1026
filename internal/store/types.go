// Package store provides the persistence layer for the caselaw research
// engine: a lexical (BM25) index, a dense-vector (HNSW) index, a
// relational decisions/metadata store, and the optional citation-graph
// and statutes stores.
package store

import (
	"context"
	"fmt"
	"time"
)

// Decision represents a single Swiss court decision as stored in the
// corpus (C1). FullText is only populated when explicitly requested —
// search results carry Snippet instead to keep response payloads small.
type Decision struct {
	DecisionID    string // canonical ID, e.g. "bger|4a_123/2021|20211215"
	Court         string // BGer, BVGer, BStGer, BPatGer, ...
	Canton        string
	DocketNumber  string // raw docket number as published
	Language      string // de, fr, it, rm, en
	Title         string
	Regeste       string // headnote / leitsatz
	FullText      string
	DecisionDate  string // ISO yyyy-mm-dd
	URL           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatuteReference is an Art./Artikel reference extracted from or cited
// within a decision (C1 data model).
type StatuteReference struct {
	DecisionID string
	LawCode    string // e.g. "ZGB", "OR", "StGB"
	Article    string // e.g. "41", "41a"
	Paragraph  string // Abs./al./cpv./co. value, may be empty
	Mentions   int
}

// CitationReference is a directed edge in the citation graph: Source
// cites Target with some confidence (C1 data model, C5 graph signal).
type CitationReference struct {
	SourceDecisionID string
	TargetDecisionID string
	Confidence       float64
	IsPriorInstance  bool // true when Target is a lower-instance decision of Source's appeal chain
}

// DecisionStore persists decision records, statute references, and
// provides the relational lookups the analytics facade (C8) needs.
// Renamed/generalized from the teacher's chunk/file/project-shaped
// MetadataStore to the decision-shaped equivalent.
type DecisionStore interface {
	// SaveDecisions upserts a batch of decisions.
	SaveDecisions(ctx context.Context, decisions []*Decision) error

	// GetDecision resolves a decision by its canonical ID.
	GetDecision(ctx context.Context, decisionID string) (*Decision, error)

	// GetDecisionByDocket resolves a decision by exact or partial docket
	// match, newest decision first (ties broken by decision_date DESC),
	// mirroring the resolution order the analytics facade's
	// get_decision operation uses when the exact ID lookup misses.
	GetDecisionByDocket(ctx context.Context, docket string, exact bool) (*Decision, error)

	// FindDecisionsByDocketNormalized returns every decision whose docket
	// number normalizes to the given key, newest first, capped at limit.
	// Used by the docket fast path to match all separator permutations of
	// a docket query in a single lookup.
	FindDecisionsByDocketNormalized(ctx context.Context, normalized string, limit int) ([]*Decision, error)

	// FindDocketFamily returns decisions sharing courtPrefix and year in
	// their docket number, with a serial within radius of targetSerial,
	// ordered by closeness and capped at limit (docket-family backfill,
	// spec §4.4.1).
	FindDocketFamily(ctx context.Context, courtPrefix, year string, targetSerial, radius, limit int) ([]*Decision, error)

	// ListCourts returns the distinct set of courts present in the corpus.
	ListCourts(ctx context.Context) ([]string, error)

	// CountDecisions returns the total number of decisions in the corpus.
	CountDecisions(ctx context.Context) (int, error)

	// SaveStatuteReferences upserts statute references extracted for a decision.
	SaveStatuteReferences(ctx context.Context, refs []*StatuteReference) error

	// FindDecisionsByStatute returns decision IDs citing a given law/article,
	// used by find_leading_cases and analyze_legal_trend (C8).
	FindDecisionsByStatute(ctx context.Context, lawCode, article string) ([]string, error)

	// TrendByStatute returns year -> count of decisions citing a given
	// law/article, filtered optionally by court and date range.
	TrendByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string) (map[int]int, error)

	// TrendByQuery returns year -> count of decisions matching a
	// full-text query, filtered optionally by court and date range.
	TrendByQuery(ctx context.Context, query, court, dateFrom, dateTo string) (map[int]int, error)

	// State operations (key-value store for runtime/index state).
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// IndexCheckpoint represents the saved state of a corpus (re)index
// operation, enabling resumable builds of the FTS/vector/graph indexes.
type IndexCheckpoint struct {
	Stage         string // "fts", "vector", "sparse", "graph", "complete"
	Total         int
	Indexed       int
	Timestamp     time.Time
	EmbedderModel string
}

// IndexInfo summarizes the state of the on-disk indexes for the
// `caselaw index info` command.
type IndexInfo struct {
	Location        string
	DecisionCount   int
	IndexSizeBytes  int64
	BM25SizeBytes   int64
	VectorSizeBytes int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	CurrentModel      string
	CurrentDimensions int
	Compatible        bool
}

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

const (
	// StateKeyIndexDimension stores the embedding dimension used for the index.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index.
	StateKeyIndexModel = "index_embedding_model"
)

// Document represents a document to be indexed in the lexical (BM25) index.
// Fields map onto the decisions_fts column set: a document is one
// decision, with per-field text so the index can apply per-column BM25
// weights (C4.1).
type Document struct {
	ID           string // DecisionID
	Court        string
	Canton       string
	DocketNumber string
	Language     string
	Title        string
	Regeste      string
	FullText     string
}

// BM25Result represents a single lexical search result.
type BM25Result struct {
	DocID        string
	Score        float64 // raw bm25() score — lower is better (SQLite FTS5 convention)
	MatchedTerms []string
}

// IndexStats provides statistics about the BM25 index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search over the decisions corpus using the
// BM25 algorithm, with independently weighted columns (C4.1).
type BM25Index interface {
	// Index adds documents to the index.
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs in the index (for consistency checks).
	AllIDs() ([]string, error)

	// Stats returns index statistics.
	Stats() *IndexStats

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the BM25 index, including the per-column weight
// vector resolved in SPEC_FULL.md's "Resolved ambiguities" section.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64

	// B is the length normalization parameter (default: 0.75).
	B float64

	// StopWords is a list of words to filter out during tokenization.
	StopWords []string

	// MinTokenLength is minimum token length to index (default: 2).
	MinTokenLength int

	// ColumnWeights assigns a bm25() weight per decisions_fts column.
	// Keys: decision_id, court, canton, docket_number, language, title,
	// regeste, full_text.
	ColumnWeights map[string]float64
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultLegalStopWords,
		MinTokenLength: 2,
		ColumnWeights:  DefaultColumnWeights(),
	}
}

// DefaultColumnWeights returns the per-column bm25() weight vector.
// regeste/full_text/title take the values spec.md names explicitly;
// the remaining columns keep the non-named original weights (see
// SPEC_FULL.md, "Resolved ambiguities" #1).
func DefaultColumnWeights() map[string]float64 {
	return map[string]float64{
		"decision_id":   0.8,
		"court":         0.8,
		"canton":        0.8,
		"docket_number": 1.2,
		"language":      0.8,
		"title":         2.0,
		"regeste":       6.0,
		"full_text":     5.0,
	}
}

// DefaultLegalStopWords contains structural/procedural Swiss-legal terms
// too common to be useful lexical discriminators.
var DefaultLegalStopWords = []string{
	"urteil", "beschluss", "verfügung", "entscheid", "sachverhalt",
	"erwägung", "dispositiv", "arrêt", "décision", "jugement",
	"sentenza", "fait", "beschwerde", "berufung", "rekurs", "klage",
	"recours", "antrag", "begründung",
}

// VectorResult represents a single dense-vector search result.
type VectorResult struct {
	ID       string  // DecisionID
	Distance float32 // lower is more similar (0-2 for cosine)
	Score    float32 // normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	Dimensions     int
	Quantization   string // "f32", "f16", "i8"
	Metric         string // "cos", "l2"
	M              int    // HNSW max connections per layer
	EfConstruction int    // HNSW build-time search width
	EfSearch       int    // HNSW query-time search width
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides dense KNN semantic search (C4.2) using HNSW.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors to a query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks).
	AllIDs() []string

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// SparseResult represents a single learned-sparse retrieval hit.
type SparseResult struct {
	ID    string
	Score float64
}

// SparseIndex provides the learned-sparse retrieval channel (C4.3):
// token -> postings list of (decisionID, weight).
type SparseIndex interface {
	Index(ctx context.Context, decisionID string, termWeights map[string]float64) error
	Search(ctx context.Context, queryTerms map[string]float64, k int) ([]*SparseResult, error)
	Delete(ctx context.Context, decisionIDs []string) error
	Close() error
}

// GraphStore provides citation-graph lookups (C5 enrichment, C8
// find_citations/find_appeal_chain/find_leading_cases). It is an
// optional dependency — callers must handle a nil GraphStore by
// degrading gracefully rather than failing the whole request.
type GraphStore interface {
	OutgoingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*CitationReference, error)
	IncomingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*CitationReference, error)
	CountIncoming(ctx context.Context, decisionID string) (int, error)
	MostCitedByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string, limit int) (map[string]int, error)
	MostCitedGlobal(ctx context.Context, court, dateFrom, dateTo string, limit int) (map[string]int, error)
	MostCitedAmong(ctx context.Context, decisionIDs []string, limit int) (map[string]int, error)
	DecisionsForStatute(ctx context.Context, lawCode, article string) ([]string, error)
	Close() error
}

// Law is a single Fedlex-derived statute record (C8 get_law/search_laws).
type Law struct {
	SRNumber          string
	TitleDE, TitleFR, TitleIT string
	AbbrDE, AbbrFR, AbbrIT    string
	ConsolidationDate string
}

// Article is a single article of a Law, in one language.
type Article struct {
	SRNumber   string
	ArticleNum string
	Language   string
	Heading    string
	Text       string
}

// StatutesStore provides Fedlex statute lookups. Like GraphStore, this
// is an optional dependency.
type StatutesStore interface {
	GetLawBySRNumber(ctx context.Context, sr string) (*Law, error)
	GetLawByAbbreviation(ctx context.Context, abbr string) (*Law, error)
	ListArticles(ctx context.Context, sr, language string) ([]*Article, error)
	GetArticle(ctx context.Context, sr, articleNum, language string) ([]*Article, error)
	SearchArticles(ctx context.Context, query, sr, language string, limit int) ([]*Article, error)
	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'caselaw index --force')", e.Expected, e.Got)
}
