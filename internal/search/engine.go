package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/swiss-caselaw/caselawmcp/internal/telemetry"
)

// Engine implements hybrid search over the Swiss caselaw corpus: lexical
// (BM25) + dense-vector (KNN) + learned-sparse candidate generation,
// fused by Reciprocal Rank Fusion, enriched with citation-graph signals,
// and reranked by the multi-signal formula in signals.go.
type Engine struct {
	bm25       store.BM25Index
	vector     store.VectorStore
	sparse     store.SparseIndex // optional: learned-sparse channel
	embedder   embed.Embedder
	decisions  store.DecisionStore
	graph      store.GraphStore // optional: citation-graph enrichment
	config     EngineConfig
	fusion     *RRFFusion
	classifier Classifier              // optional query classifier for dynamic weights
	metrics    *telemetry.QueryMetrics // optional query telemetry collector
	expander   *QueryExpander          // multilingual/doctrinal synonym expansion for BM25
	reranker   Reranker                // optional cross-encoder reranker
	multiQuery *MultiQuerySearcher     // optional multi-query strategy decomposition
	mu         sync.RWMutex
}

// Ensure Engine implements SearchEngine interface.
var _ SearchEngine = (*Engine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ErrDimensionMismatch is returned when query embedding dimension doesn't match index dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Qwen3QueryInstruction is the instruction prefix for Qwen3 embedding queries.
// Per Qwen3 documentation: queries require instruction prefix for optimal retrieval.
// Documents are embedded without instruction; queries need task-specific prefix.
// See: https://huggingface.co/Qwen/Qwen3-Embedding-0.6B
const Qwen3QueryInstruction = "Instruct: Given a legal research query, retrieve relevant Swiss court decisions that answer the query\nQuery:"

// formatQueryForEmbedding formats a query with Qwen3 instruction prefix.
func formatQueryForEmbedding(query string) string {
	return Qwen3QueryInstruction + query
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithClassifier sets an optional query classifier for dynamic weight selection.
func WithClassifier(c Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithMetrics sets an optional query metrics collector for telemetry.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueryExpander sets an optional query expander for BM25 search.
// Expands queries with multilingual/doctrinal legal synonyms to bridge
// the vocabulary gap between a practitioner's query and a decision's
// regeste. When set, BM25 search uses the expanded query while vector
// search uses the original (embedding models handle synonymy natively).
func WithQueryExpander(exp *QueryExpander) EngineOption {
	return func(e *Engine) {
		e.expander = exp
	}
}

// WithReranker sets an optional cross-encoder reranker for result refinement.
// When set, its scores are folded in via ApplyCrossEncoderBoost after the
// multi-signal reranking pass.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) {
		e.reranker = r
	}
}

// WithSparseIndex sets the optional learned-sparse retrieval channel.
func WithSparseIndex(s store.SparseIndex) EngineOption {
	return func(e *Engine) {
		e.sparse = s
	}
}

// WithGraphStore sets the optional citation-graph store used to enrich
// candidates with statute/citation/authority signals before reranking.
func WithGraphStore(g store.GraphStore) EngineOption {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithMultiQuerySearch enables multi-query decomposition for broad
// natural-language queries. Decomposes a query like "asyl wegweisung
// vollzug" into several targeted sub-queries (anchor pairs, language
// focus, synonym-expanded OR), runs them in parallel, and fuses results
// with consensus boosting for decisions surfaced by more than one
// sub-query.
func WithMultiQuerySearch(decomposer QueryDecomposer) EngineOption {
	return func(e *Engine) {
		if decomposer == nil {
			return
		}
		searchFunc := func(ctx context.Context, query string, opts SearchOptions) ([]*FusedResult, error) {
			return e.singleSearch(ctx, query, opts)
		}
		e.multiQuery = NewMultiQuerySearcher(decomposer, searchFunc)
	}
}

// NewEngine creates a new hybrid search engine with the given dependencies.
// Returns an error if any required dependency is nil. bm25, vector,
// embedder, and decisions are required; sparse and graph are supplied via
// WithSparseIndex/WithGraphStore since both are optional per SPEC_FULL.md.
func NewEngine(
	bm25 store.BM25Index,
	vector store.VectorStore,
	embedder embed.Embedder,
	decisions store.DecisionStore,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if bm25 == nil {
		return nil, fmt.Errorf("%w: bm25 index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if decisions == nil {
		return nil, fmt.Errorf("%w: decision store is required", ErrNilDependency)
	}
	e := &Engine{
		bm25:      bm25,
		vector:    vector,
		embedder:  embedder,
		decisions: decisions,
		config:    config,
		fusion:    NewRRFFusionWithK(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// New creates a new hybrid search engine with the given dependencies.
// Deprecated: Use NewEngine instead. This function panics on nil dependencies.
func New(
	bm25 store.BM25Index,
	vector store.VectorStore,
	embedder embed.Embedder,
	decisions store.DecisionStore,
	config EngineConfig,
	opts ...EngineOption,
) *Engine {
	e, err := NewEngine(bm25, vector, embedder, decisions, config, opts...)
	if err != nil {
		panic("search.New: " + err.Error())
	}
	return e
}

// Search executes a hybrid search combining BM25, dense-vector, and
// (when configured) learned-sparse retrieval, fused by RRF and reranked
// by the multi-signal formula.
//
// If multi-query decomposition is enabled and the query benefits from
// it, this method delegates to MultiQuerySearcher which runs multiple
// sub-queries in parallel and fuses results with consensus boosting.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if e.multiQuery != nil && e.multiQuery.decomposer.ShouldDecompose(query) {
		return e.multiQuerySearch(ctx, query, opts, start)
	}

	if opts.Weights == nil && e.classifier != nil {
		_, weights, err := e.classifier.Classify(ctx, query)
		if err == nil {
			opts.Weights = &weights
		}
		// On error, fall through to applyDefaults which uses DefaultWeights
	}

	opts = e.applyDefaults(opts)

	// Docket-number fast path: an exact/partial docket lookup beats
	// running the full hybrid pipeline for a query that is already
	// maximally specific.
	if IsDocketShaped(query) {
		if results, err := e.docketFastPath(ctx, query, opts); err == nil && len(results) > 0 {
			e.attachExplainData(results, query, opts, 0, 0, 0, false, nil)
			e.recordMetrics(query, QueryTypeLexical, len(results), time.Since(start))
			return results, nil
		}
		// Fall through to the hybrid pipeline on a miss — a docket-shaped
		// query with no exact/partial match may still be a BGE citation
		// or contain a typo that full-text search tolerates.
	}

	if opts.BM25Only {
		slog.Info("bm25_only mode enabled (user requested)")
		bm25Results, bm25Err := e.bm25.Search(ctx, query, opts.Limit*2)
		if bm25Err != nil {
			return nil, fmt.Errorf("BM25 search failed: %w", bm25Err)
		}
		fused := e.fuseResults(bm25Results, nil, nil, &Weights{BM25: 1.0, Semantic: 0.0, Sparse: 0.0})
		filtered, err := e.finishPipeline(ctx, query, fused, opts, nil)
		if err != nil {
			return nil, err
		}
		e.attachExplainData(filtered, query, opts, len(bm25Results), 0, 0, false, nil)
		e.recordMetrics(query, QueryTypeLexical, len(filtered), time.Since(start))
		return filtered, nil
	}

	if err := e.validateDimensions(ctx); err != nil {
		slog.Warn("dimension mismatch detected, semantic search disabled",
			slog.String("error", err.Error()),
			slog.String("recovery_1", "caselaw reindex --force"),
			slog.String("recovery_2", "caselaw search --bm25-only"),
			slog.String("info", "caselaw index info"))
		bm25Results, bm25Err := e.bm25.Search(ctx, query, opts.Limit*2)
		if bm25Err != nil {
			return nil, fmt.Errorf("BM25 search failed (semantic disabled due to dimension mismatch): %w", bm25Err)
		}
		fused := e.fuseResults(bm25Results, nil, nil, opts.Weights)
		filtered, err := e.finishPipeline(ctx, query, fused, opts, nil)
		if err != nil {
			return nil, err
		}
		e.attachExplainData(filtered, query, opts, len(bm25Results), 0, 0, true, nil)
		e.recordMetrics(query, QueryTypeLexical, len(filtered), time.Since(start))
		return filtered, nil
	}

	bm25Results, vecResults, sparseResults, searchErr := e.parallelSearch(ctx, query, opts.Limit*2)
	if searchErr != nil {
		if bm25Results == nil && vecResults == nil && sparseResults == nil {
			return nil, searchErr
		}
		// Continue with partial results
	}

	fused := e.fuseResults(bm25Results, vecResults, sparseResults, opts.Weights)

	filtered, err := e.finishPipeline(ctx, query, fused, opts, nil)
	if err != nil {
		return nil, err
	}

	e.attachExplainData(filtered, query, opts, len(bm25Results), len(vecResults), len(sparseResults), false, nil)
	e.recordMetrics(query, e.classifyQueryType(ctx, query, opts), len(filtered), time.Since(start))

	return filtered, nil
}

// docketFastPath resolves a docket-shaped query directly against the
// decision store, bypassing fusion/reranking entirely: it matches every
// separator permutation of the docket in one normalized-key lookup,
// capped at 4×limit, then backfills with docket-family near neighbors
// (same court prefix, same year, within ±DocketFamilyRadius of the
// serial) if the exact match alone falls short of the page, biased by
// any preferred court detected in the query text (spec §4.4.1). Returns
// (nil, nil) on a miss so the caller falls back to the hybrid pipeline.
func (e *Engine) docketFastPath(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	parsed := parseDocketQuery(query)

	poolSize := opts.Limit * docketFastPathPoolMultiplier
	if poolSize < opts.Limit {
		poolSize = opts.Limit
	}

	decisions, err := e.decisions.FindDecisionsByDocketNormalized(ctx, parsed.normalized, poolSize)
	if err != nil {
		return nil, err
	}

	if len(decisions) < opts.Limit && parsed.hasParts {
		family, famErr := e.decisions.FindDocketFamily(ctx, parsed.courtPrefix, parsed.year, parsed.serial, DocketFamilyRadius, poolSize-len(decisions))
		if famErr == nil && len(family) > 0 {
			seen := make(map[string]bool, len(decisions))
			for _, d := range decisions {
				seen[d.DecisionID] = true
			}
			for _, d := range family {
				if !seen[d.DecisionID] {
					decisions = append(decisions, d)
					seen[d.DecisionID] = true
				}
			}
		}
	}

	if len(decisions) == 0 {
		return nil, nil
	}

	if preferred := detectPreferredCourts(query); len(preferred) > 0 {
		biasPreferredCourts(decisions, preferred)
	}

	results := make([]*SearchResult, len(decisions))
	for i, d := range decisions {
		results[i] = &SearchResult{Decision: d}
	}
	e.enrichGraphSignals(ctx, results, opts)
	RerankSignals(query, results, opts, nil)
	return results, nil
}

// finishPipeline enriches fused candidates with full decision data and
// citation-graph signals, reranks with the multi-signal formula, folds
// in an optional cross-encoder boost, applies filters, and truncates to
// opts.Limit. Shared by the single-query, BM25-only, and
// dimension-mismatch-degraded paths.
func (e *Engine) finishPipeline(ctx context.Context, query string, fused []*fusedResult, opts SearchOptions, strategyHits map[string]int) ([]*SearchResult, error) {
	enriched, err := e.enrichResults(ctx, fused)
	if err != nil {
		return nil, err
	}

	e.enrichGraphSignals(ctx, enriched, opts)

	RerankSignals(query, enriched, opts, strategyHits)

	e.applyCrossEncoderRerank(ctx, query, enriched)

	filtered := e.applyStatuteFilter(ctx, enriched, opts)
	filtered = ApplyFilters(filtered, opts)

	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	return filtered, nil
}

// applyStatuteFilter resolves opts.StatuteLawCode/StatuteArticle against
// GraphStore and restricts results to the matching decision set. A no-op
// when either option is unset or GraphStore is unavailable.
func (e *Engine) applyStatuteFilter(ctx context.Context, results []*SearchResult, opts SearchOptions) []*SearchResult {
	if opts.StatuteLawCode == "" || opts.StatuteArticle == "" || e.graph == nil {
		return results
	}
	ids, err := e.graph.DecisionsForStatute(ctx, opts.StatuteLawCode, opts.StatuteArticle)
	if err != nil {
		slog.Warn("statute filter lookup failed, skipping filter",
			slog.String("error", err.Error()))
		return results
	}
	matches := make(map[string]bool, len(ids))
	for _, id := range ids {
		matches[id] = true
	}
	return FilterByStatute(results, matches)
}

// enrichGraphSignals populates GraphSignals on each result from
// GraphStore, feeding the statute/citation/authority components of
// RerankSignals. A no-op when GraphStore is unavailable (graceful
// degradation: search still works, just without citation-graph boosts).
func (e *Engine) enrichGraphSignals(ctx context.Context, results []*SearchResult, opts SearchOptions) {
	if e.graph == nil || len(results) == 0 {
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Decision != nil {
			ids = append(ids, r.Decision.DecisionID)
		}
	}

	citedByQuery, err := e.graph.MostCitedAmong(ctx, ids, len(ids))
	if err != nil {
		slog.Debug("graph enrichment: MostCitedAmong failed", slog.String("error", err.Error()))
		citedByQuery = nil
	}

	for _, r := range results {
		if r.Decision == nil {
			continue
		}
		id := r.Decision.DecisionID

		incoming, err := e.graph.CountIncoming(ctx, id)
		if err != nil {
			slog.Debug("graph enrichment: CountIncoming failed",
				slog.String("decision_id", id), slog.String("error", err.Error()))
		} else {
			r.GraphSignals.IncomingCitations = float64(incoming)
		}

		if opts.StatuteLawCode != "" {
			refs, err := e.graph.OutgoingCitations(ctx, id, 0, 0)
			if err == nil {
				r.GraphSignals.StatuteMentions = float64(len(refs))
			}
		}

		if citedByQuery != nil {
			r.GraphSignals.QueryCitationHits = float64(citedByQuery[id])
		}
	}
}

// applyCrossEncoderRerank scores the top candidates with the optional
// cross-encoder reranker and folds the result into Score via
// ApplyCrossEncoderBoost. A no-op if no reranker is configured, the
// reranker reports unavailable, or fewer than two candidates remain.
func (e *Engine) applyCrossEncoderRerank(ctx context.Context, query string, results []*SearchResult) {
	if e.reranker == nil || len(results) < 2 {
		return
	}
	if !e.reranker.Available(ctx) {
		return
	}

	poolSize := len(results)
	const defaultPool = 50
	if poolSize > defaultPool {
		poolSize = defaultPool
	}
	pool := results[:poolSize]

	documents := make([]string, len(pool))
	for i, r := range pool {
		if r.Decision != nil {
			documents[i] = r.Decision.Regeste + "\n\n" + r.Decision.FullText
		}
	}

	reranked, err := e.reranker.Rerank(ctx, query, documents, 0)
	if err != nil {
		slog.Warn("cross-encoder rerank failed, keeping signal-ranked order",
			slog.String("error", err.Error()))
		return
	}

	boosts := make(map[string]float64, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(pool) || pool[rr.Index].Decision == nil {
			continue
		}
		boosts[pool[rr.Index].Decision.DecisionID] = rr.Score
	}

	ApplyCrossEncoderBoost(results, boosts, CrossEncoderBoostWeight)
}

// CrossEncoderBoostWeight scales the optional cross-encoder reranker's
// normalized score before it is added to the multi-signal Score.
const CrossEncoderBoostWeight = 4.0

// attachExplainData populates ExplainMeta on the first result when opts.Explain is true.
func (e *Engine) attachExplainData(results []*SearchResult, query string, opts SearchOptions, bm25Count, vecCount, sparseCount int, dimMismatch bool, subQueries []string) {
	if !opts.Explain || len(results) == 0 {
		return
	}

	weights := opts.Weights
	if weights == nil {
		w := e.config.DefaultWeights
		weights = &w
	}

	results[0].ExplainMeta = &ExplainMeta{
		Query:                query,
		BM25ResultCount:      bm25Count,
		VectorResultCount:    vecCount,
		SparseResultCount:    sparseCount,
		Weights:              *weights,
		RRFConstant:          e.config.RRFConstant,
		BM25Only:             opts.BM25Only,
		DimensionMismatch:    dimMismatch,
		MultiQueryDecomposed: len(subQueries) > 0,
		SubQueries:           subQueries,
	}
}

// recordMetrics records query telemetry if metrics collector is configured.
func (e *Engine) recordMetrics(query string, queryType QueryType, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   telemetry.QueryType(queryType.String()),
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// classifyQueryType determines the query type based on classifier or weights.
func (e *Engine) classifyQueryType(ctx context.Context, query string, opts SearchOptions) QueryType {
	if opts.Weights != nil {
		if opts.Weights.BM25 > 0.6 {
			return QueryTypeLexical
		}
		if opts.Weights.Semantic > 0.6 {
			return QueryTypeSemantic
		}
		return QueryTypeMixed
	}

	if e.classifier != nil {
		qt, _, err := e.classifier.Classify(ctx, query)
		if err == nil {
			return qt
		}
	}

	return QueryTypeMixed
}

// Index adds decisions to the BM25, vector, and (when configured)
// learned-sparse indices, and persists the decision records.
func (e *Engine) Index(ctx context.Context, decisions []*store.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	docs := make([]*store.Document, len(decisions))
	for i, d := range decisions {
		docs[i] = &store.Document{
			ID:           d.DecisionID,
			Court:        d.Court,
			Canton:       d.Canton,
			DocketNumber: d.DocketNumber,
			Language:     d.Language,
			Title:        d.Title,
			Regeste:      d.Regeste,
			FullText:     d.FullText,
		}
	}

	texts := make([]string, len(decisions))
	for i, d := range decisions {
		texts[i] = d.Regeste + "\n\n" + d.FullText
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	if err := e.bm25.Index(ctx, docs); err != nil {
		return fmt.Errorf("index in BM25: %w", err)
	}

	ids := make([]string, len(decisions))
	for i, d := range decisions {
		ids[i] = d.DecisionID
	}

	if err := e.vector.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}

	if err := e.decisions.SaveDecisions(ctx, decisions); err != nil {
		return fmt.Errorf("save decisions: %w", err)
	}

	if e.sparse != nil {
		for i, d := range decisions {
			termWeights := sparseTermWeights(texts[i])
			if err := e.sparse.Index(ctx, d.DecisionID, termWeights); err != nil {
				slog.Warn("sparse index failed, sparse channel will miss this decision",
					slog.String("decision_id", d.DecisionID),
					slog.String("error", err.Error()))
			}
		}
	}

	if err := e.storeIndexEmbeddingInfo(ctx); err != nil {
		slog.Warn("failed to store index embedding info",
			slog.String("error", err.Error()))
	}

	return nil
}

// sparseTermWeights builds a learned-sparse posting for text using
// term-frequency weights over the legal tokenizer's vocabulary. This is
// a lightweight stand-in for a learned model's token-weight output
// (e.g. SPLADE) — it preserves the SparseIndex contract (token -> weight)
// and lets the sparse retrieval channel function end-to-end without
// depending on an external sparse-encoding service.
func sparseTermWeights(text string) map[string]float64 {
	terms := store.TokenizeLegalText(text)
	counts := make(map[string]float64, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	weights := make(map[string]float64, len(counts))
	for t, count := range counts {
		weights[t] = 1.0 + (count-1.0)*0.1
	}
	return weights
}

// storeIndexEmbeddingInfo saves the current embedder's dimension and model to state.
func (e *Engine) storeIndexEmbeddingInfo(ctx context.Context) error {
	dim := fmt.Sprintf("%d", e.embedder.Dimensions())
	model := e.embedder.ModelName()

	if err := e.decisions.SetState(ctx, store.StateKeyIndexDimension, dim); err != nil {
		return fmt.Errorf("failed to store index dimension: %w", err)
	}
	if err := e.decisions.SetState(ctx, store.StateKeyIndexModel, model); err != nil {
		return fmt.Errorf("failed to store index model: %w", err)
	}
	return nil
}

// validateDimensions checks if current embedder dimension matches indexed dimension.
func (e *Engine) validateDimensions(ctx context.Context) error {
	storedDim, err := e.decisions.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil || storedDim == "" {
		return nil
	}

	var indexDim int
	if _, err := fmt.Sscanf(storedDim, "%d", &indexDim); err != nil {
		slog.Warn("invalid stored index dimension", slog.String("value", storedDim))
		return nil
	}

	currentDim := e.embedder.Dimensions()
	if indexDim != currentDim {
		storedModel, _ := e.decisions.GetState(ctx, store.StateKeyIndexModel)
		currentModel := e.embedder.ModelName()
		return fmt.Errorf("%w: index has %d dimensions (%s), but current embedder has %d dimensions (%s). Run 'caselaw reindex --force' to rebuild with current embedder",
			ErrDimensionMismatch, indexDim, storedModel, currentDim, currentModel)
	}

	return nil
}

// Delete removes decisions from all indices and the decision store.
func (e *Engine) Delete(ctx context.Context, decisionIDs []string) error {
	if len(decisionIDs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Best-effort delete pattern: the decision store is the source of
	// truth. Orphans left in BM25/vector/sparse are harmless, filtered
	// naturally since enrichResults only returns decisions the store
	// still has.
	var hasOrphans bool

	if err := e.bm25.Delete(ctx, decisionIDs); err != nil {
		slog.Warn("BM25 delete failed, orphans will remain until compaction",
			slog.String("error", err.Error()), slog.Int("count", len(decisionIDs)))
		hasOrphans = true
	}

	if err := e.vector.Delete(ctx, decisionIDs); err != nil {
		slog.Warn("vector delete failed, orphans will remain until compaction",
			slog.String("error", err.Error()), slog.Int("count", len(decisionIDs)))
		hasOrphans = true
	}

	if e.sparse != nil {
		if err := e.sparse.Delete(ctx, decisionIDs); err != nil {
			slog.Warn("sparse delete failed, orphans will remain until compaction",
				slog.String("error", err.Error()), slog.Int("count", len(decisionIDs)))
			hasOrphans = true
		}
	}

	if hasOrphans {
		slog.Debug("delete completed with orphan remnants", slog.Int("decisions", len(decisionIDs)))
	}

	return nil
}

// Stats returns engine statistics.
func (e *Engine) Stats() *EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &EngineStats{
		BM25Stats:   e.bm25.Stats(),
		VectorCount: e.vector.Count(),
	}
	if count, err := e.decisions.CountDecisions(context.Background()); err == nil {
		stats.DecisionCount = count
	}
	return stats
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error

	if err := e.bm25.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.sparse != nil {
		if err := e.sparse.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.graph != nil {
		if err := e.graph.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.decisions.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// applyDefaults fills in default values for search options.
func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}

	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}

	return opts
}

// parallelSearch executes BM25, vector, and (when configured) sparse
// searches concurrently. Returns partial results on single-channel
// failure (graceful degradation).
//
// BM25 uses the expander-expanded query (with legal synonyms) while
// vector search uses the original query. Embedding models handle
// semantic similarity natively, so expansion can hurt precision there;
// BM25 benefits from expansion because it matches exact terms.
func (e *Engine) parallelSearch(ctx context.Context, query string, limit int) (
	bm25Results []*store.BM25Result,
	vecResults []*store.VectorResult,
	sparseResults []*store.SparseResult,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	var bm25Err, vecErr, sparseErr error

	bm25Query := query
	if e.expander != nil {
		bm25Query = e.expander.Expand(query)
		if bm25Query != query {
			slog.Debug("query expanded for BM25",
				slog.String("original", query),
				slog.String("expanded", bm25Query))
		}
	}

	g.Go(func() error {
		var searchErr error
		bm25Results, searchErr = e.bm25.Search(gctx, bm25Query, limit)
		if searchErr != nil {
			bm25Err = searchErr
		}
		return nil
	})

	var queryEmbedding []float32
	g.Go(func() error {
		formattedQuery := formatQueryForEmbedding(query)
		embedding, embedErr := e.embedder.Embed(gctx, formattedQuery)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}
		queryEmbedding = embedding

		var searchErr error
		vecResults, searchErr = e.vector.Search(gctx, embedding, limit)
		if searchErr != nil {
			vecErr = searchErr
		}
		return nil
	})

	if e.sparse != nil {
		g.Go(func() error {
			queryTerms := sparseTermWeights(query)
			var searchErr error
			sparseResults, searchErr = e.sparse.Search(gctx, queryTerms, limit)
			if searchErr != nil {
				sparseErr = searchErr
			}
			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, nil, waitErr
	}

	if e.metrics != nil && len(queryEmbedding) > 0 {
		e.metrics.RecordQueryEmbedding(queryEmbedding)
	}

	failedChannels := 0
	if bm25Err != nil {
		failedChannels++
	}
	if vecErr != nil {
		failedChannels++
	}
	channelCount := 2
	if e.sparse != nil {
		channelCount = 3
		if sparseErr != nil {
			failedChannels++
		}
	}
	if failedChannels == channelCount {
		return nil, nil, nil, errors.Join(bm25Err, vecErr, sparseErr)
	}

	if bm25Err != nil {
		err = bm25Err
	} else if vecErr != nil {
		err = vecErr
	} else if sparseErr != nil {
		err = sparseErr
	}

	return bm25Results, vecResults, sparseResults, err
}

// fusedResult holds intermediate fusion state.
type fusedResult struct {
	decisionID   string
	rrfScore     float64 // Normalized RRF score (0-1)
	bm25Score    float64
	vecScore     float64
	sparseScore  float64
	bm25Rank     int
	vecRank      int
	inBothLists  bool
	matchedTerms []string
}

// fuseResults combines BM25, vector, and sparse results using Reciprocal
// Rank Fusion. The sparse channel is folded in as an additional weighted
// rank list using the same k constant; its contribution also lands in
// SearchResult.SparseScore for signals.go's SparseSignal component.
func (e *Engine) fuseResults(
	bm25Results []*store.BM25Result,
	vecResults []*store.VectorResult,
	sparseResults []*store.SparseResult,
	weights *Weights,
) []*fusedResult {
	rrfResults := e.fusion.Fuse(bm25Results, vecResults, *weights)

	results := make([]*fusedResult, len(rrfResults))
	byID := make(map[string]*fusedResult, len(rrfResults))
	for i, r := range rrfResults {
		fr := &fusedResult{
			decisionID:   r.DecisionID,
			rrfScore:     r.RRFScore,
			bm25Score:    r.BM25Score,
			vecScore:     r.VecScore,
			bm25Rank:     r.BM25Rank,
			vecRank:      r.VecRank,
			inBothLists:  r.InBothLists,
			matchedTerms: r.MatchedTerms,
		}
		results[i] = fr
		byID[fr.decisionID] = fr
	}

	if len(sparseResults) == 0 {
		return results
	}

	sparseWeight := weights.Sparse
	for rank, sr := range sparseResults {
		contribution := sparseWeight / float64(e.fusion.K+rank+1)
		if fr, ok := byID[sr.ID]; ok {
			fr.sparseScore = sr.Score
			fr.rrfScore += contribution
		} else {
			fr := &fusedResult{
				decisionID:  sr.ID,
				rrfScore:    contribution,
				sparseScore: sr.Score,
			}
			results = append(results, fr)
			byID[fr.decisionID] = fr
		}
	}

	return results
}

// enrichResults fetches full decision data for fused candidates.
func (e *Engine) enrichResults(ctx context.Context, fused []*fusedResult) ([]*SearchResult, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	results := make([]*SearchResult, 0, len(fused))
	for _, f := range fused {
		decision, err := e.decisions.GetDecision(ctx, f.decisionID)
		if err != nil || decision == nil {
			continue // orphaned index entry, decision store is the source of truth
		}

		result := &SearchResult{
			Decision:     decision,
			Score:        f.rrfScore,
			BM25Score:    f.bm25Score,
			VecScore:     f.vecScore,
			SparseScore:  f.sparseScore,
			BM25Rank:     f.bm25Rank,
			VecRank:      f.vecRank,
			InBothLists:  f.inBothLists,
			MatchedTerms: f.matchedTerms,
		}

		results = append(results, result)
	}

	return results, nil
}

// multiQuerySearch handles multi-query decomposition search: it
// decomposes the query, runs sub-queries in parallel, fuses results with
// consensus boosting, and carries sub-query hit counts into
// RerankSignals so the final ranking rewards decisions multiple
// strategies agreed on.
func (e *Engine) multiQuerySearch(ctx context.Context, query string, opts SearchOptions, start time.Time) ([]*SearchResult, error) {
	opts = e.applyDefaults(opts)

	var subQueryStrings []string
	if opts.Explain {
		subQueries := e.multiQuery.decomposer.Decompose(query)
		subQueryStrings = make([]string, len(subQueries))
		for i, sq := range subQueries {
			subQueryStrings[i] = sq.Query
		}
	}

	multiFused, err := e.multiQuery.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	fused := make([]*fusedResult, len(multiFused))
	strategyHits := make(map[string]int, len(multiFused))
	for i, mf := range multiFused {
		fused[i] = &fusedResult{
			decisionID:   mf.DecisionID,
			rrfScore:     mf.RRFScore,
			bm25Score:    mf.BM25Score,
			vecScore:     mf.VecScore,
			bm25Rank:     mf.BM25Rank,
			vecRank:      mf.VecRank,
			inBothLists:  mf.InBothLists,
			matchedTerms: mf.MatchedTerms,
		}
		strategyHits[mf.DecisionID] = mf.SubQueryHits
	}

	filtered, err := e.finishPipeline(ctx, query, fused, opts, strategyHits)
	if err != nil {
		return nil, err
	}

	e.attachExplainData(filtered, query, opts, len(filtered), len(filtered), 0, false, subQueryStrings)
	e.recordMetrics(query, QueryTypeMixed, len(filtered), time.Since(start))

	slog.Debug("multi_query_search_complete",
		slog.String("query", query),
		slog.Int("results", len(filtered)),
		slog.Duration("duration", time.Since(start)))

	return filtered, nil
}

// singleSearch executes a single hybrid search without multi-query
// decomposition, used by MultiQuerySearcher for each sub-query. Returns
// FusedResult slice (pre-enrichment) for efficient multi-query fusion.
func (e *Engine) singleSearch(ctx context.Context, query string, opts SearchOptions) ([]*FusedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if opts.Weights == nil && e.classifier != nil {
		_, weights, err := e.classifier.Classify(ctx, query)
		if err == nil {
			opts.Weights = &weights
		}
	}

	opts = e.applyDefaults(opts)

	if opts.BM25Only {
		bm25Results, err := e.bm25.Search(ctx, query, opts.Limit*2)
		if err != nil {
			return nil, fmt.Errorf("BM25 search failed: %w", err)
		}
		fused := e.fuseResults(bm25Results, nil, nil, &Weights{BM25: 1.0, Semantic: 0.0, Sparse: 0.0})
		return e.convertToFusedResult(fused), nil
	}

	if err := e.validateDimensions(ctx); err != nil {
		bm25Results, bm25Err := e.bm25.Search(ctx, query, opts.Limit*2)
		if bm25Err != nil {
			return nil, fmt.Errorf("BM25 search failed: %w", bm25Err)
		}
		fused := e.fuseResults(bm25Results, nil, nil, opts.Weights)
		return e.convertToFusedResult(fused), nil
	}

	bm25Results, vecResults, sparseResults, _ := e.parallelSearch(ctx, query, opts.Limit*2)
	fused := e.fuseResults(bm25Results, vecResults, sparseResults, opts.Weights)

	// Apply court/canton/language/date filters if a sub-query language
	// hint restricts this call (see multi_query.go's parallelSubSearch).
	if opts.Language != "" || opts.Court != "" || opts.Canton != "" || opts.DateFrom != "" || opts.DateTo != "" {
		enriched, err := e.enrichResults(ctx, fused)
		if err != nil {
			return e.convertToFusedResult(fused), nil
		}
		filtered := ApplyFilters(enriched, opts)
		fusedFiltered := make([]*FusedResult, len(filtered))
		for i, r := range filtered {
			fusedFiltered[i] = &FusedResult{
				DecisionID:   r.Decision.DecisionID,
				RRFScore:     r.Score,
				BM25Score:    r.BM25Score,
				BM25Rank:     0, // not tracked after enrichment
				VecScore:     r.VecScore,
				VecRank:      0, // not tracked after enrichment
				InBothLists:  r.InBothLists,
				MatchedTerms: r.MatchedTerms,
			}
		}
		return fusedFiltered, nil
	}

	return e.convertToFusedResult(fused), nil
}

// convertToFusedResult converts internal fusedResult to public FusedResult.
func (e *Engine) convertToFusedResult(internal []*fusedResult) []*FusedResult {
	results := make([]*FusedResult, len(internal))
	for i, f := range internal {
		results[i] = &FusedResult{
			DecisionID:   f.decisionID,
			RRFScore:     f.rrfScore,
			BM25Score:    f.bm25Score,
			BM25Rank:     f.bm25Rank,
			VecScore:     f.vecScore,
			VecRank:      f.vecRank,
			InBothLists:  f.inBothLists,
			MatchedTerms: f.matchedTerms,
		}
	}
	return results
}
