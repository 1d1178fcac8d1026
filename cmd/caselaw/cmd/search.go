package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/logging"
	"github.com/swiss-caselaw/caselawmcp/internal/output"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	court    string
	canton   string
	language string
	format   string // "text", "json"
	bm25Only bool   // skip semantic search, use BM25 only
	explain  bool   // show search decision process
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed caselaw corpus",
		Long: `Search the indexed Swiss caselaw corpus using hybrid search.

Combines BM25 (keyword), dense-vector (semantic), and learned-sparse
retrieval with Reciprocal Rank Fusion and citation-graph enrichment.
A docket-shaped query ("4A_123/2021") is resolved directly.

Examples:
  caselaw search "fristlose kuendigung mietvertrag"
  caselaw search "4A_123/2021"
  caselaw search "asyl wegweisung vollzug" --court bger --limit 5
  caselaw search "art 271 or mietrecht" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&opts.court, "court", "", "Filter by court (e.g. bger, bvger)")
	cmd.Flags().StringVar(&opts.canton, "canton", "", "Filter by canton abbreviation")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Filter by decision language (de/fr/it/rm/en)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.bm25Only, "bm25-only", false, "Use keyword search only (skip semantic search)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show search decision process (BM25/vector results, weights, RRF fusion)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	out := output.New(cmd.OutOrStdout())

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	dataDir := filepath.Join(root, ".caselaw")
	decisionsPath := filepath.Join(dataDir, "decisions.db")
	if _, err := os.Stat(decisionsPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'caselaw index' first")
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	decisions, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		return fmt.Errorf("failed to open decisions store: %w", err)
	}
	defer func() { _ = decisions.Close() }()

	graphPath := filepath.Join(dataDir, "graph.db")
	var graph store.GraphStore
	if g, err := store.NewSQLiteGraphStore(graphPath); err == nil {
		graph = g
		defer func() { _ = g.Close() }()
	} else {
		slog.Debug("graph_store_unavailable", slog.String("error", err.Error()))
	}

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25Config := store.DefaultBM25Config()
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, bm25Config, cfg.Search.BM25Backend)
	if err != nil {
		return fmt.Errorf("failed to open BM25 index: %w", err)
	}
	defer func() { _ = bm25.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	existingDims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err != nil {
		slog.Debug("could not read vector dimensions", slog.String("error", err.Error()))
		existingDims = 0
	}

	var embedder embed.Embedder
	var dimensions int

	if opts.bm25Only {
		embedder = embed.NewStaticEmbedder768()
		dimensions = embedder.Dimensions()
		slog.Debug("bm25_only_mode", slog.Int("dimensions", dimensions))
	} else {
		provider := embed.ParseProvider(cfg.Vector.Provider)
		embedder, err = embed.NewEmbedder(ctx, provider, cfg.Vector.Model)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		dimensions = embedder.Dimensions()
		slog.Debug("embedder_initialized",
			slog.String("provider", provider.String()),
			slog.String("model", embedder.ModelName()),
			slog.Int("dimensions", dimensions),
			slog.Int("existing_dims", existingDims))
	}
	defer func() { _ = embedder.Close() }()

	vectorConfig := store.DefaultVectorStoreConfig(dimensions)
	vector, err := store.NewHNSWStore(vectorConfig)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()

	if _, err := os.Stat(vectorPath); err == nil {
		if loadErr := vector.Load(vectorPath); loadErr != nil {
			slog.Debug("vector_load_failed", slog.String("error", loadErr.Error()))
		}
	}

	engineConfig := search.DefaultConfig()
	if cfg.Search.DefaultLimit > 0 {
		engineConfig.DefaultLimit = cfg.Search.DefaultLimit
	}
	if cfg.Search.BM25Weight > 0 || cfg.Search.SemanticWeight > 0 {
		engineConfig.DefaultWeights = search.Weights{
			BM25:     cfg.Search.BM25Weight,
			Semantic: cfg.Search.SemanticWeight,
		}
	}

	engineOpts := []search.EngineOption{
		search.WithMultiQuerySearch(search.NewLegalStrategyDecomposer()),
	}
	if graph != nil {
		engineOpts = append(engineOpts, search.WithGraphStore(graph))
	}
	engine, err := search.NewEngine(bm25, vector, embedder, decisions, engineConfig, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	searchOpts := search.SearchOptions{
		Limit:    opts.limit,
		Court:    opts.court,
		Canton:   opts.canton,
		Language: opts.language,
		BM25Only: opts.bm25Only,
		Explain:  opts.explain,
	}

	results, err := engine.Search(ctx, query, searchOpts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	slog.Info("search_complete", slog.String("mode", "local"), slog.Int("results", len(results)))

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	switch opts.format {
	case "json":
		return formatJSON(cmd, results)
	default:
		return formatText(out, query, results)
	}
}

// formatText outputs results in human-readable format.
func formatText(out *output.Writer, query string, results []*search.SearchResult) error {
	if len(results) > 0 && results[0].Explain != nil {
		formatExplainHeader(out, results[0].Explain)
	}

	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()

	hasExplain := len(results) > 0 && results[0].Explain != nil
	for i, r := range results {
		if r.Decision == nil {
			continue
		}

		location := fmt.Sprintf("%s %s (%s)", r.Decision.Court, r.Decision.DocketNumber, r.Decision.Language)

		if hasExplain {
			out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)
			out.Status("", fmt.Sprintf("      BM25: rank %d (score: %.3f) | Vector: rank %d (score: %.3f)",
				r.BM25Rank, r.BM25Score, r.VecRank, r.VecScore))
		} else {
			out.Statusf("", "%d. %s (score: %.2f)", i+1, location, r.Score)
		}

		if r.Decision.Title != "" {
			out.Status("", "   "+r.Decision.Title)
		}
		if r.Snippet != "" {
			out.Status("", "   "+r.Snippet)
		}
		out.Newline()
	}

	return nil
}

// formatExplainHeader outputs the explain summary for a search.
func formatExplainHeader(out *output.Writer, explain *search.ExplainData) {
	out.Status("", "════════════════════════════════════════")
	out.Status("", "SEARCH EXPLANATION")
	out.Status("", "════════════════════════════════════════")
	out.Newline()
	out.Status("", fmt.Sprintf("BM25 component: %.3f", explain.BM25Component))
	out.Status("", fmt.Sprintf("RRF contribution: %.3f", explain.RRFContribution))
	out.Status("", fmt.Sprintf("Vector signal: %.3f", explain.VectorSignal))
	out.Status("", fmt.Sprintf("Sparse signal: %.3f", explain.SparseSignal))
	out.Status("", fmt.Sprintf("Cross-encoder boost: %.3f", explain.CrossEncoderBoost))
	out.Status("", fmt.Sprintf("Final score: %.3f", explain.FinalScore))
	out.Status("", "════════════════════════════════════════")
	out.Newline()
}

// formatJSON outputs results in JSON format.
func formatJSON(cmd *cobra.Command, results []*search.SearchResult) error {
	type jsonResult struct {
		DecisionID string  `json:"decision_id"`
		Court      string  `json:"court"`
		Docket     string  `json:"docket_number"`
		Language   string  `json:"language"`
		Title      string  `json:"title,omitempty"`
		Score      float64 `json:"score"`
		Snippet    string  `json:"snippet,omitempty"`
	}

	var jsonResults []jsonResult
	for _, r := range results {
		if r.Decision == nil {
			continue
		}
		jsonResults = append(jsonResults, jsonResult{
			DecisionID: r.Decision.DecisionID,
			Court:      r.Decision.Court,
			Docket:     r.Decision.DocketNumber,
			Language:   r.Decision.Language,
			Title:      r.Decision.Title,
			Score:      r.Score,
			Snippet:    r.Snippet,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResults)
}
