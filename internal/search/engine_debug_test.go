//go:build debug

package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// TestDebugFullSearchFlow exercises the hybrid pipeline against a real
// on-disk corpus. Gated behind DEBUG_SEARCH=1 since it needs a built
// index (run `caselaw index` first).
func TestDebugFullSearchFlow(t *testing.T) {
	if os.Getenv("DEBUG_SEARCH") != "1" {
		t.Skip("Skipping debug test (set DEBUG_SEARCH=1 to run)")
	}

	ctx := context.Background()
	dataDir := os.Getenv("DEBUG_DATA_DIR")
	if dataDir == "" {
		dataDir = ".caselaw"
	}

	decisions, err := store.NewSQLiteDecisionStore(filepath.Join(dataDir, "decisions.db"))
	if err != nil {
		t.Fatalf("Failed to open decisions store: %v", err)
	}
	defer decisions.Close()

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, store.DefaultBM25Config(), "")
	if err != nil {
		t.Fatalf("Failed to open BM25: %v", err)
	}
	defer bm25.Close()

	vectorConfig := store.DefaultVectorStoreConfig(768)
	vector, err := store.NewHNSWStore(vectorConfig)
	if err != nil {
		t.Fatalf("Failed to create vector store: %v", err)
	}
	defer vector.Close()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if err := vector.Load(vectorPath); err != nil {
		t.Logf("Warning: Could not load vectors: %v", err)
	}

	embedder := embed.NewStaticEmbedder768()

	engineConfig := DefaultConfig()
	engineConfig.DefaultWeights = Weights{
		BM25:     1.0,
		Semantic: 0.0,
	}
	engine := New(bm25, vector, embedder, decisions, engineConfig)

	fmt.Println("\n=== Testing Full Search Flow ===")
	fmt.Println("Query: fristlose kuendigung mietvertrag")
	fmt.Printf("Weights: BM25=%.2f, Semantic=%.2f\n", engineConfig.DefaultWeights.BM25, engineConfig.DefaultWeights.Semantic)

	results, err := engine.Search(ctx, "fristlose kuendigung mietvertrag", SearchOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("\n=== Search Results (%d) ===\n", len(results))
	for i, r := range results {
		docket := "unknown"
		if r.Decision != nil {
			docket = r.Decision.DocketNumber
		}
		fmt.Printf("%d. Docket=%s Score=%.4f BM25=%.4f Vec=%.4f InBoth=%v\n",
			i+1, docket, r.Score, r.BM25Score, r.VecScore, r.InBothLists)
	}

	fmt.Println("\n=== Direct BM25 Results ===")
	bm25Results, err := bm25.Search(ctx, "fristlose kuendigung mietvertrag", 10)
	if err != nil {
		t.Fatalf("BM25 search failed: %v", err)
	}
	for i, r := range bm25Results {
		decision, _ := decisions.GetDecision(ctx, r.DocID)
		docket := "not_found"
		if decision != nil {
			docket = decision.DocketNumber
		}
		fmt.Printf("%d. ID=%s Docket=%s Score=%.4f\n", i+1, r.DocID, docket, r.Score)
	}
}

// TestDebugCLIPath mimics the exact CLI search path, including config
// loading and embedder factory selection.
func TestDebugCLIPath(t *testing.T) {
	if os.Getenv("DEBUG_CLI") != "1" {
		t.Skip("Skipping CLI debug test (set DEBUG_CLI=1 to run)")
	}

	ctx := context.Background()
	root := os.Getenv("DEBUG_ROOT")
	if root == "" {
		root = "."
	}
	dataDir := filepath.Join(root, ".caselaw")

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	fmt.Printf("Loaded config: BM25Weight=%.2f, SemanticWeight=%.2f\n",
		cfg.Search.BM25Weight, cfg.Search.SemanticWeight)

	decisionsPath := filepath.Join(dataDir, "decisions.db")
	decisions, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		t.Fatalf("Failed to open decisions store: %v", err)
	}
	defer func() { _ = decisions.Close() }()

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25Config := store.DefaultBM25Config()
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, bm25Config, "")
	if err != nil {
		t.Fatalf("Failed to open BM25 index: %v", err)
	}
	defer func() { _ = bm25.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	existingDims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err != nil {
		fmt.Printf("Could not read vector dimensions: %v\n", err)
		existingDims = 0
	} else {
		fmt.Printf("Existing vector dimensions: %d\n", existingDims)
	}

	provider := embed.ParseProvider(cfg.Vector.Provider)
	embedder, err := embed.NewEmbedder(ctx, provider, cfg.Vector.Model)
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}
	fmt.Printf("Embedder: provider=%s, model=%s, dims=%d\n",
		provider.String(), embedder.ModelName(), embedder.Dimensions())
	defer func() { _ = embedder.Close() }()

	dimensions := embedder.Dimensions()
	vectorConfig := store.DefaultVectorStoreConfig(dimensions)
	vector, err := store.NewHNSWStore(vectorConfig)
	if err != nil {
		t.Fatalf("Failed to create vector store: %v", err)
	}
	defer func() { _ = vector.Close() }()

	if _, err := os.Stat(vectorPath); err == nil {
		if loadErr := vector.Load(vectorPath); loadErr != nil {
			fmt.Printf("Vector load failed: %v\n", loadErr)
		} else {
			fmt.Printf("Vectors loaded: count=%d\n", vector.Count())
		}
	}

	engineConfig := DefaultConfig()
	if cfg.Search.DefaultLimit > 0 {
		engineConfig.DefaultLimit = cfg.Search.DefaultLimit
	}
	if cfg.Search.BM25Weight > 0 || cfg.Search.SemanticWeight > 0 {
		engineConfig.DefaultWeights = Weights{
			BM25:     cfg.Search.BM25Weight,
			Semantic: cfg.Search.SemanticWeight,
		}
	}
	fmt.Printf("Engine config: DefaultLimit=%d, BM25=%.2f, Semantic=%.2f\n",
		engineConfig.DefaultLimit, engineConfig.DefaultWeights.BM25, engineConfig.DefaultWeights.Semantic)

	engine := New(bm25, vector, embedder, decisions, engineConfig)

	searchOpts := SearchOptions{Limit: 10}

	fmt.Println("\n=== Search for 'fristlose kuendigung mietvertrag' ===")
	results, err := engine.Search(ctx, "fristlose kuendigung mietvertrag", searchOpts)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("Results: %d\n", len(results))
	for i, r := range results {
		docket := "unknown"
		if r.Decision != nil {
			docket = r.Decision.DocketNumber
		}
		fmt.Printf("%d. Docket=%s Score=%.4f BM25=%.4f Vec=%.4f InBoth=%v\n",
			i+1, docket, r.Score, r.BM25Score, r.VecScore, r.InBothLists)
	}

	fmt.Println("\n=== Direct BM25 ===")
	bm25Results, _ := bm25.Search(ctx, "fristlose kuendigung mietvertrag", 5)
	for i, r := range bm25Results {
		decision, _ := decisions.GetDecision(ctx, r.DocID)
		docket := "not_found"
		if decision != nil {
			docket = decision.DocketNumber
		}
		fmt.Printf("%d. ID=%s Docket=%s Score=%.4f\n", i+1, r.DocID, docket, r.Score)
	}
}
