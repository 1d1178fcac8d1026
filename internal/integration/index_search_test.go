package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// Integration Tests - These test the full flow from indexing to search
// to verify components work together correctly.

// testEmbedder creates a static embedder for testing (fast, no model download)
func testEmbedder(t *testing.T) embed.Embedder {
	t.Helper()
	return embed.NewStaticEmbedder768()
}

// testDecisionStore creates a decisions store for testing
func testDecisionStore(t *testing.T) *store.SQLiteDecisionStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "decisions.db")

	ds, err := store.NewSQLiteDecisionStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// testVectorStore creates a vector store for testing
func testVectorStore(t *testing.T) store.VectorStore {
	t.Helper()
	cfg := store.DefaultVectorStoreConfig(768) // Match static embedder dimensions
	vs, err := store.NewHNSWStore(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = vs.Close() })
	return vs
}

// testBM25Index creates a BM25 index for testing
func testBM25Index(t *testing.T) store.BM25Index {
	t.Helper()
	tmpDir := t.TempDir()
	indexBasePath := filepath.Join(tmpDir, "test")

	idx, err := store.NewBM25IndexWithBackend(indexBasePath, store.DefaultBM25Config(), "")
	require.NoError(t, err)

	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// TestIntegration_IndexAndSearch_FindsResults tests the complete flow:
// index a batch of decisions -> search -> get results.
func TestIntegration_IndexAndSearch_FindsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	embedder := testEmbedder(t)
	decisions := testDecisionStore(t)
	vector := testVectorStore(t)
	bm25 := testBM25Index(t)

	engine, err := search.NewEngine(bm25, vector, embedder, decisions, search.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	batch := testDecisions()

	err = engine.Index(ctx, batch)
	require.NoError(t, err)

	// When: searching for known content
	results, err := engine.Search(ctx, "fristlose kuendigung mietvertrag", search.SearchOptions{
		Limit: 10,
	})

	// Then: results should be found
	require.NoError(t, err)
	assert.NotEmpty(t, results, "Search should find results")

	foundLease := false
	for _, r := range results {
		if r.Decision != nil && r.Decision.DocketNumber == "4A_123/2021" {
			foundLease = true
			break
		}
	}
	assert.True(t, foundLease, "Should find the lease-termination decision")
}

// TestIntegration_SearchAfterDelete_ExcludesDeleted tests that deleted
// decisions are no longer returned in search results.
func TestIntegration_SearchAfterDelete_ExcludesDeleted(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	embedder := testEmbedder(t)
	decisions := testDecisionStore(t)
	vector := testVectorStore(t)
	bm25 := testBM25Index(t)

	engine, err := search.NewEngine(bm25, vector, embedder, decisions, search.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	batch := testDecisions()
	err = engine.Index(ctx, batch)
	require.NoError(t, err)

	// When: deleting a decision and searching
	deletedID := batch[0].DecisionID
	err = engine.Delete(ctx, []string{deletedID})
	require.NoError(t, err)

	results, err := engine.Search(ctx, "fristlose kuendigung", search.SearchOptions{Limit: 10})
	require.NoError(t, err)

	// Then: deleted decision should not appear in results
	for _, r := range results {
		if r.Decision != nil {
			assert.NotEqual(t, deletedID, r.Decision.DecisionID, "Deleted decision should not appear in results")
		}
	}
}

// TestIntegration_EmptyIndex_ReturnsNoResults tests that an empty index
// returns empty results without error.
func TestIntegration_EmptyIndex_ReturnsNoResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	embedder := testEmbedder(t)
	decisions := testDecisionStore(t)
	vector := testVectorStore(t)
	bm25 := testBM25Index(t)

	engine, err := search.NewEngine(bm25, vector, embedder, decisions, search.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	// When: searching empty index
	ctx := context.Background()
	results, err := engine.Search(ctx, "any query", search.SearchOptions{Limit: 10})

	// Then: no error, empty results
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestIntegration_SearchWithFilters_FiltersResults tests that search
// filters (court, language) work correctly.
func TestIntegration_SearchWithFilters_FiltersResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	embedder := testEmbedder(t)
	decisions := testDecisionStore(t)
	vector := testVectorStore(t)
	bm25 := testBM25Index(t)

	engine, err := search.NewEngine(bm25, vector, embedder, decisions, search.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	batch := testMultiLanguageDecisions()
	err = engine.Index(ctx, batch)
	require.NoError(t, err)

	// When: searching with a language filter
	results, err := engine.Search(ctx, "vertrag", search.SearchOptions{
		Limit:    10,
		Language: "de",
	})
	require.NoError(t, err)

	// Then: only German-language decisions should be in results
	for _, r := range results {
		if r.Decision != nil {
			assert.Equal(t, "de", r.Decision.Language, "Filtered results should only contain German decisions")
		}
	}
}

// TestIntegration_ConcurrentSearches_NoRace tests that concurrent searches
// don't cause race conditions.
func TestIntegration_ConcurrentSearches_NoRace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	embedder := testEmbedder(t)
	decisions := testDecisionStore(t)
	vector := testVectorStore(t)
	bm25 := testBM25Index(t)

	engine, err := search.NewEngine(bm25, vector, embedder, decisions, search.DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	batch := testDecisions()
	err = engine.Index(ctx, batch)
	require.NoError(t, err)

	// When: running concurrent searches
	done := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		go func(query string) {
			_, err := engine.Search(ctx, query, search.SearchOptions{Limit: 5})
			assert.NoError(t, err)
			done <- true
		}("mietvertrag kuendigung " + string(rune('a'+i%26)))
	}

	// Then: all searches complete without error
	timeout := time.After(10 * time.Second)
	for i := 0; i < 20; i++ {
		select {
		case <-done:
		case <-timeout:
			t.Fatal("Concurrent searches timed out")
		}
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// testDecisions returns a small batch of decisions covering a recurring
// legal topic (lease termination) for exercising search end to end.
func testDecisions() []*store.Decision {
	now := time.Now()

	return []*store.Decision{
		{
			DecisionID:   "bger|4a_123/2021|20211215",
			Court:        "BGer",
			Canton:       "ZH",
			DocketNumber: "4A_123/2021",
			Language:     "de",
			Title:        "Fristlose Kuendigung des Mietvertrags",
			Regeste:      "Fristlose Kuendigung wegen Zahlungsverzug des Mieters.",
			FullText:     "Der Mieter hat den Mietvertrag fristlos gekuendigt, nachdem der Vermieter trotz Mahnung im Verzug blieb. Das Bundesgericht prueft die Voraussetzungen der fristlosen Kuendigung nach Art. 257d OR.",
			DecisionDate: "2021-12-15",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			DecisionID:   "bger|4a_456/2020|20200610",
			Court:        "BGer",
			Canton:       "BE",
			DocketNumber: "4A_456/2020",
			Language:     "de",
			Title:        "Mietzinserhoehung",
			Regeste:      "Zulaessigkeit einer einseitigen Mietzinserhoehung.",
			FullText:     "Der Vermieter erhoehte den Mietzins einseitig unter Berufung auf gestiegene Hypothekarzinsen. Streitig ist die formelle Gueltigkeit der Mitteilung.",
			DecisionDate: "2020-06-10",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			DecisionID:   "bger|6b_789/2019|20190304",
			Court:        "BGer",
			Canton:       "GE",
			DocketNumber: "6B_789/2019",
			Language:     "fr",
			Title:        "Infraction a la loi sur la circulation routiere",
			Regeste:      "Exces de vitesse et retrait du permis de conduire.",
			FullText:     "Le recourant conteste le retrait de son permis de conduire a la suite d'un exces de vitesse constate par radar.",
			DecisionDate: "2019-03-04",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// testMultiLanguageDecisions returns decisions spanning multiple languages
// on a shared topic, for exercising the language filter.
func testMultiLanguageDecisions() []*store.Decision {
	now := time.Now()

	return []*store.Decision{
		{
			DecisionID:   "bger|4a_100/2022|20220101",
			Court:        "BGer",
			Canton:       "ZH",
			DocketNumber: "4A_100/2022",
			Language:     "de",
			Title:        "Vertragsauslegung",
			Regeste:      "Auslegung eines Mietvertrags nach dem Vertrauensprinzip.",
			FullText:     "Streitig ist die Auslegung einer Klausel im Mietvertrag ueber die Nebenkosten.",
			DecisionDate: "2022-01-01",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			DecisionID:   "bger|4a_200/2022|20220202",
			Court:        "BGer",
			Canton:       "GE",
			DocketNumber: "4A_200/2022",
			Language:     "fr",
			Title:        "Interpretation du contrat",
			Regeste:      "Interpretation d'une clause contractuelle de bail.",
			FullText:     "Le litige porte sur l'interpretation d'une clause du contrat de bail relative aux charges.",
			DecisionDate: "2022-02-02",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			DecisionID:   "bger|4a_300/2022|20220303",
			Court:        "BGer",
			Canton:       "TI",
			DocketNumber: "4A_300/2022",
			Language:     "it",
			Title:        "Interpretazione del contratto",
			Regeste:      "Interpretazione di una clausola del contratto di locazione.",
			FullText:     "La controversia riguarda l'interpretazione di una clausola del contratto di locazione relativa alle spese accessorie.",
			DecisionDate: "2022-03-03",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// =============================================================================
// Config Integration Tests
// =============================================================================

// TestIntegration_ConfigLoad_AppliesDefaults tests that config loading
// works end-to-end with defaults.
func TestIntegration_ConfigLoad_AppliesDefaults(t *testing.T) {
	// Given: a directory without config file
	tmpDir := t.TempDir()

	// When: loading config
	cfg, err := config.Load(tmpDir)

	// Then: defaults are applied (empty provider = auto-detect)
	require.NoError(t, err)
	defaults := config.NewConfig()
	assert.Equal(t, defaults.Search.BM25Weight, cfg.Search.BM25Weight)
	assert.Equal(t, defaults.Search.SemanticWeight, cfg.Search.SemanticWeight)
	assert.Equal(t, "", cfg.Vector.Provider) // Empty = auto-detect
}

// TestIntegration_ConfigLoad_WithFile_OverridesDefaults tests that
// config file values override defaults for YAML-accessible fields.
func TestIntegration_ConfigLoad_WithFile_OverridesDefaults(t *testing.T) {
	// Given: a directory with config file
	tmpDir := t.TempDir()
	configContent := `
version: 1
vector:
  provider: static
  model: static-768
`
	err := os.WriteFile(filepath.Join(tmpDir, ".caselaw.yaml"), []byte(configContent), 0644)
	require.NoError(t, err)

	// When: loading config
	cfg, err := config.Load(tmpDir)

	// Then: file values override defaults for YAML-accessible fields
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Vector.Provider)
	assert.Equal(t, "static-768", cfg.Vector.Model)
	// Fusion weights use defaults (not set via this config file)
	defaults := config.NewConfig()
	assert.Equal(t, defaults.Search.BM25Weight, cfg.Search.BM25Weight)
	assert.Equal(t, defaults.Search.SemanticWeight, cfg.Search.SemanticWeight)
}
