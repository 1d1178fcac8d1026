package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

func newTestDecision(id, docket, title, regeste, court, lang string) *store.Decision {
	return &store.Decision{
		DecisionID:   id,
		DocketNumber: docket,
		Title:        title,
		Regeste:      regeste,
		Court:        court,
		Language:     lang,
		DecisionDate: "2021-01-01",
	}
}

func newTestEngine(t *testing.T, bm25 *MockBM25Index, vec *MockVectorStore, embedder *MockEmbedder, decisions *MockDecisionStore, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(bm25, vec, embedder, decisions, DefaultConfig(), opts...)
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	bm25 := &MockBM25Index{}
	vec := &MockVectorStore{}
	embedder := &MockEmbedder{}
	decisions := NewMockDecisionStore()

	_, err := NewEngine(nil, vec, embedder, decisions, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(bm25, nil, embedder, decisions, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(bm25, vec, nil, decisions, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(bm25, vec, embedder, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(bm25, vec, embedder, decisions, DefaultConfig())
	assert.NoError(t, err)
}

func TestEngine_DocketFastPath(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "4A_123/2021", "Mietrecht", "Fristlose Kuendigung", "bger", "de")

	bm25Called := false
	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			bm25Called = true
			return nil, nil
		},
	}
	vec := &MockVectorStore{}
	embedder := &MockEmbedder{}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "4A_123/2021", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Decision.DecisionID)
	assert.False(t, bm25Called, "docket fast path should bypass the hybrid pipeline")
}

func TestEngine_DocketFastPath_FallsThroughOnMiss(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "4A_999/2019", "Mietrecht", "Fristlose Kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, limit int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "4A_123/2021", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Decision.DecisionID)
}

func TestEngine_BM25OnlyMode(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "Fristlose Kuendigung", "bger", "de")

	vecCalled := false
	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			vecCalled = true
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			vecCalled = true
			return make([]float32, 768), nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "mietrecht", SearchOptions{Limit: 10, BM25Only: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, vecCalled, "BM25Only should skip the vector channel entirely")
}

func TestEngine_DimensionMismatchDegradesToLexical(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "Fristlose Kuendigung", "bger", "de")
	decisions.State[store.StateKeyIndexDimension] = "1024"
	decisions.State[store.StateKeyIndexModel] = "qwen3-large"

	vecCalled := false
	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			vecCalled = true
			return nil, nil
		},
	}
	embedder := &MockEmbedder{DimensionsFn: func() int { return 768 }}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "mietrecht", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, vecCalled, "dimension mismatch should disable the vector channel")
	if assert.NotNil(t, results[0]) {
		// Explain is off by default; just confirm degraded search still ranks.
		assert.Equal(t, "1", results[0].Decision.DecisionID)
	}
}

func TestEngine_PartialChannelFailureDegradesGracefully(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "Fristlose Kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, errors.New("vector backend unavailable")
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "mietrecht", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Decision.DecisionID)
}

func TestEngine_AllChannelsFailReturnsError(t *testing.T) {
	decisions := NewMockDecisionStore()
	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return nil, errors.New("bm25 down")
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, errors.New("vector down")
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	_, err := engine.Search(context.Background(), "mietrecht", SearchOptions{Limit: 10})
	assert.Error(t, err)
}

func TestEngine_GraphEnrichment(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "Fristlose Kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}
	graph := &MockGraphStore{
		CountIncomingFn: func(_ context.Context, decisionID string) (int, error) {
			if decisionID == "1" {
				return 7, nil
			}
			return 0, nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions, WithGraphStore(graph))

	results, err := engine.Search(context.Background(), "mietrecht", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float64(7), results[0].GraphSignals.IncomingCitations)
}

func TestEngine_StatuteFilter(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "kuendigung", "bger", "de")
	decisions.Decisions["2"] = newTestDecision("2", "", "Mietrecht", "kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{
				{DocID: "1", Score: 5.0},
				{DocID: "2", Score: 4.0},
			}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}
	graph := &MockGraphStore{
		DecisionsForStatuteFn: func(_ context.Context, lawCode, article string) ([]string, error) {
			assert.Equal(t, "OR", lawCode)
			assert.Equal(t, "271", article)
			return []string{"1"}, nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions, WithGraphStore(graph))

	results, err := engine.Search(context.Background(), "kuendigung", SearchOptions{
		Limit:          10,
		StatuteLawCode: "OR",
		StatuteArticle: "271",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Decision.DecisionID)
}

func TestEngine_CrossEncoderBoost(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "kuendigung", "bger", "de")
	decisions.Decisions["2"] = newTestDecision("2", "", "Steuerrecht", "unrelated", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{
				{DocID: "2", Score: 5.0},
				{DocID: "1", Score: 1.0},
			}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}
	reranker := &MockReranker{
		RerankFn: func(_ context.Context, _ string, documents []string, _ int) ([]RerankResult, error) {
			results := make([]RerankResult, len(documents))
			for i, doc := range documents {
				score := 0.1
				if strings.Contains(doc, "kuendigung") {
					score = 1.0
				}
				results[i] = RerankResult{Index: i, Score: score}
			}
			return results, nil
		},
		AvailableFn: func(_ context.Context) bool { return true },
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions, WithReranker(reranker))

	results, err := engine.Search(context.Background(), "kuendigung", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].Decision.DecisionID, "cross-encoder boost should promote the on-topic decision despite its lower BM25 rank")
}

func TestEngine_IndexAndStats(t *testing.T) {
	decisions := NewMockDecisionStore()
	bm25 := &MockBM25Index{}
	vec := &MockVectorStore{
		CountFn: func() int { return 1 },
	}
	embedder := &MockEmbedder{
		EmbedBatchFn: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = make([]float32, 768)
			}
			return out, nil
		},
	}
	sparse := &MockSparseIndex{}

	engine := newTestEngine(t, bm25, vec, embedder, decisions, WithSparseIndex(sparse))

	decision := newTestDecision("1", "4A_1/2022", "Mietrecht", "Fristlose Kuendigung", "bger", "de")
	err := engine.Index(context.Background(), []*store.Decision{decision})
	require.NoError(t, err)

	require.Len(t, bm25.IndexedDocs, 1)
	assert.Equal(t, "1", bm25.IndexedDocs[0].ID)
	assert.Contains(t, decisions.Decisions, "1")
	assert.Equal(t, "768", decisions.State[store.StateKeyIndexDimension])

	stats := engine.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.VectorCount)
}

func TestEngine_DeleteIsBestEffort(t *testing.T) {
	decisions := NewMockDecisionStore()
	bm25Deleted := []string{}
	bm25 := &MockBM25Index{
		DeleteFn: func(_ context.Context, docIDs []string) error {
			bm25Deleted = append(bm25Deleted, docIDs...)
			return nil
		},
	}
	vec := &MockVectorStore{}
	embedder := &MockEmbedder{}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	err := engine.Delete(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, bm25Deleted)
}

func TestEngine_EmptyQueryReturnsNil(t *testing.T) {
	decisions := NewMockDecisionStore()
	bm25 := &MockBM25Index{}
	vec := &MockVectorStore{}
	embedder := &MockEmbedder{}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "   ", SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestEngine_SparseChannelContributes(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "kuendigung", "bger", "de")
	decisions.Decisions["2"] = newTestDecision("2", "", "Mietrecht", "kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}
	sparse := &MockSparseIndex{
		SearchFn: func(_ context.Context, _ map[string]float64, _ int) ([]*store.SparseResult, error) {
			return []*store.SparseResult{{ID: "2", Score: 0.9}}, nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions, WithSparseIndex(sparse))

	results, err := engine.Search(context.Background(), "kuendigung", SearchOptions{Limit: 10})
	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Decision.DecisionID
	}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}

func TestEngine_ExplainAttachesMeta(t *testing.T) {
	decisions := NewMockDecisionStore()
	decisions.Decisions["1"] = newTestDecision("1", "", "Mietrecht", "kuendigung", "bger", "de")

	bm25 := &MockBM25Index{
		SearchFn: func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
			return []*store.BM25Result{{DocID: "1", Score: 5.0}}, nil
		},
	}
	vec := &MockVectorStore{
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		},
	}

	engine := newTestEngine(t, bm25, vec, embedder, decisions)

	results, err := engine.Search(context.Background(), "kuendigung", SearchOptions{Limit: 10, Explain: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ExplainMeta)
	assert.Equal(t, "kuendigung", results[0].ExplainMeta.Query)
	assert.Equal(t, 1, results[0].ExplainMeta.BM25ResultCount)
}

func TestSparseTermWeights(t *testing.T) {
	weights := sparseTermWeights("kuendigung kuendigung mietvertrag")
	require.Contains(t, weights, "kuendigung")
	require.Contains(t, weights, "mietvertrag")
	assert.Greater(t, weights["kuendigung"], weights["mietvertrag"])
}
