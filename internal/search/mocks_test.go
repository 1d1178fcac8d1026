package search

import (
	"context"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// MockBM25Index implements store.BM25Index with overridable Fn fields,
// defaulting to empty/no-op behavior when a field is left nil.
type MockBM25Index struct {
	IndexFn  func(ctx context.Context, docs []*store.Document) error
	SearchFn func(ctx context.Context, query string, limit int) ([]*store.BM25Result, error)
	DeleteFn func(ctx context.Context, docIDs []string) error
	StatsFn  func() *store.IndexStats

	IndexedDocs []*store.Document
}

func (m *MockBM25Index) Index(ctx context.Context, docs []*store.Document) error {
	m.IndexedDocs = append(m.IndexedDocs, docs...)
	if m.IndexFn != nil {
		return m.IndexFn(ctx, docs)
	}
	return nil
}

func (m *MockBM25Index) Search(ctx context.Context, query string, limit int) ([]*store.BM25Result, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *MockBM25Index) Delete(ctx context.Context, docIDs []string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, docIDs)
	}
	return nil
}

func (m *MockBM25Index) AllIDs() ([]string, error) { return nil, nil }

func (m *MockBM25Index) Stats() *store.IndexStats {
	if m.StatsFn != nil {
		return m.StatsFn()
	}
	return &store.IndexStats{}
}

func (m *MockBM25Index) Save(path string) error { return nil }
func (m *MockBM25Index) Load(path string) error { return nil }
func (m *MockBM25Index) Close() error           { return nil }

// MockVectorStore implements store.VectorStore with overridable Fn fields.
type MockVectorStore struct {
	AddFn    func(ctx context.Context, ids []string, vectors [][]float32) error
	SearchFn func(ctx context.Context, query []float32, k int) ([]*store.VectorResult, error)
	DeleteFn func(ctx context.Context, ids []string) error
	CountFn  func() int

	AddedIDs     []string
	AddedVectors [][]float32
}

func (m *MockVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	m.AddedIDs = append(m.AddedIDs, ids...)
	m.AddedVectors = append(m.AddedVectors, vectors...)
	if m.AddFn != nil {
		return m.AddFn(ctx, ids, vectors)
	}
	return nil
}

func (m *MockVectorStore) Search(ctx context.Context, query []float32, k int) ([]*store.VectorResult, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, k)
	}
	return nil, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ids)
	}
	return nil
}

func (m *MockVectorStore) AllIDs() []string   { return nil }
func (m *MockVectorStore) Contains(string) bool { return false }

func (m *MockVectorStore) Count() int {
	if m.CountFn != nil {
		return m.CountFn()
	}
	return 0
}

func (m *MockVectorStore) Save(path string) error { return nil }
func (m *MockVectorStore) Load(path string) error { return nil }
func (m *MockVectorStore) Close() error           { return nil }

// MockSparseIndex implements store.SparseIndex with overridable Fn fields.
type MockSparseIndex struct {
	IndexFn  func(ctx context.Context, decisionID string, termWeights map[string]float64) error
	SearchFn func(ctx context.Context, queryTerms map[string]float64, k int) ([]*store.SparseResult, error)
	DeleteFn func(ctx context.Context, decisionIDs []string) error
}

func (m *MockSparseIndex) Index(ctx context.Context, decisionID string, termWeights map[string]float64) error {
	if m.IndexFn != nil {
		return m.IndexFn(ctx, decisionID, termWeights)
	}
	return nil
}

func (m *MockSparseIndex) Search(ctx context.Context, queryTerms map[string]float64, k int) ([]*store.SparseResult, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, queryTerms, k)
	}
	return nil, nil
}

func (m *MockSparseIndex) Delete(ctx context.Context, decisionIDs []string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, decisionIDs)
	}
	return nil
}

func (m *MockSparseIndex) Close() error { return nil }

// MockDecisionStore implements store.DecisionStore with overridable Fn
// fields and a built-in map for GetDecision/GetDecisionByDocket so most
// tests can just pre-populate Decisions.
type MockDecisionStore struct {
	Decisions map[string]*store.Decision
	State     map[string]string

	SaveDecisionsFn      func(ctx context.Context, decisions []*store.Decision) error
	GetDecisionByDocketFn func(ctx context.Context, docket string, exact bool) (*store.Decision, error)
	CountDecisionsFn     func(ctx context.Context) (int, error)
}

func NewMockDecisionStore() *MockDecisionStore {
	return &MockDecisionStore{
		Decisions: make(map[string]*store.Decision),
		State:     make(map[string]string),
	}
}

func (m *MockDecisionStore) SaveDecisions(ctx context.Context, decisions []*store.Decision) error {
	for _, d := range decisions {
		m.Decisions[d.DecisionID] = d
	}
	if m.SaveDecisionsFn != nil {
		return m.SaveDecisionsFn(ctx, decisions)
	}
	return nil
}

func (m *MockDecisionStore) GetDecision(ctx context.Context, decisionID string) (*store.Decision, error) {
	return m.Decisions[decisionID], nil
}

func (m *MockDecisionStore) GetDecisionByDocket(ctx context.Context, docket string, exact bool) (*store.Decision, error) {
	if m.GetDecisionByDocketFn != nil {
		return m.GetDecisionByDocketFn(ctx, docket, exact)
	}
	for _, d := range m.Decisions {
		if exact {
			if d.DocketNumber == docket {
				return d, nil
			}
			continue
		}
		if d.DocketNumber != "" && strings.Contains(d.DocketNumber, docket) {
			return d, nil
		}
	}
	return nil, nil
}

func (m *MockDecisionStore) FindDecisionsByDocketNormalized(ctx context.Context, normalized string, limit int) ([]*store.Decision, error) {
	var results []*store.Decision
	for _, d := range m.Decisions {
		if store.NormalizeDocket(d.DocketNumber) == normalized {
			results = append(results, d)
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockDecisionStore) FindDocketFamily(ctx context.Context, courtPrefix, year string, targetSerial, radius, limit int) ([]*store.Decision, error) {
	return nil, nil
}

func (m *MockDecisionStore) ListCourts(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var courts []string
	for _, d := range m.Decisions {
		if !seen[d.Court] {
			seen[d.Court] = true
			courts = append(courts, d.Court)
		}
	}
	return courts, nil
}

func (m *MockDecisionStore) CountDecisions(ctx context.Context) (int, error) {
	if m.CountDecisionsFn != nil {
		return m.CountDecisionsFn(ctx)
	}
	return len(m.Decisions), nil
}

func (m *MockDecisionStore) SaveStatuteReferences(ctx context.Context, refs []*store.StatuteReference) error {
	return nil
}

func (m *MockDecisionStore) FindDecisionsByStatute(ctx context.Context, lawCode, article string) ([]string, error) {
	return nil, nil
}

func (m *MockDecisionStore) TrendByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string) (map[int]int, error) {
	return nil, nil
}

func (m *MockDecisionStore) TrendByQuery(ctx context.Context, query, court, dateFrom, dateTo string) (map[int]int, error) {
	return nil, nil
}

func (m *MockDecisionStore) GetState(ctx context.Context, key string) (string, error) {
	return m.State[key], nil
}

func (m *MockDecisionStore) SetState(ctx context.Context, key, value string) error {
	m.State[key] = value
	return nil
}

func (m *MockDecisionStore) Close() error { return nil }

// MockGraphStore implements store.GraphStore with overridable Fn fields.
type MockGraphStore struct {
	OutgoingCitationsFn  func(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*store.CitationReference, error)
	IncomingCitationsFn  func(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*store.CitationReference, error)
	CountIncomingFn      func(ctx context.Context, decisionID string) (int, error)
	MostCitedAmongFn     func(ctx context.Context, decisionIDs []string, limit int) (map[string]int, error)
	DecisionsForStatuteFn func(ctx context.Context, lawCode, article string) ([]string, error)
}

func (m *MockGraphStore) OutgoingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*store.CitationReference, error) {
	if m.OutgoingCitationsFn != nil {
		return m.OutgoingCitationsFn(ctx, decisionID, minConfidence, limit)
	}
	return nil, nil
}

func (m *MockGraphStore) IncomingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*store.CitationReference, error) {
	if m.IncomingCitationsFn != nil {
		return m.IncomingCitationsFn(ctx, decisionID, minConfidence, limit)
	}
	return nil, nil
}

func (m *MockGraphStore) CountIncoming(ctx context.Context, decisionID string) (int, error) {
	if m.CountIncomingFn != nil {
		return m.CountIncomingFn(ctx, decisionID)
	}
	return 0, nil
}

func (m *MockGraphStore) MostCitedByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string, limit int) (map[string]int, error) {
	return nil, nil
}

func (m *MockGraphStore) MostCitedGlobal(ctx context.Context, court, dateFrom, dateTo string, limit int) (map[string]int, error) {
	return nil, nil
}

func (m *MockGraphStore) MostCitedAmong(ctx context.Context, decisionIDs []string, limit int) (map[string]int, error) {
	if m.MostCitedAmongFn != nil {
		return m.MostCitedAmongFn(ctx, decisionIDs, limit)
	}
	return nil, nil
}

func (m *MockGraphStore) DecisionsForStatute(ctx context.Context, lawCode, article string) ([]string, error) {
	if m.DecisionsForStatuteFn != nil {
		return m.DecisionsForStatuteFn(ctx, lawCode, article)
	}
	return nil, nil
}

func (m *MockGraphStore) Close() error { return nil }

// MockEmbedder implements embed.Embedder for testing.
type MockEmbedder struct {
	EmbedFn      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFn func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFn func() int
	ModelNameFn  func() string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return make([]float32, m.Dimensions()), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedBatchFn != nil {
		return m.EmbedBatchFn(ctx, texts)
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = make([]float32, m.Dimensions())
	}
	return result, nil
}

func (m *MockEmbedder) Dimensions() int {
	if m.DimensionsFn != nil {
		return m.DimensionsFn()
	}
	return 768
}

func (m *MockEmbedder) ModelName() string {
	if m.ModelNameFn != nil {
		return m.ModelNameFn()
	}
	return "test-model"
}

func (m *MockEmbedder) Available(ctx context.Context) bool { return true }
func (m *MockEmbedder) Close() error                       { return nil }

// MockClassifier implements Classifier for testing.
type MockClassifier struct {
	ClassifyFn func(ctx context.Context, query string) (QueryType, Weights, error)
}

func (m *MockClassifier) Classify(ctx context.Context, query string) (QueryType, Weights, error) {
	if m.ClassifyFn != nil {
		return m.ClassifyFn(ctx, query)
	}
	return QueryTypeMixed, DefaultWeights(), nil
}

// MockReranker implements Reranker for testing.
type MockReranker struct {
	RerankFn      func(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)
	AvailableFn   func(ctx context.Context) bool
}

func (m *MockReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	if m.RerankFn != nil {
		return m.RerankFn(ctx, query, documents, topK)
	}
	return nil, nil
}

func (m *MockReranker) Available(ctx context.Context) bool {
	if m.AvailableFn != nil {
		return m.AvailableFn(ctx)
	}
	return true
}

func (m *MockReranker) Close() error { return nil }
