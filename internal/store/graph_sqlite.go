package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteGraphStore implements GraphStore over a resolved citation-edge
// table: one row per (source, target) pair with a confidence score and
// whether the edge is a prior-instance link in an appeal chain. This
// collapses the raw citation-mention table and its separately resolved
// citation-target table (as extraction produces them) into a single
// table, since the store layer only ever needs the resolved edge.
// Lives in its own database file, mirroring the corpus's separation of
// the citation graph from the decisions/FTS stores, so the graph can
// be rebuilt independently without touching the primary corpus.
type SQLiteGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ GraphStore = (*SQLiteGraphStore)(nil)

// NewSQLiteGraphStore opens (or creates) the citation graph database at
// path. An empty path opens an in-memory database for testing.
func NewSQLiteGraphStore(path string) (*SQLiteGraphStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	g := &SQLiteGraphStore{db: db}
	if err := g.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return g, nil
}

func (g *SQLiteGraphStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS citations (
		source_decision_id TEXT NOT NULL,
		target_decision_id TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		is_prior_instance INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (source_decision_id, target_decision_id)
	);

	CREATE INDEX IF NOT EXISTS idx_citations_source ON citations(source_decision_id);
	CREATE INDEX IF NOT EXISTS idx_citations_target ON citations(target_decision_id);

	CREATE TABLE IF NOT EXISTS decision_statutes (
		decision_id TEXT NOT NULL,
		statute_id TEXT NOT NULL,
		mention_count INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (decision_id, statute_id)
	);

	CREATE INDEX IF NOT EXISTS idx_decision_statutes_statute ON decision_statutes(statute_id);
	`
	_, err := g.db.Exec(schema)
	return err
}

// SaveCitations upserts a batch of resolved citation edges. Not part of
// the GraphStore interface (callers needing to read the graph depend
// only on the interface) but exposed so the indexing pipeline can
// populate this store without a second implementation.
func (g *SQLiteGraphStore) SaveCitations(ctx context.Context, refs []*CitationReference) error {
	if len(refs) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("graph store is closed")
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO citations (source_decision_id, target_decision_id, confidence, is_prior_instance)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_decision_id, target_decision_id) DO UPDATE SET
			confidence = excluded.confidence,
			is_prior_instance = excluded.is_prior_instance
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare citation upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range refs {
		priorInstance := 0
		if r.IsPriorInstance {
			priorInstance = 1
		}
		if _, err := stmt.ExecContext(ctx, r.SourceDecisionID, r.TargetDecisionID, r.Confidence, priorInstance); err != nil {
			return fmt.Errorf("failed to save citation %s->%s: %w", r.SourceDecisionID, r.TargetDecisionID, err)
		}
	}
	return tx.Commit()
}

func scanCitationRows(rows *sql.Rows) ([]*CitationReference, error) {
	var refs []*CitationReference
	for rows.Next() {
		var r CitationReference
		var priorInstance int
		if err := rows.Scan(&r.SourceDecisionID, &r.TargetDecisionID, &r.Confidence, &priorInstance); err != nil {
			return nil, err
		}
		r.IsPriorInstance = priorInstance == 1
		refs = append(refs, &r)
	}
	return refs, rows.Err()
}

// OutgoingCitations returns the decisions decisionID cites, ordered by confidence.
func (g *SQLiteGraphStore) OutgoingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*CitationReference, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT source_decision_id, target_decision_id, confidence, is_prior_instance
		FROM citations
		WHERE source_decision_id = ? AND confidence >= ?
		ORDER BY confidence DESC
		LIMIT ?
	`, decisionID, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outgoing citations: %w", err)
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

// IncomingCitations returns the decisions citing decisionID, ordered by confidence.
func (g *SQLiteGraphStore) IncomingCitations(ctx context.Context, decisionID string, minConfidence float64, limit int) ([]*CitationReference, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT source_decision_id, target_decision_id, confidence, is_prior_instance
		FROM citations
		WHERE target_decision_id = ? AND confidence >= ?
		ORDER BY confidence DESC
		LIMIT ?
	`, decisionID, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming citations: %w", err)
	}
	defer rows.Close()
	return scanCitationRows(rows)
}

// CountIncoming returns how many decisions cite decisionID.
func (g *SQLiteGraphStore) CountIncoming(ctx context.Context, decisionID string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return 0, fmt.Errorf("graph store is closed")
	}

	var count int
	err := g.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM citations WHERE target_decision_id = ?`, decisionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incoming citations: %w", err)
	}
	return count, nil
}

func scanCountMap(rows *sql.Rows) (map[string]int, error) {
	result := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		result[id] = n
	}
	return result, rows.Err()
}

// MostCitedByStatute ranks decisions by incoming citation count, restricted
// to decisions that cite lawCode/article, used by find_leading_cases.
func (g *SQLiteGraphStore) MostCitedByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string, limit int) (map[string]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}

	statuteID := lawCode
	if article != "" {
		statuteID = lawCode + ":" + article
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT c.target_decision_id AS decision_id, COUNT(*) AS n
		FROM citations c
		JOIN decision_statutes ds ON ds.decision_id = c.target_decision_id
		WHERE ds.statute_id = ?
		GROUP BY c.target_decision_id
		ORDER BY n DESC
		LIMIT ?
	`, statuteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank by statute citations: %w", err)
	}
	defer rows.Close()
	return scanCountMap(rows)
}

// MostCitedGlobal ranks decisions by total incoming citation count
// across the whole graph, used by find_leading_cases without a
// statute filter.
func (g *SQLiteGraphStore) MostCitedGlobal(ctx context.Context, court, dateFrom, dateTo string, limit int) (map[string]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT target_decision_id, COUNT(*) AS n
		FROM citations
		GROUP BY target_decision_id
		ORDER BY n DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank by global citations: %w", err)
	}
	defer rows.Close()
	return scanCountMap(rows)
}

// MostCitedAmong restricts the global citation ranking to a candidate
// set, used to re-rank a result page by citation weight (C5 signal).
func (g *SQLiteGraphStore) MostCitedAmong(ctx context.Context, decisionIDs []string, limit int) (map[string]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}
	if len(decisionIDs) == 0 {
		return map[string]int{}, nil
	}

	placeholders := make([]string, len(decisionIDs))
	args := make([]any, len(decisionIDs)+1)
	for i, id := range decisionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	args[len(decisionIDs)] = limit

	query := fmt.Sprintf(`
		SELECT target_decision_id, COUNT(*) AS n
		FROM citations
		WHERE target_decision_id IN (%s)
		GROUP BY target_decision_id
		ORDER BY n DESC
		LIMIT ?
	`, strings.Join(placeholders, ","))

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank among candidates: %w", err)
	}
	defer rows.Close()
	return scanCountMap(rows)
}

// DecisionsForStatute returns decision IDs that mention lawCode/article
// in their own statute-reference extraction (distinct from
// FindDecisionsByStatute on DecisionStore, which reads the relational
// copy — this reads the graph-side copy populated alongside citations).
func (g *SQLiteGraphStore) DecisionsForStatute(ctx context.Context, lawCode, article string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, fmt.Errorf("graph store is closed")
	}

	statuteID := lawCode
	if article != "" {
		statuteID = lawCode + ":" + article
	}

	rows, err := g.db.QueryContext(ctx,
		`SELECT decision_id FROM decision_statutes WHERE statute_id = ?`, statuteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions for statute: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountEdges returns the total number of citation edges in the graph,
// used by `caselaw status` to report graph size without pulling every
// row into memory.
func (g *SQLiteGraphStore) CountEdges(ctx context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return 0, fmt.Errorf("graph store is closed")
	}

	var count int
	err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count citation edges: %w", err)
	}
	return count, nil
}

// Close closes the underlying database handle.
func (g *SQLiteGraphStore) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.db != nil {
		_, _ = g.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return g.db.Close()
	}
	return nil
}
