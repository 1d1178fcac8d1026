package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteDecisionStore implements DecisionStore over a relational schema
// mirroring the corpus's "decisions" table plus the statute references
// extracted from each decision (C1 data model). It follows the same
// WAL-mode, single-writer, corruption-recovery conventions as
// SQLiteBM25Index so the two stores behave identically under concurrent
// index/search load.
type SQLiteDecisionStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ DecisionStore = (*SQLiteDecisionStore)(nil)

// validateDecisionsIntegrity mirrors validateSQLiteIntegrity but checks
// for the "decisions" table instead of an FTS5 index.
func validateDecisionsIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type='table' AND name='decisions'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table 'decisions' missing")
	}

	return nil
}

// NewSQLiteDecisionStore opens (or creates) the decisions database at
// path. An empty path opens an in-memory database for testing.
func NewSQLiteDecisionStore(path string) (*SQLiteDecisionStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateDecisionsIntegrity(path); validErr != nil {
			slog.Warn("decisions_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("decisions store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("decisions_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteDecisionStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteDecisionStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS decisions (
		decision_id TEXT PRIMARY KEY,
		court TEXT NOT NULL,
		canton TEXT,
		docket_number TEXT NOT NULL,
		docket_normalized TEXT NOT NULL DEFAULT '',
		language TEXT,
		title TEXT,
		regeste TEXT,
		full_text TEXT,
		decision_date TEXT,
		url TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_docket ON decisions(docket_number);
	CREATE INDEX IF NOT EXISTS idx_decisions_court ON decisions(court);
	CREATE INDEX IF NOT EXISTS idx_decisions_date ON decisions(decision_date);
	CREATE INDEX IF NOT EXISTS idx_decisions_docket_normalized ON decisions(docket_normalized);

	CREATE TABLE IF NOT EXISTS statute_references (
		decision_id TEXT NOT NULL,
		law_code TEXT NOT NULL,
		article TEXT NOT NULL,
		paragraph TEXT NOT NULL DEFAULT '',
		mentions INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (decision_id, law_code, article, paragraph)
	);

	CREATE INDEX IF NOT EXISTS idx_statute_refs_lookup
		ON statute_references(law_code, article);

	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDecisions upserts a batch of decisions.
func (s *SQLiteDecisionStore) SaveDecisions(ctx context.Context, decisions []*Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (
			decision_id, court, canton, docket_number, docket_normalized, language,
			title, regeste, full_text, decision_date, url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(decision_id) DO UPDATE SET
			court = excluded.court,
			canton = excluded.canton,
			docket_number = excluded.docket_number,
			docket_normalized = excluded.docket_normalized,
			language = excluded.language,
			title = excluded.title,
			regeste = excluded.regeste,
			full_text = excluded.full_text,
			decision_date = excluded.decision_date,
			url = excluded.url,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range decisions {
		createdAt := now
		if !d.CreatedAt.IsZero() {
			createdAt = d.CreatedAt.UTC().Format(time.RFC3339)
		}
		updatedAt := now
		if !d.UpdatedAt.IsZero() {
			updatedAt = d.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx,
			d.DecisionID, d.Court, d.Canton, d.DocketNumber, NormalizeDocket(d.DocketNumber), d.Language,
			d.Title, d.Regeste, d.FullText, d.DecisionDate, d.URL,
			createdAt, updatedAt,
		); err != nil {
			return fmt.Errorf("failed to save decision %s: %w", d.DecisionID, err)
		}
	}

	return tx.Commit()
}

// NormalizeDocket strips all non-alphanumeric characters and lowercases
// the result, so docket numbers written with different separator
// conventions ("4A_123/2021" vs "4a-123/2021") collapse to the same key
// (spec §4.2 normalize_docket; R1: idempotent).
func NormalizeDocket(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

func scanDecision(row interface{ Scan(...any) error }) (*Decision, error) {
	var d Decision
	var docketNormalized string
	var createdAt, updatedAt string
	if err := row.Scan(
		&d.DecisionID, &d.Court, &d.Canton, &d.DocketNumber, &docketNormalized, &d.Language,
		&d.Title, &d.Regeste, &d.FullText, &d.DecisionDate, &d.URL,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

const decisionColumns = `decision_id, court, canton, docket_number, docket_normalized, language,
	title, regeste, full_text, decision_date, url, created_at, updated_at`

// GetDecision resolves a decision by its canonical ID.
func (s *SQLiteDecisionStore) GetDecision(ctx context.Context, decisionID string) (*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE decision_id = ?`, decisionID)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision %s: %w", decisionID, err)
	}
	return d, nil
}

// GetDecisionByDocket resolves a decision by exact or partial docket
// match, newest decision first.
func (s *SQLiteDecisionStore) GetDecisionByDocket(ctx context.Context, docket string, exact bool) (*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var row *sql.Row
	if exact {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+decisionColumns+` FROM decisions
			 WHERE docket_number = ?
			 ORDER BY decision_date DESC LIMIT 1`, docket)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+decisionColumns+` FROM decisions
			 WHERE docket_number LIKE ?
			 ORDER BY decision_date DESC LIMIT 1`, "%"+docket+"%")
	}

	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision by docket %s: %w", docket, err)
	}
	return d, nil
}

// FindDecisionsByDocketNormalized returns every decision whose docket
// normalizes to the given key (built from all of the docket-fast-path's
// separator permutations plus the canonical form, which all collapse to
// the same normalized key), newest first, capped at limit. Used by
// search.Engine's docket fast path (spec §4.4.1).
func (s *SQLiteDecisionStore) FindDecisionsByDocketNormalized(ctx context.Context, normalized string, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if normalized == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions
		 WHERE docket_normalized = ?
		 ORDER BY decision_date DESC LIMIT ?`, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find decisions by normalized docket %s: %w", normalized, err)
	}
	defer rows.Close()

	var results []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// FindDocketFamily returns decisions sharing courtPrefix and year in
// their docket number, with a docket serial within radius of
// targetSerial, ordered by |serial - targetSerial| ascending and capped
// at limit. Used by the docket fast path to backfill near neighbors
// when the exact/partial match yields fewer than the requested page
// (spec §4.4.1: "same court prefix, same year, ±40 in the serial").
//
// The LIKE scan is bounded to 500 candidate rows before the in-memory
// serial filter, trading a small amount of recall on pathologically
// large single-court/year dockets for a bounded query cost.
func (s *SQLiteDecisionStore) FindDocketFamily(ctx context.Context, courtPrefix, year string, targetSerial, radius, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if courtPrefix == "" || year == "" {
		return nil, nil
	}

	pattern := courtPrefix + "%" + year + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions
		 WHERE docket_normalized LIKE ?
		 ORDER BY decision_date DESC LIMIT 500`, strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan docket family %s/%s: %w", courtPrefix, year, err)
	}
	defer rows.Close()

	type candidate struct {
		decision *Decision
		serial   int
		dist     int
	}
	var candidates []candidate
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		serial, ok := extractDocketSerial(d.DocketNumber, year)
		if !ok {
			continue
		}
		dist := serial - targetSerial
		if dist < 0 {
			dist = -dist
		}
		if dist > radius {
			continue
		}
		candidates = append(candidates, candidate{decision: d, serial: serial, dist: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].decision.DecisionDate > candidates[j].decision.DecisionDate
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]*Decision, len(candidates))
	for i, c := range candidates {
		results[i] = c.decision
	}
	return results, nil
}

// extractDocketSerial recovers the serial number from a raw (not
// normalized) docket number already known to contain year: it splits on
// the original separators, which is what keeps the serial and year
// digit runs apart, then returns the longest remaining run that isn't
// the year itself. Operating on the normalized form would not work —
// normalization strips separators entirely, so a serial immediately
// followed by a year (e.g. "4A_123/2021" -> "4a1232021") collapses into
// one indistinguishable digit run.
func extractDocketSerial(docket, year string) (int, bool) {
	var best string
	var run strings.Builder
	flush := func() {
		if run.Len() == 0 {
			return
		}
		candidate := run.String()
		if candidate != year && len(candidate) > len(best) {
			best = candidate
		}
		run.Reset()
	}
	for _, r := range docket {
		if r >= '0' && r <= '9' {
			run.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	if best == "" {
		return 0, false
	}
	n, err := strconv.Atoi(best)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ListCourts returns the distinct set of courts present in the corpus.
func (s *SQLiteDecisionStore) ListCourts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT court FROM decisions WHERE court != '' ORDER BY court`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courts: %w", err)
	}
	defer rows.Close()

	var courts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

// CountDecisions returns the total number of decisions in the corpus.
func (s *SQLiteDecisionStore) CountDecisions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return count, nil
}

// ListAllForEmbedding streams every decision in the corpus ordered by
// decision_id, used by `caselaw compact` to rebuild the vector index
// from scratch since embeddings themselves are not persisted outside
// of the HNSW graph.
func (s *SQLiteDecisionStore) ListAllForEmbedding(ctx context.Context) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions ORDER BY decision_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var results []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// SaveStatuteReferences upserts statute references extracted for a decision.
func (s *SQLiteDecisionStore) SaveStatuteReferences(ctx context.Context, refs []*StatuteReference) error {
	if len(refs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statute_references (decision_id, law_code, article, paragraph, mentions)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(decision_id, law_code, article, paragraph) DO UPDATE SET
			mentions = excluded.mentions
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statute reference upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range refs {
		if _, err := stmt.ExecContext(ctx, r.DecisionID, r.LawCode, r.Article, r.Paragraph, r.Mentions); err != nil {
			return fmt.Errorf("failed to save statute reference for %s: %w", r.DecisionID, err)
		}
	}

	return tx.Commit()
}

// FindDecisionsByStatute returns decision IDs citing a given law/article.
func (s *SQLiteDecisionStore) FindDecisionsByStatute(ctx context.Context, lawCode, article string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var rows *sql.Rows
	var err error
	if article == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT DISTINCT decision_id FROM statute_references WHERE law_code = ?`, lawCode)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT DISTINCT decision_id FROM statute_references WHERE law_code = ? AND article = ?`,
			lawCode, article)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find decisions by statute: %w", err)
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

// buildDateCourtFilter appends optional court/date-range predicates to
// a query fragment already filtered on the decisions table, aliased d.
func buildDateCourtFilter(court, dateFrom, dateTo string) (string, []any) {
	var clauses []string
	var args []any
	if court != "" {
		clauses = append(clauses, "d.court = ?")
		args = append(args, court)
	}
	if dateFrom != "" {
		clauses = append(clauses, "d.decision_date >= ?")
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		clauses = append(clauses, "d.decision_date <= ?")
		args = append(args, dateTo)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// yearFromDate extracts the year component (first 4 chars) of an ISO
// yyyy-mm-dd date string; returns 0 if it can't be parsed.
func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

// TrendByStatute returns year -> count of decisions citing a given
// law/article, filtered optionally by court and date range.
func (s *SQLiteDecisionStore) TrendByStatute(ctx context.Context, lawCode, article, court, dateFrom, dateTo string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	filter, filterArgs := buildDateCourtFilter(court, dateFrom, dateTo)

	query := `
		SELECT d.decision_date
		FROM statute_references sr
		JOIN decisions d ON d.decision_id = sr.decision_id
		WHERE sr.law_code = ?` + statuteArticleClause(article) + filter

	args := append([]any{lawCode}, statuteArticleArgs(article)...)
	args = append(args, filterArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trend by statute: %w", err)
	}
	defer rows.Close()

	trend := make(map[int]int)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		if y := yearFromDate(date); y != 0 {
			trend[y]++
		}
	}
	return trend, rows.Err()
}

func statuteArticleClause(article string) string {
	if article == "" {
		return ""
	}
	return " AND sr.article = ?"
}

func statuteArticleArgs(article string) []any {
	if article == "" {
		return nil
	}
	return []any{article}
}

// TrendByQuery returns year -> count of decisions matching a full-text
// query, filtered optionally by court and date range. The query itself
// is resolved against decision_id/full_text by the caller (the search
// engine); here it is treated as a set of candidate decision IDs joined
// against the relational filters, since the lexical match already
// happened upstream.
func (s *SQLiteDecisionStore) TrendByQuery(ctx context.Context, query, court, dateFrom, dateTo string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	filter, filterArgs := buildDateCourtFilter(court, dateFrom, dateTo)

	sqlQuery := `
		SELECT d.decision_date
		FROM decisions d
		WHERE (d.title LIKE ? OR d.regeste LIKE ?)` + filter

	like := "%" + query + "%"
	args := append([]any{like, like}, filterArgs...)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trend by query: %w", err)
	}
	defer rows.Close()

	trend := make(map[int]int)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		if y := yearFromDate(date); y != 0 {
			trend[y]++
		}
	}
	return trend, rows.Err()
}

// GetState returns the value stored under key, or "" if unset.
func (s *SQLiteDecisionStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a key/value pair in the runtime state table.
func (s *SQLiteDecisionStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteDecisionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
