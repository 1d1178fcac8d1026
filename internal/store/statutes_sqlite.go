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

// SQLiteStatutesStore implements StatutesStore over the Fedlex-derived
// laws/articles schema: one row per law (SR number, titles per
// language, abbreviations) and one row per article per language, with
// an FTS5 external-content index over article text for SearchArticles.
type SQLiteStatutesStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ StatutesStore = (*SQLiteStatutesStore)(nil)

// NewSQLiteStatutesStore opens (or creates) the statutes database at
// path. An empty path opens an in-memory database for testing.
func NewSQLiteStatutesStore(path string) (*SQLiteStatutesStore, error) {
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

	s := &SQLiteStatutesStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStatutesStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS laws (
		sr_number TEXT PRIMARY KEY,
		title_de TEXT,
		title_fr TEXT,
		title_it TEXT,
		abbr_de TEXT,
		abbr_fr TEXT,
		abbr_it TEXT,
		consolidation_date TEXT
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sr_number TEXT NOT NULL,
		article_num TEXT NOT NULL,
		heading TEXT,
		text TEXT NOT NULL,
		lang TEXT NOT NULL,
		FOREIGN KEY (sr_number) REFERENCES laws(sr_number)
	);

	CREATE INDEX IF NOT EXISTS idx_articles_sr_art ON articles(sr_number, article_num);
	CREATE INDEX IF NOT EXISTS idx_articles_sr_lang ON articles(sr_number, lang);

	CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
		sr_number,
		article_num,
		heading,
		text,
		lang,
		content='articles',
		content_rowid='id',
		tokenize='unicode61 remove_diacritics 2'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveLaw upserts a law record. Not part of the StatutesStore interface
// but exposed for the Fedlex ingestion pipeline.
func (s *SQLiteStatutesStore) SaveLaw(ctx context.Context, law *Law) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("statutes store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO laws (sr_number, title_de, title_fr, title_it, abbr_de, abbr_fr, abbr_it, consolidation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sr_number) DO UPDATE SET
			title_de = excluded.title_de,
			title_fr = excluded.title_fr,
			title_it = excluded.title_it,
			abbr_de = excluded.abbr_de,
			abbr_fr = excluded.abbr_fr,
			abbr_it = excluded.abbr_it,
			consolidation_date = excluded.consolidation_date
	`, law.SRNumber, law.TitleDE, law.TitleFR, law.TitleIT, law.AbbrDE, law.AbbrFR, law.AbbrIT, law.ConsolidationDate)
	if err != nil {
		return fmt.Errorf("failed to save law %s: %w", law.SRNumber, err)
	}
	return nil
}

// SaveArticle inserts an article and its FTS5 entry. Not part of the
// StatutesStore interface; exposed for ingestion.
func (s *SQLiteStatutesStore) SaveArticle(ctx context.Context, a *Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("statutes store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO articles (sr_number, article_num, heading, text, lang)
		VALUES (?, ?, ?, ?, ?)
	`, a.SRNumber, a.ArticleNum, a.Heading, a.Text, a.Language)
	if err != nil {
		return fmt.Errorf("failed to save article %s %s: %w", a.SRNumber, a.ArticleNum, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to resolve article rowid: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles_fts (rowid, sr_number, article_num, heading, text, lang)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rowID, a.SRNumber, a.ArticleNum, a.Heading, a.Text, a.Language)
	if err != nil {
		return fmt.Errorf("failed to index article %s %s: %w", a.SRNumber, a.ArticleNum, err)
	}

	return tx.Commit()
}

func scanLaw(row interface{ Scan(...any) error }) (*Law, error) {
	var l Law
	if err := row.Scan(&l.SRNumber, &l.TitleDE, &l.TitleFR, &l.TitleIT, &l.AbbrDE, &l.AbbrFR, &l.AbbrIT, &l.ConsolidationDate); err != nil {
		return nil, err
	}
	return &l, nil
}

const lawColumns = `sr_number, title_de, title_fr, title_it, abbr_de, abbr_fr, abbr_it, consolidation_date`

// GetLawBySRNumber resolves a law by its SR (Systematische Rechtssammlung) number.
func (s *SQLiteStatutesStore) GetLawBySRNumber(ctx context.Context, sr string) (*Law, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("statutes store is closed")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+lawColumns+` FROM laws WHERE sr_number = ?`, sr)
	l, err := scanLaw(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get law %s: %w", sr, err)
	}
	return l, nil
}

// GetLawByAbbreviation resolves a law by any of its DE/FR/IT abbreviations.
func (s *SQLiteStatutesStore) GetLawByAbbreviation(ctx context.Context, abbr string) (*Law, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("statutes store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+lawColumns+` FROM laws WHERE abbr_de = ? OR abbr_fr = ? OR abbr_it = ? LIMIT 1`,
		abbr, abbr, abbr)
	l, err := scanLaw(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get law by abbreviation %s: %w", abbr, err)
	}
	return l, nil
}

func scanArticleRows(rows *sql.Rows) ([]*Article, error) {
	var articles []*Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.SRNumber, &a.ArticleNum, &a.Heading, &a.Text, &a.Language); err != nil {
			return nil, err
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

const articleColumns = `sr_number, article_num, heading, text, lang`

// ListArticles returns every article of a law in the given language (or
// every language if language is empty), ordered by article number.
func (s *SQLiteStatutesStore) ListArticles(ctx context.Context, sr, language string) ([]*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("statutes store is closed")
	}

	var rows *sql.Rows
	var err error
	if language == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE sr_number = ? ORDER BY article_num`, sr)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE sr_number = ? AND lang = ? ORDER BY article_num`,
			sr, language)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()
	return scanArticleRows(rows)
}

// GetArticle returns a single article, potentially in multiple
// languages if language is empty.
func (s *SQLiteStatutesStore) GetArticle(ctx context.Context, sr, articleNum, language string) ([]*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("statutes store is closed")
	}

	var rows *sql.Rows
	var err error
	if language == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE sr_number = ? AND article_num = ? ORDER BY lang`,
			sr, articleNum)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE sr_number = ? AND article_num = ? AND lang = ?`,
			sr, articleNum, language)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	defer rows.Close()
	return scanArticleRows(rows)
}

// SearchArticles runs a full-text search over article text, optionally
// restricted to a single law and/or language.
func (s *SQLiteStatutesStore) SearchArticles(ctx context.Context, query, sr, language string, limit int) ([]*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("statutes store is closed")
	}

	if strings.TrimSpace(query) == "" {
		return []*Article{}, nil
	}

	sqlQuery := strings.Builder{}
	sqlQuery.WriteString(`
		SELECT a.sr_number, a.article_num, a.heading, a.text, a.lang
		FROM articles_fts f
		JOIN articles a ON a.id = f.rowid
		WHERE articles_fts MATCH ?
	`)
	args := []any{query}
	if sr != "" {
		sqlQuery.WriteString(" AND a.sr_number = ?")
		args = append(args, sr)
	}
	if language != "" {
		sqlQuery.WriteString(" AND a.lang = ?")
		args = append(args, language)
	}
	sqlQuery.WriteString(" ORDER BY bm25(articles_fts) LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery.String(), args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []*Article{}, nil
		}
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()
	return scanArticleRows(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStatutesStore) Close() error {
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
