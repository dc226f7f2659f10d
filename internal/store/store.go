package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	sq "github.com/Masterminds/squirrel"
	"github.com/gowebpki/jcs"
	_ "github.com/mattn/go-sqlite3"
)

// Store represents the SQLite-based cache of appeal names and generated summaries
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "opslearning.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	// Appeal names used to contextualize excerpts
	appealsTable := `
	CREATE TABLE IF NOT EXISTS appeals (
		code TEXT PRIMARY KEY,
		name TEXT,
		date_fetched DATETIME
	);`

	// Validated summaries, one row per run and mode
	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		mode TEXT,
		content TEXT,
		content_digest TEXT,
		excerpt_ids TEXT,
		model_used TEXT,
		attempts INTEGER,
		repaired INTEGER,
		date_generated DATETIME
	);`

	digestIndex := `CREATE INDEX IF NOT EXISTS idx_summaries_digest ON summaries (content_digest);`

	statements := []string{appealsTable, summariesTable, digestIndex}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CacheAppeals stores appeal names, replacing earlier entries for the same code
func (s *Store) CacheAppeals(appeals []core.Appeal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO appeals (code, name, date_fetched) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, appeal := range appeals {
		if appeal.Code == "" {
			continue
		}
		if _, err := stmt.Exec(appeal.Code, appeal.Name, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to cache appeal %s: %w", appeal.Code, err)
		}
	}

	return tx.Commit()
}

// GetAppealNames returns the cached names for the given codes that are newer
// than maxAge. Codes without a fresh entry are absent from the result.
func (s *Store) GetAppealNames(codes []string, maxAge time.Duration) (map[string]string, error) {
	names := make(map[string]string)
	if len(codes) == 0 {
		return names, nil
	}

	query, args, err := sq.Select("code", "name").
		From("appeals").
		Where(sq.Eq{"code": codes}).
		Where(sq.Gt{"date_fetched": time.Now().UTC().Add(-maxAge)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build appeal query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appeals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("failed to scan appeal: %w", err)
		}
		names[code] = name
	}

	return names, rows.Err()
}

// SaveSummary stores a validated summary and returns the canonical digest of its content
func (s *Store) SaveSummary(summary core.Summary) (string, error) {
	content, err := json.Marshal(summary.Content)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary content: %w", err)
	}

	digest, err := ContentDigest(content)
	if err != nil {
		return "", err
	}

	excerptIDs, err := json.Marshal(summary.ExcerptIDs)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode excerpt ids: %v", core.ErrParse, err)
	}

	query := `
	INSERT OR REPLACE INTO summaries
	(id, run_id, mode, content, content_digest, excerpt_ids, model_used, attempts, repaired, date_generated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		summary.ID,
		summary.RunID,
		string(summary.Mode),
		string(content),
		digest,
		string(excerptIDs),
		summary.ModelUsed,
		summary.Attempts,
		summary.Repaired,
		summary.DateGenerated,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	return digest, nil
}

// GetSummaryByDigest returns the most recent summary with the given content digest
func (s *Store) GetSummaryByDigest(digest string) (*core.Summary, error) {
	query := `
	SELECT id, run_id, mode, content, excerpt_ids, model_used, attempts, repaired, date_generated
	FROM summaries
	WHERE content_digest = ?
	ORDER BY date_generated DESC
	LIMIT 1`

	summary, err := scanSummary(s.db.QueryRow(query, digest))
	if err == sql.ErrNoRows {
		return nil, nil // Cache miss
	}
	return summary, err
}

// ListRunSummaries returns the summaries of one run, primary first
func (s *Store) ListRunSummaries(runID string) ([]core.Summary, error) {
	query := `
	SELECT id, run_id, mode, content, excerpt_ids, model_used, attempts, repaired, date_generated
	FROM summaries
	WHERE run_id = ?
	ORDER BY mode ASC`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []core.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	return summaries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*core.Summary, error) {
	var summary core.Summary
	var mode, content, excerptIDs string

	err := row.Scan(
		&summary.ID,
		&summary.RunID,
		&mode,
		&content,
		&excerptIDs,
		&summary.ModelUsed,
		&summary.Attempts,
		&summary.Repaired,
		&summary.DateGenerated,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}

	summary.Mode = core.Mode(mode)
	if err := json.Unmarshal([]byte(content), &summary.Content); err != nil {
		return nil, fmt.Errorf("%w: stored summary content: %v", core.ErrParse, err)
	}
	if err := json.Unmarshal([]byte(excerptIDs), &summary.ExcerptIDs); err != nil {
		return nil, fmt.Errorf("%w: stored excerpt ids: %v", core.ErrParse, err)
	}

	return &summary, nil
}

// CacheStats represents cache statistics
type CacheStats struct {
	AppealCount  int
	SummaryCount int
	CacheSize    int64
	LastUpdated  time.Time
}

// GetCacheStats returns statistics about the cache
func (s *Store) GetCacheStats() (*CacheStats, error) {
	stats := &CacheStats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM appeals":   &stats.AppealCount,
		"SELECT COUNT(*) FROM summaries": &stats.SummaryCount,
	}

	for query, target := range queries {
		err := s.db.QueryRow(query).Scan(target)
		if err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// ClearCache removes all cached data
func (s *Store) ClearCache() error {
	tables := []string{"appeals", "summaries"}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("failed to clear %s table: %w", table, err)
		}
	}

	// Vacuum to reclaim space
	_, err := s.db.Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// CleanupOldCache removes appeal names older than appealMaxAge
func (s *Store) CleanupOldCache(appealMaxAge time.Duration) error {
	_, err := sq.Delete("appeals").
		Where(sq.Lt{"date_fetched": time.Now().UTC().Add(-appealMaxAge)}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to clean old appeals: %w", err)
	}
	return nil
}

// ContentDigest returns the sha256 of the RFC 8785 canonical form of a JSON document
func ContentDigest(content []byte) (string, error) {
	canonical, err := jcs.Transform(content)
	if err != nil {
		return "", fmt.Errorf("%w: failed to canonicalize content: %v", core.ErrParse, err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
