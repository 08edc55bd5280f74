// Package history provides a SQLite-backed operations log for the
// retrieval engine. Every search and reload is recorded with its outcome
// metrics (result count, diversity score, bias flag, duration) so
// operators can inspect retrieval quality over time without scraping logs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SearchRecord is one logged search operation.
type SearchRecord struct {
	// Query is the raw query text.
	Query string `json:"query"`
	// TopK is the requested (pre-clamp) result count.
	TopK int `json:"topK"`
	// ResultCount is the number of results actually returned.
	ResultCount int `json:"resultCount"`
	// DiversityScore is the diversity score of the returned set.
	DiversityScore float64 `json:"diversityScore"`
	// BiasDetected records whether the returned set still tripped the
	// bias thresholds.
	BiasDetected bool `json:"biasDetected"`
	// Partial records whether the search hit its deadline mid-scoring.
	Partial bool `json:"partial"`
	// Duration is the wall-clock search duration.
	Duration time.Duration `json:"duration"`
	// CreatedAt is when the record was persisted.
	CreatedAt time.Time `json:"createdAt"`
}

// Recorder persists search records. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// RecordSearch persists a single search record.
	RecordSearch(ctx context.Context, rec SearchRecord) error
	// RecentSearches returns the most recent n records, newest first.
	RecentSearches(ctx context.Context, n int) ([]SearchRecord, error)
	// Close releases any resources held by the recorder.
	Close() error
}

// SQLiteStore is a Recorder backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the history database.
// It resolves to ~/.recall/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".recall")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS searches (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    query            TEXT    NOT NULL,
    top_k            INTEGER NOT NULL,
    result_count     INTEGER NOT NULL,
    diversity_score  REAL    NOT NULL,
    bias_detected    INTEGER NOT NULL,
    partial          INTEGER NOT NULL,
    duration_ms      INTEGER NOT NULL,
    created_at       INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_searches_created
    ON searches (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// RecordSearch persists a single search record.
func (s *SQLiteStore) RecordSearch(ctx context.Context, rec SearchRecord) error {
	const q = `
INSERT INTO searches (query, top_k, result_count, diversity_score, bias_detected, partial, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.Query, rec.TopK, rec.ResultCount, rec.DiversityScore,
		boolInt(rec.BiasDetected), boolInt(rec.Partial),
		rec.Duration.Milliseconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("history: record search: %w", err)
	}
	return nil
}

// RecentSearches returns the most recent n search records, newest first.
func (s *SQLiteStore) RecentSearches(ctx context.Context, n int) ([]SearchRecord, error) {
	const q = `
SELECT query, top_k, result_count, diversity_score, bias_detected, partial, duration_ms, created_at
FROM   searches
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent searches: %w", err)
	}
	defer rows.Close()

	var recs []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var biased, partial int
		var durMS, ts int64
		if err := rows.Scan(&rec.Query, &rec.TopK, &rec.ResultCount, &rec.DiversityScore,
			&biased, &partial, &durMS, &ts); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		rec.BiasDetected = biased != 0
		rec.Partial = partial != 0
		rec.Duration = time.Duration(durMS) * time.Millisecond
		rec.CreatedAt = time.Unix(ts, 0)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return recs, nil
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history: ping: %w", err)
	}
	return nil
}

// Name returns the label used in readiness responses.
func (s *SQLiteStore) Name() string { return "history" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}

// boolInt converts a bool to SQLite's integer representation.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
