package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidWatch = errors.New("invalid watch")
)

const timeLayout = time.RFC3339

type DB struct {
	sql *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS watches (
  id                 INTEGER PRIMARY KEY,
  brand              TEXT NOT NULL,
  reference          TEXT NOT NULL,
  msrp_cents         INTEGER NOT NULL CHECK (msrp_cents >= 0),
  brand_discount_bps INTEGER NOT NULL DEFAULT 0 CHECK (brand_discount_bps BETWEEN 0 AND 10000),
  created_at         TEXT NOT NULL,
  updated_at         TEXT NOT NULL,
  UNIQUE(brand, reference)
);
CREATE TABLE IF NOT EXISTS evaluations (
  id                 INTEGER PRIMARY KEY,
  occurred_at        TEXT NOT NULL,
  brand              TEXT NOT NULL,
  reference          TEXT NOT NULL,
  lowest_source      TEXT,
  lowest_cents       INTEGER NOT NULL DEFAULT 0,
  brand_target_cents INTEGER NOT NULL,
  range_low_cents    INTEGER NOT NULL,
  range_high_cents   INTEGER NOT NULL,
  source_errors      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_evaluations_time ON evaluations(occurred_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_watch ON evaluations(brand, reference, occurred_at);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db, now: time.Now}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

type BrandStats struct {
	Brand           string `json:"brand"`
	WatchCount      int    `json:"watchCount"`
	EvaluationCount int    `json:"evaluationCount"`
}

// GetStats counts watches and recorded evaluations per brand.
func (d *DB) GetStats(ctx context.Context) ([]BrandStats, error) {
	query := `
		SELECT
			w.brand,
			COUNT(DISTINCT w.id),
			(SELECT COUNT(*) FROM evaluations e WHERE e.brand = w.brand)
		FROM
			watches w
		GROUP BY
			w.brand
		ORDER BY
			w.brand;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []BrandStats
	for rows.Next() {
		var s BrandStats
		if err := rows.Scan(&s.Brand, &s.WatchCount, &s.EvaluationCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (d *DB) timestamp() string {
	return d.now().UTC().Format(timeLayout)
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
