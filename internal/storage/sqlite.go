package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a local SQLite file. Lists are JSON text.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

func NewSQLiteStore(ctx context.Context, dbPath, table string) (*SQLiteStore, error) {
	table, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, table: table}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			title            TEXT NOT NULL,
			summary          TEXT NOT NULL,
			tags             TEXT NOT NULL,
			original_url     TEXT NOT NULL UNIQUE,
			importance_score INTEGER NOT NULL,
			published_at     TEXT NOT NULL,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_published ON %[1]s(published_at DESC);
	`, s.table))
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (title, summary, tags, original_url, importance_score, published_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_url) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			tags = excluded.tags,
			importance_score = excluded.importance_score,
			published_at = excluded.published_at
	`, s.table), rec.Title, string(summary), string(tags), rec.OriginalURL, rec.ImportanceScore, rec.PublishedAt)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", rec.OriginalURL, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT title, summary, tags, original_url, importance_score, published_at
		FROM %s
		ORDER BY published_at DESC, id DESC
		LIMIT ?
	`, s.table), n)
	if err != nil {
		return nil, fmt.Errorf("querying recent records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var summary, tags string
		if err := rows.Scan(&rec.Title, &summary, &tags, &rec.OriginalURL, &rec.ImportanceScore, &rec.PublishedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &rec.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary of %s: %w", rec.OriginalURL, err)
		}
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", rec.OriginalURL, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
