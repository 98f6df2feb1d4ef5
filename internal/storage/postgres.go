package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps records in PostgreSQL: summary as jsonb, tags as text[].
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore connects, pings and makes sure the table exists.
func NewPostgresStore(ctx context.Context, connectionString, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := newPostgresStore(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresStore(ctx context.Context, db *sql.DB, table string) (*PostgresStore, error) {
	table, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	ps := &PostgresStore{db: db, table: table}
	if err := ps.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		summary JSONB NOT NULL,
		tags TEXT[] NOT NULL,
		original_url TEXT UNIQUE NOT NULL,
		importance_score INTEGER NOT NULL,
		published_at DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_published_at ON %[1]s(published_at DESC);
	`, ps.table)

	_, err := ps.db.ExecContext(ctx, schema)
	return err
}

func (ps *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (title, summary, tags, original_url, importance_score, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (original_url) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			tags = EXCLUDED.tags,
			importance_score = EXCLUDED.importance_score,
			published_at = EXCLUDED.published_at
	`, ps.table)

	_, err = ps.db.ExecContext(ctx, query, rec.Title, string(summary), pq.Array(rec.Tags), rec.OriginalURL, rec.ImportanceScore, rec.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", rec.OriginalURL, err)
	}
	return nil
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	var total int
	err := ps.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ps.table)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, nil
}

func (ps *PostgresStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}

	query := fmt.Sprintf(`
		SELECT title, summary, tags, original_url, importance_score, published_at
		FROM %s
		ORDER BY published_at DESC, id DESC
		LIMIT $1
	`, ps.table)

	rows, err := ps.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		var (
			rec       Record
			summary   []byte
			published time.Time
		)
		if err := rows.Scan(&rec.Title, &summary, pq.Array(&rec.Tags), &rec.OriginalURL, &rec.ImportanceScore, &published); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal(summary, &rec.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary of %s: %w", rec.OriginalURL, err)
		}
		rec.PublishedAt = published.Format(DateLayout)
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
