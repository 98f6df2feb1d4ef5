package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS news_items")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ps, err := newPostgresStore(context.Background(), db, "")
	if err != nil {
		t.Fatalf("newPostgresStore: %v", err)
	}
	return ps, mock
}

func TestPostgresUpsert(t *testing.T) {
	ps, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (original_url) DO UPDATE SET")).
		WithArgs("제목", `["a","b","c"]`, sqlmock.AnyArg(), "https://example.com/a", 8, "2026-10-14").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ps.Upsert(context.Background(), Record{
		Title:           "제목",
		Summary:         []string{"a", "b", "c"},
		Tags:            []string{"x", "y", "z"},
		OriginalURL:     "https://example.com/a",
		ImportanceScore: 8,
		PublishedAt:     "2026-10-14",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresUpsertError(t *testing.T) {
	ps, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO news_items")).
		WillReturnError(errors.New("connection reset"))

	if err := ps.Upsert(context.Background(), Record{OriginalURL: "https://example.com/a"}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresCountAndRecent(t *testing.T) {
	ps, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM news_items")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rows := sqlmock.NewRows([]string{"title", "summary", "tags", "original_url", "importance_score", "published_at"}).
		AddRow("제목", []byte(`["a","b","c"]`), []byte(`{LLM,OpenAI,agents}`), "https://example.com/a", 8, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY published_at DESC")).WithArgs(5).WillReturnRows(rows)

	n, err := ps.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	recs, err := ps.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.PublishedAt != "2026-10-14" || r.Tags[1] != "OpenAI" || r.Summary[2] != "c" || r.ImportanceScore != 8 {
		t.Errorf("unexpected record %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
