// Package storage persists curated articles keyed by their original URL.
package storage

import (
	"context"
	"fmt"
	"regexp"
)

// DateLayout is how published_at is stored: a calendar date, no time of day.
const DateLayout = "2006-01-02"

const DefaultTable = "news_items"

// Record is one stored row.
type Record struct {
	Title           string   `json:"title"`
	Summary         []string `json:"summary"`
	Tags            []string `json:"tags"`
	OriginalURL     string   `json:"original_url"`
	ImportanceScore int      `json:"importance_score"`
	PublishedAt     string   `json:"published_at"`
}

// Store is a backend that can upsert records on original_url.
type Store interface {
	// Upsert inserts rec or overwrites the row sharing its OriginalURL.
	Upsert(ctx context.Context, rec Record) error
	Count(ctx context.Context) (int, error)
	// Recent returns up to n records, newest published_at first.
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkTable guards table names, which end up inside SQL text and URLs.
func checkTable(name string) (string, error) {
	if name == "" {
		return DefaultTable, nil
	}
	if !tableName.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}
