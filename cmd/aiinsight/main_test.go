package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deusflow/aiinsight/internal/storage"
)

func TestStatsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "news.db")
	store, err := storage.NewSQLiteStore(context.Background(), dbPath, "")
	if err != nil {
		t.Fatal(err)
	}
	err = store.Upsert(context.Background(), storage.Record{
		Title:           "오픈AI 새 모델",
		Summary:         []string{"a", "b", "c"},
		Tags:            []string{"LLM", "OpenAI", "GPT"},
		OriginalURL:     "https://example.com/a",
		ImportanceScore: 9,
		PublishedAt:     "2026-10-14",
	})
	store.Close()
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"stats", "--storage", "sqlite", "--limit", "5"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Total records: 1", "[2026-10-14] 오픈AI 새 모델", "Score: 9, Tags: LLM, OpenAI, GPT"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunRejectsMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
	rootCmd.SetArgs([]string{"--dry-run"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
