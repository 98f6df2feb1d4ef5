package storage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/deusflow/aiinsight/internal/news"
	"github.com/deusflow/aiinsight/internal/retry"
)

const untitled = "Untitled"

// SaveFailure is a record that could not be written.
type SaveFailure struct {
	URL string
	Err error
}

type SaveResult struct {
	Saved    int
	Failures []SaveFailure
}

// Persister upserts curated articles one by one. A failed write is
// recorded and the remaining articles are still attempted.
type Persister struct {
	store  Store
	retry  retry.RetryConfig
	logger *slog.Logger
}

func NewPersister(store Store, rc retry.RetryConfig, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{store: store, retry: rc, logger: logger}
}

// ToRecord builds the stored row. The localized title wins, then the
// feed title, then a placeholder.
func ToRecord(a news.CuratedArticle) Record {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = strings.TrimSpace(a.OriginalTitle)
	}
	if title == "" {
		title = untitled
	}
	return Record{
		Title:           title,
		Summary:         a.Summary,
		Tags:            a.Tags,
		OriginalURL:     a.URL,
		ImportanceScore: a.ImportanceScore,
		PublishedAt:     a.PublishedAt.UTC().Format(DateLayout),
	}
}

func (p *Persister) Save(ctx context.Context, articles []news.CuratedArticle) SaveResult {
	var res SaveResult
	p.logger.Info("saving articles", "count", len(articles))

	for _, a := range articles {
		rec := ToRecord(a)
		err := retry.WithRetry(ctx, p.retry, func() error {
			return p.store.Upsert(ctx, rec)
		})
		if err != nil {
			p.logger.Error("save failed", "url", rec.OriginalURL, "title", rec.Title, "error", err)
			res.Failures = append(res.Failures, SaveFailure{URL: rec.OriginalURL, Err: err})
			continue
		}
		res.Saved++
		p.logger.Debug("saved", "url", rec.OriginalURL, "score", rec.ImportanceScore)
	}

	p.logger.Info("save finished", "saved", res.Saved, "total", len(articles))
	return res
}
