package news

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// MaxContentRunes caps the body text carried by a RawArticle.
const MaxContentRunes = 2000

// RawArticle is one syndicated entry that survived collection.
type RawArticle struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
	Source      string
}

// Analysis is the validated result of scoring one RawArticle.
type Analysis struct {
	Title           string   `json:"title"`
	Summary         []string `json:"summary"`
	Tags            []string `json:"tags"`
	ImportanceScore int      `json:"importance_score"`
}

// CuratedArticle merges a RawArticle with its Analysis.
// Title is the localized title, OriginalTitle the one found in the feed.
type CuratedArticle struct {
	Title           string
	OriginalTitle   string
	URL             string
	Content         string
	PublishedAt     time.Time
	Source          string
	Summary         []string
	Tags            []string
	ImportanceScore int
}

// Analyzer scores a single article. Any error means "no result".
type Analyzer interface {
	Analyze(ctx context.Context, article RawArticle) (Analysis, error)
}

// AnalysisFailure records an article dropped because its analysis failed.
type AnalysisFailure struct {
	Article RawArticle
	Err     error
}

// Selection is the outcome of Select.
type Selection struct {
	Curated  []CuratedArticle
	Analyzed int
	Failures []AnalysisFailure
}

// Merge builds the curated record for an article and its analysis.
func Merge(article RawArticle, analysis Analysis) CuratedArticle {
	return CuratedArticle{
		Title:           analysis.Title,
		OriginalTitle:   article.Title,
		URL:             article.URL,
		Content:         article.Content,
		PublishedAt:     article.PublishedAt,
		Source:          article.Source,
		Summary:         analysis.Summary,
		Tags:            analysis.Tags,
		ImportanceScore: analysis.ImportanceScore,
	}
}

// Select analyzes every article in order, drops the ones without a valid
// analysis, ranks the rest by importance score and keeps the first limit.
// Equal scores keep collection order. limit <= 0 keeps every survivor.
func Select(ctx context.Context, articles []RawArticle, analyzer Analyzer, limit int, logger *slog.Logger) Selection {
	if logger == nil {
		logger = slog.Default()
	}

	var sel Selection
	curated := make([]CuratedArticle, 0, len(articles))

	logger.Info("analyzing articles", "count", len(articles))
	for i, article := range articles {
		analysis, err := analyzer.Analyze(ctx, article)
		if err != nil {
			sel.Failures = append(sel.Failures, AnalysisFailure{Article: article, Err: err})
			continue
		}
		sel.Analyzed++
		logger.Debug("article analyzed", "n", i+1, "title", article.Title, "score", analysis.ImportanceScore)
		curated = append(curated, Merge(article, analysis))
	}

	Rank(curated)

	if limit > 0 && len(curated) > limit {
		curated = curated[:limit]
	}
	sel.Curated = curated

	logger.Info("selected top articles", "selected", len(sel.Curated), "analyzed", sel.Analyzed, "failed", len(sel.Failures))
	return sel
}

// Rank sorts by importance score, highest first, keeping input order on ties.
func Rank(items []CuratedArticle) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ImportanceScore > items[j].ImportanceScore
	})
}
