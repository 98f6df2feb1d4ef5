// Package analyzer asks a text-generation service to translate, summarize,
// tag and score one article, and validates what comes back.
package analyzer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/aiinsight/internal/llm"
	"github.com/deusflow/aiinsight/internal/news"
	"github.com/deusflow/aiinsight/internal/ratelimit"
)

//go:embed prompts/system.md
var systemPrompt string

const (
	DefaultTemperature float32 = 0.3
	DefaultMaxTokens           = 500
)

var (
	ErrService       = errors.New("generation service error")
	ErrMalformedJSON = errors.New("malformed json")
	ErrSchema        = errors.New("schema violation")
	ErrScoreRange    = errors.New("importance score out of range")
	ErrBudget        = errors.New("analysis budget exhausted")
)

// Reason returns a short label for a failed analysis.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBudget):
		return "budget"
	case errors.Is(err, ErrService):
		return "service"
	case errors.Is(err, ErrMalformedJSON):
		return "malformed_json"
	case errors.Is(err, ErrScoreRange):
		return "score_range"
	case errors.Is(err, ErrSchema):
		return "schema"
	default:
		return "unknown"
	}
}

type Config struct {
	// Temperature defaults to DefaultTemperature when nil; zero is sent as is.
	Temperature *float32
	MaxTokens   int
	// Budget caps generation calls; nil means unlimited.
	Budget *ratelimit.Budget
	Logger *slog.Logger
}

// Analyzer scores articles one at a time. Each article gets exactly one
// generation attempt.
type Analyzer struct {
	gen         llm.Generator
	temperature float32
	maxTokens   int
	budget      *ratelimit.Budget
	logger      *slog.Logger
}

func New(gen llm.Generator, cfg Config) *Analyzer {
	a := &Analyzer{
		gen:         gen,
		temperature: DefaultTemperature,
		maxTokens:   cfg.MaxTokens,
		budget:      cfg.Budget,
		logger:      cfg.Logger,
	}
	if cfg.Temperature != nil {
		a.temperature = *cfg.Temperature
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// SystemPrompt returns the curation policy sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the per-article prompt.
func UserPrompt(article news.RawArticle) string {
	return fmt.Sprintf("기사 제목: %s\n\n기사 내용:\n%s\n\n출처: %s", article.Title, article.Content, article.Source)
}

// Analyze returns a valid Analysis or an error wrapping one of the
// package sentinels.
func (a *Analyzer) Analyze(ctx context.Context, article news.RawArticle) (news.Analysis, error) {
	if a.budget != nil {
		if err := a.budget.Use(); err != nil {
			return news.Analysis{}, fmt.Errorf("%w: %w", ErrBudget, err)
		}
	}

	start := time.Now()
	raw, err := a.gen.Generate(ctx, llm.Request{
		System:      systemPrompt,
		User:        UserPrompt(article),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		JSON:        true,
	})
	if err != nil {
		return news.Analysis{}, fmt.Errorf("%w: %w", ErrService, err)
	}

	analysis, err := Parse(raw)
	if err != nil {
		a.logger.Debug("rejected analysis", "url", article.URL, "raw", truncateForLog(raw), "error", err)
		return news.Analysis{}, err
	}

	a.logger.Info("analyzed",
		"title", truncateForLog(article.Title),
		"score", analysis.ImportanceScore,
		"duration", time.Since(start).Round(time.Millisecond))
	return analysis, nil
}

func truncateForLog(s string) string {
	const max = 80
	if r := []rune(s); len(r) > max {
		return strings.TrimSpace(string(r[:max])) + "..."
	}
	return s
}
