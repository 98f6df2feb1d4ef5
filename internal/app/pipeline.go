package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/aiinsight/internal/analyzer"
	"github.com/deusflow/aiinsight/internal/metrics"
	"github.com/deusflow/aiinsight/internal/news"
	"github.com/deusflow/aiinsight/internal/rss"
	"github.com/deusflow/aiinsight/internal/storage"
	"github.com/deusflow/aiinsight/internal/telegram"
)

type Collector interface {
	Collect(ctx context.Context, sources []rss.Source) rss.Result
}

type Saver interface {
	Save(ctx context.Context, articles []news.CuratedArticle) storage.SaveResult
}

type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// Early stop reasons.
const (
	StopNoArticles = "no_articles"
	StopNoCurated  = "no_curated"
)

// Pipeline runs collection, selection and persistence once.
type Pipeline struct {
	Collector Collector
	Sources   []rss.Source
	Analyzer  news.Analyzer
	// Persister may be nil only when DryRun is set.
	Persister Saver
	// Notifier is optional.
	Notifier Notifier
	Limit    int
	DryRun   bool
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Summary describes a finished run.
type Summary struct {
	Collected int
	Selected  []news.CuratedArticle
	Saved     int
	EarlyStop string
	Metrics   metrics.Snapshot
}

var errNoPersister = errors.New("pipeline has no persister")

// Run executes the stages in order. Per-item failures are contained by the
// stages; the returned error is reserved for failures that end the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	m := p.Metrics
	if m == nil {
		m = metrics.New()
	}
	if p.Persister == nil && !p.DryRun {
		return Summary{}, errNoPersister
	}

	log.Info("curation run started", "sources", len(p.Sources), "limit", p.Limit, "dry_run", p.DryRun)

	start := time.Now()
	collected := p.Collector.Collect(ctx, p.Sources)
	m.RecordStage("collect", time.Since(start))
	m.RecordCollection(collected.SourcesOK, len(collected.SourceErrors), len(collected.Articles))
	for _, s := range collected.Skipped {
		m.IncrementSkipped(string(s.Reason))
	}
	if err := ctx.Err(); err != nil {
		m.SetError(err.Error())
		return p.finish(m, Summary{}), err
	}

	sum := Summary{Collected: len(collected.Articles)}
	if len(collected.Articles) == 0 {
		log.Warn("no articles found in the recency window")
		sum.EarlyStop = StopNoArticles
		return p.finish(m, sum), nil
	}

	start = time.Now()
	sel := news.Select(ctx, collected.Articles, p.Analyzer, p.Limit, log)
	m.RecordStage("analyze", time.Since(start))
	m.RecordAnalyzed(sel.Analyzed)
	for _, f := range sel.Failures {
		reason := analyzer.Reason(f.Err)
		m.IncrementAnalysisFailure(reason)
		log.Warn("analysis failed", "title", f.Article.Title, "url", f.Article.URL, "source", f.Article.Source, "reason", reason, "error", f.Err)
	}
	m.RecordSelected(len(sel.Curated))
	sum.Selected = sel.Curated
	if err := ctx.Err(); err != nil {
		m.SetError(err.Error())
		return p.finish(m, sum), err
	}

	if len(sel.Curated) == 0 {
		log.Warn("no articles passed the analysis")
		sum.EarlyStop = StopNoCurated
		return p.finish(m, sum), nil
	}

	if p.DryRun {
		log.Info("dry run, skipping persistence", "selected", len(sel.Curated))
	} else {
		start = time.Now()
		saved := p.Persister.Save(ctx, sel.Curated)
		m.RecordStage("persist", time.Since(start))
		m.RecordSaved(saved.Saved, len(saved.Failures))
		sum.Saved = saved.Saved
	}

	p.report(log, sel.Curated)

	if p.Notifier != nil {
		if err := p.Notifier.SendMessage(ctx, telegram.FormatDigest(sel.Curated, time.Now())); err != nil {
			log.Error("failed to send run digest", "error", err)
		}
	}

	return p.finish(m, sum), nil
}

func (p *Pipeline) finish(m *metrics.Metrics, sum Summary) Summary {
	sum.Metrics = m.Snapshot()
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("curation run finished", sum.Metrics.LogArgs()...)
	return sum
}

// report logs the final ranking.
func (p *Pipeline) report(log *slog.Logger, items []news.CuratedArticle) {
	for i, a := range items {
		log.Info("selected",
			"rank", i+1,
			"title", a.Title,
			"score", a.ImportanceScore,
			"tags", strings.Join(a.Tags, ", "),
			"url", a.URL)
	}
}
