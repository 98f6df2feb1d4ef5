package rss

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/aiinsight/internal/news"
)

const userAgent = "aiinsight/1.0 (+https://github.com/deusflow/aiinsight)"

// SkipReason tells why an entry did not become an article.
type SkipReason string

const (
	SkipNoTimestamp SkipReason = "no_timestamp"
	SkipExpired     SkipReason = "expired"
	SkipNoTitle     SkipReason = "no_title"
	SkipNoLink      SkipReason = "no_link"
	SkipDuplicate   SkipReason = "duplicate"
)

// SourceError is a feed that could not be fetched or parsed.
type SourceError struct {
	Source Source
	Err    error
}

// EntrySkip is a single entry dropped during collection.
type EntrySkip struct {
	Source string
	Title  string
	Link   string
	Reason SkipReason
}

// Result is everything one collection produced.
type Result struct {
	Articles     []news.RawArticle
	SourceErrors []SourceError
	Skipped      []EntrySkip
	SourcesOK    int
}

// Options configure a Collector.
type Options struct {
	Client      *http.Client
	Window      time.Duration
	Concurrency int
	Logger      *slog.Logger
}

// Collector downloads feeds and turns their entries into RawArticles.
type Collector struct {
	client      *http.Client
	window      time.Duration
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewCollector builds a collector. Window defaults to 24h, concurrency to 1.
func NewCollector(opts Options) *Collector {
	c := &Collector{
		client:      opts.Client,
		window:      opts.Window,
		concurrency: opts.Concurrency,
		now:         time.Now,
		logger:      opts.Logger,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.window <= 0 {
		c.window = 24 * time.Hour
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type sourceOutcome struct {
	articles []news.RawArticle
	skipped  []EntrySkip
	err      error
}

// Collect fetches every source. A failing source is recorded and skipped.
// Articles keep source order, then feed order, whatever the concurrency.
func (c *Collector) Collect(ctx context.Context, sources []Source) Result {
	cutoff := c.now().Add(-c.window)
	c.logger.Info("fetching feeds", "sources", len(sources), "cutoff", cutoff.Format(time.RFC3339))

	outcomes := make([]sourceOutcome, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = c.collectSource(gctx, src, cutoff)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	seen := make(map[string]struct{})
	for i, out := range outcomes {
		src := sources[i]
		if out.err != nil {
			c.logger.Error("feed failed", "source", src.Name, "url", src.URL, "error", out.err)
			res.SourceErrors = append(res.SourceErrors, SourceError{Source: src, Err: out.err})
			continue
		}
		res.SourcesOK++
		res.Skipped = append(res.Skipped, out.skipped...)
		for _, a := range out.articles {
			if _, dup := seen[a.URL]; dup {
				res.Skipped = append(res.Skipped, EntrySkip{Source: src.Name, Title: a.Title, Link: a.URL, Reason: SkipDuplicate})
				continue
			}
			seen[a.URL] = struct{}{}
			res.Articles = append(res.Articles, a)
		}
		c.logger.Info("feed parsed", "source", src.Name, "articles", len(out.articles), "skipped", len(out.skipped))
	}

	c.logger.Info("collection finished",
		"articles", len(res.Articles),
		"sources_ok", res.SourcesOK,
		"sources_failed", len(res.SourceErrors),
		"entries_skipped", len(res.Skipped))
	return res
}

func (c *Collector) collectSource(ctx context.Context, src Source, cutoff time.Time) sourceOutcome {
	c.logger.Debug("parsing feed", "source", src.Name, "url", src.URL)

	// gofeed.Parser keeps per-parse state, one per fetch.
	parser := gofeed.NewParser()
	parser.Client = c.client
	parser.UserAgent = userAgent

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return sourceOutcome{err: err}
	}

	var out sourceOutcome
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		article, reason := c.entryToArticle(item, src, cutoff)
		if reason != "" {
			out.skipped = append(out.skipped, EntrySkip{Source: src.Name, Title: item.Title, Link: item.Link, Reason: reason})
			c.logger.Debug("entry skipped", "source", src.Name, "title", item.Title, "reason", reason)
			continue
		}
		out.articles = append(out.articles, article)
	}
	return out
}

func (c *Collector) entryToArticle(item *gofeed.Item, src Source, cutoff time.Time) (news.RawArticle, SkipReason) {
	title := strings.TrimSpace(strings.ToValidUTF8(item.Title, ""))
	if title == "" {
		return news.RawArticle{}, SkipNoTitle
	}
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return news.RawArticle{}, SkipNoLink
	}

	published, kind := resolvePublished(item)
	if kind == stampNone {
		return news.RawArticle{}, SkipNoTimestamp
	}
	if published.Before(cutoff) {
		return news.RawArticle{}, SkipExpired
	}

	return news.RawArticle{
		Title:       title,
		URL:         link,
		Content:     Truncate(bodyOf(item), news.MaxContentRunes),
		PublishedAt: published.UTC(),
		Source:      src.Name,
	}, ""
}

// bodyOf prefers the entry summary, then its full content, as plain text.
// A summary with markup and no text counts as empty.
func bodyOf(item *gofeed.Item) string {
	if text := PlainText(item.Description); text != "" {
		return text
	}
	return PlainText(item.Content)
}

type stampKind int

const (
	stampNone stampKind = iota
	stampPublished
	stampPublishedText
	stampUpdated
)

// resolvePublished tries, in order: the parsed published time, the raw
// published string through a lenient parser, the parsed updated time.
func resolvePublished(item *gofeed.Item) (time.Time, stampKind) {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return *item.PublishedParsed, stampPublished
	}
	if raw := strings.TrimSpace(item.Published); raw != "" {
		// Zoneless strings are read as UTC.
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return t, stampPublishedText
		}
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return *item.UpdatedParsed, stampUpdated
	}
	return time.Time{}, stampNone
}
