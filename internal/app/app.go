// Package app wires configuration into a runnable curation pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/deusflow/aiinsight/internal/analyzer"
	"github.com/deusflow/aiinsight/internal/config"
	"github.com/deusflow/aiinsight/internal/llm"
	"github.com/deusflow/aiinsight/internal/logger"
	"github.com/deusflow/aiinsight/internal/metrics"
	"github.com/deusflow/aiinsight/internal/ratelimit"
	"github.com/deusflow/aiinsight/internal/retry"
	"github.com/deusflow/aiinsight/internal/rss"
	"github.com/deusflow/aiinsight/internal/storage"
	"github.com/deusflow/aiinsight/internal/telegram"
)

// App owns the pipeline and the clients it was built with.
type App struct {
	Pipeline *Pipeline
	closers  []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Run executes one curation run.
func (a *App) Run(ctx context.Context) (Summary, error) {
	return a.Pipeline.Run(ctx)
}

func retryConfig(cfg *config.Config) retry.RetryConfig {
	return retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}
}

// New builds every dependency from cfg. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	sources, err := rss.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}

	gen, err := newGenerator(ctx, cfg, httpClient, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	budget := ratelimit.NewBudget(cfg.MaxAnalysisRequests)
	p := &Pipeline{
		Collector: rss.NewCollector(rss.Options{
			Client:      httpClient,
			Window:      cfg.RecencyWindow,
			Concurrency: cfg.CollectConcurrency,
			Logger:      logger.Component(log, "collector"),
		}),
		Sources: sources,
		Analyzer: analyzer.New(gen, analyzer.Config{
			Temperature: &cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Budget:      budget,
			Logger:      logger.Component(log, "analyzer"),
		}),
		Limit:   cfg.TopK,
		DryRun:  cfg.DryRun,
		Logger:  logger.Component(log, "pipeline"),
		Metrics: metrics.New(),
	}

	if !cfg.DryRun {
		store, err := OpenStore(ctx, cfg, httpClient)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		p.Persister = storage.NewPersister(store, retryConfig(cfg), logger.Component(log, "persister"))
	}

	if cfg.TelegramEnabled() {
		p.Notifier = telegram.NewNotifier(telegram.Options{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
			Client: httpClient,
			Retry:  retryConfig(cfg),
			Logger: logger.Component(log, "telegram"),
		})
	}

	a.Pipeline = p
	log.Info("pipeline ready",
		"provider", cfg.LLMProvider,
		"storage", cfg.StorageBackend,
		"sources", len(sources),
		"window", cfg.RecencyWindow,
		"top_k", cfg.TopK,
		"max_analysis_requests", budget.Limit())
	return a, nil
}

func newGenerator(ctx context.Context, cfg *config.Config, client *http.Client, a *App) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	case config.ProviderOpenAI:
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: client,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// OpenStore connects to the configured backend, retrying the connection.
func OpenStore(ctx context.Context, cfg *config.Config, client *http.Client) (storage.Store, error) {
	var store storage.Store
	err := retry.WithRetry(ctx, retryConfig(cfg), func() error {
		var err error
		switch cfg.StorageBackend {
		case config.BackendSupabase:
			store, err = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageTable, client)
		case config.BackendPostgres:
			store, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.StorageTable)
		case config.BackendSQLite:
			store, err = storage.NewSQLiteStore(ctx, cfg.SQLitePath, cfg.StorageTable)
		default:
			return retry.Permanent(fmt.Errorf("unknown storage backend %q", cfg.StorageBackend))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	return store, nil
}
