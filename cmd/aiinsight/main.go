package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/aiinsight/internal/config"
	"github.com/deusflow/aiinsight/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagWindow  time.Duration
	flagLimit   int
	flagFeeds   string
	flagStorage string
	flagDryRun  bool
)

var rootCmd = &cobra.Command{
	Use:           "aiinsight",
	Short:         "Daily AI news curation",
	Long:          "aiinsight collects recent articles from AI news feeds, has a language model translate, summarize, tag and score them, and stores the top picks.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCuration,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("aiinsight %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.Flags().DurationVar(&flagWindow, "window", 0, "recency window, e.g. 24h (overrides RECENCY_WINDOW)")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "number of articles to keep (overrides TOP_K)")
	rootCmd.Flags().StringVar(&flagFeeds, "feeds", "", "path to the feeds YAML file (overrides FEEDS_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagStorage, "storage", "", "storage backend: supabase, postgres or sqlite (overrides STORAGE_BACKEND)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "collect, analyze and select without saving")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// storageOverride applies --storage, which every command accepts.
func storageOverride(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("storage") {
			cfg.StorageBackend = flagStorage
		}
	}
}

// loadConfig reads .env and the environment without validating.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	storageOverride(cmd)(cfg)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	return logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.Debug)
}
