package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deusflow/aiinsight/internal/app"
)

var flagStatsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored record count and the latest records",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&flagStatsLimit, "limit", 10, "number of recent records to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg)
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg, &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	recent, err := store.Recent(ctx, flagStatsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Storage: %s (%s)\n", cfg.StorageBackend, cfg.StorageTable)
	fmt.Fprintf(out, "Total records: %d\n\n", total)
	for i, r := range recent {
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, r.PublishedAt, r.Title)
		fmt.Fprintf(out, "   Score: %d, Tags: %s\n", r.ImportanceScore, strings.Join(r.Tags, ", "))
		fmt.Fprintf(out, "   %s\n", r.OriginalURL)
	}
	return nil
}
