package main

import (
	"github.com/spf13/cobra"

	"github.com/deusflow/aiinsight/internal/app"
	"github.com/deusflow/aiinsight/internal/config"
)

func runCuration(cmd *cobra.Command, args []string) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(storageOverride(cmd), runOverrides(cmd))
	if err != nil {
		return err
	}
	log := initLogger(cfg)

	log.Info("Daily AI Insight - news curation", "version", version)

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close clients", "error", err)
		}
	}()

	sum, err := a.Run(cmd.Context())
	if err != nil {
		return err
	}
	if sum.EarlyStop == "" {
		log.Info("curation complete", "saved", sum.Saved, "selected", len(sum.Selected))
	}
	return nil
}

func runOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("window") {
			cfg.RecencyWindow = flagWindow
		}
		if flags.Changed("limit") {
			cfg.TopK = flagLimit
		}
		if flags.Changed("feeds") {
			cfg.FeedsConfigPath = flagFeeds
		}
		if flags.Changed("dry-run") {
			cfg.DryRun = flagDryRun
		}
	}
}
