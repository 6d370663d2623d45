package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/app"
	"github.com/mamadou-sy/catalog-crawler/internal/config"
	"github.com/mamadou-sy/catalog-crawler/internal/logging"
	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one full scrape of
// the configured catalog.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one catalog scrape end to end",
		Long: `Walks the configured listing page by page, extracts and normalizes the
product cards and writes the CSV snapshot. Database, blob archive and
Pub/Sub outputs run when configured.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Port, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	pipeline, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}
	return nil
}
