package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"olx-price-index/charts"
	"olx-price-index/config"
	"olx-price-index/metrics"
	"olx-price-index/models"
	"olx-price-index/scraper/olx"
	"olx-price-index/services"
	"olx-price-index/storage"
	"olx-price-index/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	logger.Info("=== OLX Price Index update starting ===")

	products, err := config.LoadProducts(cfg.ProductsFile)
	if errors.Is(err, config.ErrNoProducts) {
		logger.Warn("No products configured in %s. Nothing to do.", cfg.ProductsFile)
		return 0
	}
	if err != nil {
		logger.Error("Failed to load products: %v", err)
		return 1
	}
	logger.Info("Config | products: %d | data: %s | charts: %t (%s)",
		len(products), cfg.DataDir, cfg.RenderCharts, cfg.ChartFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := olx.New(logger.With("component", "olx"))
	defer client.Close()

	store := storage.NewCSVStore(cfg.DataDir, logger.With("component", "store"))

	opts := []services.UpdaterOption{}

	if cfg.PostgresDSN != "" {
		pgWriter, err := storage.NewPostgresWriter(cfg.PostgresDSN)
		if err != nil {
			logger.Warn("PostgreSQL mirror disabled: %v", err)
		} else {
			defer pgWriter.Close()
			opts = append(opts, services.WithMirror(pgWriter))
		}
	}

	imageExt := charts.FormatSVG
	if cfg.RenderCharts {
		renderer := charts.NewRenderer(cfg.ImagesDir, cfg.ChartFormat, logger.With("component", "charts"))
		imageExt = renderer.Format()
		opts = append(opts, services.WithCharts(renderer))
	}

	imageBase := readmeImageBase(cfg)
	readme := services.NewReadmeGenerator(cfg.ReadmeFile, imageBase, imageExt, store, logger.With("component", "readme"))
	opts = append(opts, services.WithSummary(readme))

	updater := services.NewUpdater(client, store, logger.With("component", "updater"), opts...)
	report, runErr := updater.Run(ctx, products)

	services.NewInsightService(os.Stdout).Print(report)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("Failed to write metrics: %v", err)
		}
	}

	if runErr != nil {
		logger.Error("Update run aborted: %v", runErr)
		return 1
	}
	if report.Failed() {
		logger.Error("%d of %d products failed", report.Count(models.StateFailed), len(report.Results))
		return 1
	}

	fmt.Printf("  Done. Series → %s | README → %s\n\n", cfg.DataDir, cfg.ReadmeFile)
	return 0
}

// readmeImageBase points README image links at README_BASE_URL when set,
// otherwise at the images directory relative to the README.
func readmeImageBase(cfg *config.Config) string {
	if cfg.ReadmeBaseURL != "" {
		return strings.TrimRight(cfg.ReadmeBaseURL, "/") + "/" + filepath.ToSlash(filepath.Base(cfg.ImagesDir))
	}
	rel, err := filepath.Rel(filepath.Dir(cfg.ReadmeFile), cfg.ImagesDir)
	if err != nil {
		return filepath.ToSlash(cfg.ImagesDir)
	}
	return filepath.ToSlash(rel)
}
