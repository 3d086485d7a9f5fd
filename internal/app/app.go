// Package app wires the acquisition pipeline from a configuration
package app

import (
	"fmt"
	"log/slog"

	"github.com/abelzeko/nsw-pipeline/internal/config"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
	"github.com/abelzeko/nsw-pipeline/internal/integration/openai"
	"github.com/abelzeko/nsw-pipeline/internal/repository"
	"github.com/abelzeko/nsw-pipeline/internal/usecases"
)

// App holds the components shared by every entry point
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     *repository.FileCacheStore
	Refreshes *repository.SQLiteRefreshRepository
	Acquirer  *usecases.Acquirer
	Pipeline  *usecases.Pipeline
	Datasets  *usecases.DatasetUseCase
}

// New builds the cache store, refresh ledger, source clients and use cases. agent may be nil.
func New(cfg config.Config, agent openai.OpenAIService, logger *slog.Logger) (*App, error) {
	store, err := repository.NewFileCacheStore(cfg.CacheDir, logger)
	if err != nil {
		return nil, err
	}

	refreshes, err := repository.NewSQLiteRefreshRepository(cfg.RefreshDB, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh ledger: %w", err)
	}

	timeout := cfg.HTTPTimeout()
	src := cfg.Sources
	sources := usecases.Sources{
		Cases:         integration.NewDatastoreClient(src.DatastoreURL, timeout, logger),
		Announcements: integration.NewAnnouncementScraper(src.AnnouncementsURL, src.AnnouncementsTableIndex, timeout, logger),
		Trends:        integration.NewTrendsClient(src.TrendsURL, timeout, cfg.TrendPause(), logger),
		Stringency:    integration.NewOECDClient(src.StringencyURL, src.RatificationURL, timeout, logger),
	}

	acquirer := usecases.NewAcquirer(sources, store, refreshes, usecases.AcquirerConfig{
		CasesResourceID:  src.CasesResourceID,
		CasesDateField:   src.CasesDateField,
		CasesCountColumn: src.CasesCountColumn,
		TrendKeyword:     src.TrendKeyword,
		TrendGeo:         src.TrendGeo,
		TrendStartYear:   src.TrendStartYear,
		TrendStartMonth:  src.TrendStartMonth,
		TrendEndYear:     src.TrendEndYear,
		TrendEndMonth:    src.TrendEndMonth,
		CountriesFile:    cfg.CountriesFile,
	}, logger)

	pipeline, err := newPipeline(cfg.Pipeline, acquirer, logger)
	if err != nil {
		refreshes.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Refreshes: refreshes,
		Acquirer:  acquirer,
		Pipeline:  pipeline,
		Datasets:  usecases.NewDatasetUseCase(acquirer, store, refreshes, agent, logger),
	}, nil
}

func newPipeline(cfg config.PipelineConfig, fetcher usecases.DatasetFetcher, logger *slog.Logger) (*usecases.Pipeline, error) {
	cleaner, err := usecases.NewCleaner(cfg.Cleaner, logger)
	if err != nil {
		return nil, err
	}
	pre, err := usecases.NewPreprocessor(cfg.Preprocessor, cfg.Lags, logger)
	if err != nil {
		return nil, err
	}
	trainer, err := usecases.NewTrainer(cfg.Trainer, logger)
	if err != nil {
		return nil, err
	}
	return usecases.NewPipeline(fetcher, cleaner, pre, trainer, logger), nil
}

// Close releases the refresh ledger
func (a *App) Close() error {
	return a.Refreshes.Close()
}
