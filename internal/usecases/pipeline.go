package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

// DatasetFetcher acquires the full set of datasets
type DatasetFetcher interface {
	FetchAll(ctx context.Context, useCache bool) (*entities.Datasets, error)
}

// Pipeline runs Acquirer -> Cleaner -> Preprocessor -> Trainer, each stage feeding the next
type Pipeline struct {
	fetcher      DatasetFetcher
	cleaner      Cleaner
	preprocessor Preprocessor
	trainer      Trainer
	logger       *slog.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(fetcher DatasetFetcher, cleaner Cleaner, preprocessor Preprocessor, trainer Trainer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:      fetcher,
		cleaner:      cleaner,
		preprocessor: preprocessor,
		trainer:      trainer,
		logger:       logger,
	}
}

// Run executes every stage once and returns the fitted model summary
func (p *Pipeline) Run(ctx context.Context, useCache bool) (*entities.Model, error) {
	p.logger.Info("starting pipeline run", "cached", useCache)

	datasets, err := p.fetcher.FetchAll(ctx, useCache)
	if err != nil {
		return nil, err
	}
	joined := datasets.Joined()
	p.logger.Info("datasets joined", "rows", len(joined.Rows), "columns", len(joined.Columns))

	cleaned, err := p.cleaner.Clean(ctx, joined)
	if err != nil {
		return nil, fmt.Errorf("failed to clean: %w", err)
	}
	processed, err := p.preprocessor.Preprocess(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess: %w", err)
	}
	model, err := p.trainer.Train(ctx, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to train: %w", err)
	}

	p.logger.Info("pipeline run complete", "model", model.Name, "rows", model.Rows)
	return model, nil
}
