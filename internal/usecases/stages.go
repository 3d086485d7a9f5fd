package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

// Cleaner applies imputation to the joined table
type Cleaner interface {
	Clean(ctx context.Context, table *entities.Table) (*entities.Table, error)
}

// Preprocessor derives model features from the cleaned table
type Preprocessor interface {
	Preprocess(ctx context.Context, table *entities.Table) (*entities.Table, error)
}

// Trainer fits a model on the preprocessed table
type Trainer interface {
	Train(ctx context.Context, table *entities.Table) (*entities.Model, error)
}

// NewCleaner selects a cleaning strategy by name: "passthrough" or "ffill"
func NewCleaner(name string, logger *slog.Logger) (Cleaner, error) {
	switch name {
	case "", "passthrough":
		return passthroughCleaner{logger: logger}, nil
	case "ffill":
		return forwardFillCleaner{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown cleaner %q", name)
	}
}

// NewPreprocessor selects a preprocessing strategy by name: "passthrough" or "lag"
func NewPreprocessor(name string, lags []int, logger *slog.Logger) (Preprocessor, error) {
	switch name {
	case "", "passthrough":
		return passthroughPreprocessor{logger: logger}, nil
	case "lag":
		if len(lags) == 0 {
			return nil, fmt.Errorf("lag preprocessor needs at least one lag")
		}
		seen := make(map[int]bool, len(lags))
		for _, k := range lags {
			if k <= 0 {
				return nil, fmt.Errorf("lag must be positive, got %d", k)
			}
			if seen[k] {
				return nil, fmt.Errorf("lag %d listed more than once", k)
			}
			seen[k] = true
		}
		return lagPreprocessor{lags: lags, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown preprocessor %q", name)
	}
}

// NewTrainer selects a training strategy by name. Only "noop" exists until a sequence
// model is implemented.
func NewTrainer(name string, logger *slog.Logger) (Trainer, error) {
	switch name {
	case "", "noop":
		return noopTrainer{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown trainer %q", name)
	}
}

type passthroughCleaner struct{ logger *slog.Logger }

func (c passthroughCleaner) Clean(_ context.Context, table *entities.Table) (*entities.Table, error) {
	c.logger.Info("cleaning", "strategy", "passthrough", "rows", len(table.Rows))
	return table, nil
}

type forwardFillCleaner struct{ logger *slog.Logger }

func (c forwardFillCleaner) Clean(_ context.Context, table *entities.Table) (*entities.Table, error) {
	c.logger.Info("cleaning", "strategy", "ffill", "rows", len(table.Rows))
	return entities.ForwardFill(table), nil
}

type passthroughPreprocessor struct{ logger *slog.Logger }

func (p passthroughPreprocessor) Preprocess(_ context.Context, table *entities.Table) (*entities.Table, error) {
	p.logger.Info("preprocessing", "strategy", "passthrough", "rows", len(table.Rows))
	return table, nil
}

type lagPreprocessor struct {
	lags   []int
	logger *slog.Logger
}

func (p lagPreprocessor) Preprocess(_ context.Context, table *entities.Table) (*entities.Table, error) {
	p.logger.Info("preprocessing", "strategy", "lag", "lags", p.lags, "rows", len(table.Rows))
	return LagFeatures(table, p.lags), nil
}

type noopTrainer struct{ logger *slog.Logger }

func (t noopTrainer) Train(_ context.Context, table *entities.Table) (*entities.Model, error) {
	model := &entities.Model{
		Name:     "noop",
		Rows:     len(table.Rows),
		Features: append([]string(nil), table.Columns...),
	}
	if len(table.Rows) > 0 {
		model.From = table.Rows[0].Date
		model.To = table.Rows[len(table.Rows)-1].Date
	}
	t.logger.Info("training completed", "trainer", model.Name, "rows", model.Rows, "features", len(model.Features))
	return model, nil
}
