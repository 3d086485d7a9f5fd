package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration/openai"
	"github.com/abelzeko/nsw-pipeline/internal/repository"
)

// DatasetStatus describes the cached state of one dataset
type DatasetStatus struct {
	Dataset     string
	LastRefresh *entities.RefreshRecord // nil if never refreshed over the network
	Cached      bool
	Rows        int
	From, To    time.Time
}

// DatasetUseCase answers questions about the cached datasets and triggers refreshes
type DatasetUseCase struct {
	fetcher       DatasetFetcher
	store         repository.CacheStore
	refreshes     repository.RefreshRepository
	openAIService openai.OpenAIService
	logger        *slog.Logger
}

// NewDatasetUseCase creates a new dataset use case. openAIService may be nil, in which
// case free-text queries get a fixed help message.
func NewDatasetUseCase(fetcher DatasetFetcher, store repository.CacheStore, refreshes repository.RefreshRepository, openAIService openai.OpenAIService, logger *slog.Logger) *DatasetUseCase {
	return &DatasetUseCase{
		fetcher:       fetcher,
		store:         store,
		refreshes:     refreshes,
		openAIService: openAIService,
		logger:        logger,
	}
}

// RefreshAll re-downloads every dataset, overwriting the caches
func (uc *DatasetUseCase) RefreshAll(ctx context.Context) (*entities.Datasets, error) {
	uc.logger.Info("starting dataset refresh")
	datasets, err := uc.fetcher.FetchAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh datasets: %w", err)
	}
	return datasets, nil
}

// GetAvailableDatasets returns every known dataset name
func (uc *DatasetUseCase) GetAvailableDatasets() []string {
	return append([]string(nil), entities.DatasetNames...)
}

// GetRefreshedDatasets returns the datasets refreshed from the network at least once
func (uc *DatasetUseCase) GetRefreshedDatasets() ([]string, error) {
	return uc.refreshes.GetDatasets()
}

// GetLastUpdateTime returns the most recent refresh of any dataset
func (uc *DatasetUseCase) GetLastUpdateTime() (time.Time, error) {
	return uc.refreshes.GetLastUpdateTime()
}

// GetDatasetStatus reports the ledger and cache state of one dataset
func (uc *DatasetUseCase) GetDatasetStatus(dataset string) (*DatasetStatus, error) {
	if !isKnownDataset(dataset) {
		return nil, fmt.Errorf("unknown dataset %q", dataset)
	}
	uc.logger.Debug("retrieving dataset status", "dataset", dataset)

	last, err := uc.refreshes.GetLastRefresh(dataset)
	if err != nil {
		return nil, err
	}
	status := &DatasetStatus{Dataset: dataset, LastRefresh: last}

	table, err := uc.store.Read(dataset)
	switch {
	case err == nil:
		status.Cached = true
		status.Rows = len(table.Rows)
		if len(table.Rows) > 0 {
			status.From = table.Rows[0].Date
			status.To = table.Rows[len(table.Rows)-1].Date
		}
	case isCacheMiss(err):
	default:
		return nil, err
	}
	return status, nil
}

// GetAllStatuses reports every dataset in acquisition order
func (uc *DatasetUseCase) GetAllStatuses() ([]*DatasetStatus, error) {
	var out []*DatasetStatus
	for _, name := range entities.DatasetNames {
		status, err := uc.GetDatasetStatus(name)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string.
func (uc *DatasetUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return "I don't understand. Use /help to see available commands.", nil
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, uc.GetAvailableDatasets())
	if err != nil {
		uc.logger.Error("failed to interpret user query", "err", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}
	uc.logger.Info("agent response", "command", agentResp.CommandName, "dataset", agentResp.Dataset)

	prefix := agentResp.UserMessage
	if prefix != "" {
		prefix += "\n\n"
	}

	switch agentResp.CommandName {
	case openai.CommandDatasetStatus:
		if agentResp.Dataset == "" || !isKnownDataset(agentResp.Dataset) {
			return prefix + "Which dataset? Use /datasets to see available ones.", nil
		}
		status, err := uc.GetDatasetStatus(agentResp.Dataset)
		if err != nil {
			uc.logger.Error("failed to read dataset status", "dataset", agentResp.Dataset, "err", err)
			return "Sorry, I couldn't read that dataset right now.", nil
		}
		return prefix + FormatDatasetStatus(status), nil
	case openai.CommandRefresh:
		return prefix + "Use /refresh to download every dataset again.", nil
	case openai.CommandGeneral:
		return agentResp.UserMessage, nil
	default:
		uc.logger.Warn("agent returned unexpected command", "command", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

// FormatDatasetStatus formats a dataset status for display
func FormatDatasetStatus(status *DatasetStatus) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Dataset %s:\n", status.Dataset))
	if !status.Cached {
		b.WriteString("Not cached yet.\n")
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", status.Rows))
		if status.Rows > 0 {
			b.WriteString(fmt.Sprintf("Range: %s to %s\n", entities.FormatDate(status.From), entities.FormatDate(status.To)))
		}
	}
	if status.LastRefresh != nil {
		b.WriteString(fmt.Sprintf("Last refresh: %s", status.LastRefresh.RefreshedAt.Format("2006-01-02 15:04:05 MST")))
	} else {
		b.WriteString("Never refreshed from the network.")
	}
	return b.String()
}

// FormatRefreshSummary lists the row count of every refreshed dataset in acquisition order
func FormatRefreshSummary(d *entities.Datasets) string {
	tables := d.Tables()
	var b strings.Builder
	b.WriteString("Refreshed all datasets:")
	for _, name := range entities.DatasetNames {
		rows := 0
		if t := tables[name]; t != nil {
			rows = len(t.Rows)
		}
		b.WriteString(fmt.Sprintf("\n• %s: %d rows", name, rows))
	}
	return b.String()
}

func isKnownDataset(name string) bool {
	for _, d := range entities.DatasetNames {
		if d == name {
			return true
		}
	}
	return false
}
