package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

type refresher interface {
	RefreshAll(ctx context.Context) (*entities.Datasets, error)
}

// newScheduler registers a full refresh on a standard five-field cron spec. Overlapping
// runs are skipped.
func newScheduler(ctx context.Context, spec string, r refresher, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		refresh(ctx, r, logger)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func refresh(ctx context.Context, r refresher, logger *slog.Logger) {
	datasets, err := r.RefreshAll(ctx)
	if err != nil {
		logger.Error("scheduled data refresh failed", "err", err)
		return
	}
	logger.Info("scheduled data refresh complete",
		"cases", len(datasets.Cases),
		"announcements", len(datasets.Announcements),
		"trend_index", len(datasets.TrendIndex),
		"restrictions", len(datasets.Restrictions))
}
