package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/nsw-pipeline/internal/app"
	"github.com/abelzeko/nsw-pipeline/internal/config"
)

func main() {
	configPath := flag.String("config", "config.json5", "Configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("starting dataset scheduler", "schedule", cfg.Schedule)

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Refresh immediately on startup
	refresh(ctx, a.Datasets, logger)

	c, err := newScheduler(ctx, cfg.Schedule, a.Datasets, logger)
	if err != nil {
		logger.Error("failed to set up cron job", "err", err)
		return
	}
	c.Start()
	logger.Info("refresh scheduled", "schedule", cfg.Schedule)

	<-ctx.Done()
	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
}
