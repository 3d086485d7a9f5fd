package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abelzeko/nsw-pipeline/internal/api"
	"github.com/abelzeko/nsw-pipeline/internal/app"
	"github.com/abelzeko/nsw-pipeline/internal/config"
	"github.com/abelzeko/nsw-pipeline/internal/integration/openai"
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
	logger.Info("starting NSW pipeline bot")

	secrets, err := config.LoadEnv()
	if err != nil {
		logger.Error("failed to load environment", "err", err)
		os.Exit(1)
	}
	if secrets.TelegramBotToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN environment variable is not set")
		os.Exit(1)
	}

	var chatID int64
	if secrets.TelegramChatID != "" {
		chatID, err = strconv.ParseInt(secrets.TelegramChatID, 10, 64)
		if err != nil {
			logger.Error("TELEGRAM_CHAT_ID is not a number", "err", err)
			os.Exit(1)
		}
	}

	// Free-text queries fall back to a help message without an API key
	var agent openai.OpenAIService
	if secrets.OpenAIAPIKey != "" {
		agent, err = openai.NewOpenAIService(secrets.OpenAIAPIKey, logger)
		if err != nil {
			logger.Error("failed to initialize OpenAI service", "err", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("OPENAI_API_KEY is not set, natural language queries are disabled")
	}

	a, err := app.New(cfg, agent, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	telegramBot, err := api.NewTelegramBot(secrets.TelegramBotToken, a.Datasets, chatID, logger)
	if err != nil {
		logger.Error("failed to initialize Telegram bot", "err", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	telegramBot.Start(ctx)
}
