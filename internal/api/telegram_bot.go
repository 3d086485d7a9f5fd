// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/usecases"
)

// DatasetService is the part of the dataset use case the bot talks to
type DatasetService interface {
	RefreshAll(ctx context.Context) (*entities.Datasets, error)
	GetAvailableDatasets() []string
	GetRefreshedDatasets() ([]string, error)
	GetLastUpdateTime() (time.Time, error)
	GetDatasetStatus(dataset string) (*usecases.DatasetStatus, error)
	HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error)
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase DatasetService
	chatID  int64 // 0 answers every chat
	logger  *slog.Logger
}

// NewTelegramBot creates a new Telegram bot handler. A non-zero chatID restricts the bot to
// that chat.
func NewTelegramBot(botToken string, useCase DatasetService, chatID int64, logger *slog.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
		chatID:  chatID,
		logger:  logger,
	}, nil
}

// Start listens for and handles Telegram messages until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) {
	t.logger.Info("authorized on Telegram", "account", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage answers one incoming message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if t.chatID != 0 && message.Chat.ID != t.chatID {
		t.logger.Warn("ignoring message from unexpected chat", "chat", message.Chat.ID)
		return
	}
	t.logger.Info("received message", "user", message.From.UserName, "text", message.Text)

	msg := tgbotapi.NewMessage(message.Chat.ID, t.reply(ctx, message))
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to send message", "err", err)
	}
}

// reply builds the answer text for a message
func (t *TelegramBot) reply(ctx context.Context, message *tgbotapi.Message) string {
	if !message.IsCommand() {
		text, err := t.useCase.HandleNaturalLanguageQuery(ctx, message.Text)
		if err != nil {
			t.logger.Error("failed to handle query", "err", err)
			return "I don't understand. Use /help to see available commands."
		}
		return text
	}

	switch message.Command() {
	case "start":
		return "Welcome to the NSW pipeline bot! Use /datasets to see the cached datasets or /help for more information."
	case "help":
		return "Available commands:\n" +
			"/start - Start the bot\n" +
			"/datasets - List the datasets and the last refresh\n" +
			"/status [name] - Show the cache state of a dataset\n" +
			"/refresh - Download every dataset again\n" +
			"/help - Show this help message\n\n" +
			"You can also ask a question in plain words."
	case "datasets":
		return t.datasetsReply()
	case "status":
		return t.statusReply(strings.TrimSpace(message.CommandArguments()))
	case "refresh":
		datasets, err := t.useCase.RefreshAll(ctx)
		if err != nil {
			t.logger.Error("refresh failed", "err", err)
			return fmt.Sprintf("Refresh failed: %v", err)
		}
		return usecases.FormatRefreshSummary(datasets)
	default:
		t.logger.Info("unknown command", "command", message.Command())
		return "Unknown command. Use /help to see available commands."
	}
}

func (t *TelegramBot) datasetsReply() string {
	refreshed := make(map[string]bool)
	names, err := t.useCase.GetRefreshedDatasets()
	if err != nil {
		t.logger.Error("failed to read refreshed datasets", "err", err)
	}
	for _, name := range names {
		refreshed[name] = true
	}

	var b strings.Builder
	b.WriteString("Available datasets:\n\n")
	for _, name := range t.useCase.GetAvailableDatasets() {
		b.WriteString("• " + name)
		if !refreshed[name] {
			b.WriteString(" (never refreshed)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUse /status [name] to get detailed information.")

	lastUpdate, err := t.useCase.GetLastUpdateTime()
	if err != nil {
		t.logger.Error("failed to read last update time", "err", err)
	} else if !lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("\n\n🕒 Last refresh: %s", lastUpdate.Format("2006-01-02 15:04:05")))
	}
	return b.String()
}

func (t *TelegramBot) statusReply(dataset string) string {
	if dataset == "" {
		return "Please specify a dataset name. Example: /status " + entities.CasesDataset
	}
	status, err := t.useCase.GetDatasetStatus(dataset)
	if err != nil {
		t.logger.Error("failed to read dataset status", "dataset", dataset, "err", err)
		return fmt.Sprintf("No dataset named '%s'. Use /datasets to see the available ones.", dataset)
	}
	return usecases.FormatDatasetStatus(status)
}
