// Package config loads the pipeline configuration and secrets
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Config is the content of config.json5
type Config struct {
	CacheDir           string         `json:"cacheDir"`
	RefreshDB          string         `json:"refreshDb"`
	CountriesFile      string         `json:"countriesFile"`
	LogLevel           string         `json:"logLevel"`
	HTTPTimeoutSeconds int            `json:"httpTimeoutSeconds"`
	Schedule           string         `json:"schedule"`
	Sources            SourcesConfig  `json:"sources"`
	Pipeline           PipelineConfig `json:"pipeline"`
}

// SourcesConfig holds the endpoints and query parameters of every upstream source.
// Empty URLs select the public endpoints.
type SourcesConfig struct {
	DatastoreURL            string `json:"datastoreUrl"`
	CasesResourceID         string `json:"casesResourceId"`
	CasesDateField          string `json:"casesDateField"`
	CasesCountColumn        string `json:"casesCountColumn"`
	AnnouncementsURL        string `json:"announcementsUrl"`
	AnnouncementsTableIndex int    `json:"announcementsTableIndex"`
	TrendsURL               string `json:"trendsUrl"`
	TrendKeyword            string `json:"trendKeyword"`
	TrendGeo                string `json:"trendGeo"`
	TrendStartYear          int    `json:"trendStartYear"`
	TrendStartMonth         int    `json:"trendStartMonth"`
	TrendEndYear            int    `json:"trendEndYear"`
	TrendEndMonth           int    `json:"trendEndMonth"`
	TrendPauseMillis        int    `json:"trendPauseMillis"`
	StringencyURL           string `json:"stringencyUrl"`
	RatificationURL         string `json:"ratificationUrl"`
}

// PipelineConfig selects the stage strategies
type PipelineConfig struct {
	Cleaner      string `json:"cleaner"`
	Preprocessor string `json:"preprocessor"`
	Trainer      string `json:"trainer"`
	Lags         []int  `json:"lags"`
}

// Secrets come from the environment, never from config files
type Secrets struct {
	TelegramBotToken string
	TelegramChatID   string
	OpenAIAPIKey     string
}

// Defaults returns the configuration used for every field a config file leaves unset
func Defaults() Config {
	return Config{
		CacheDir:           "data",
		RefreshDB:          "data/refresh.db",
		CountriesFile:      "data/oecd_countries.txt",
		LogLevel:           "info",
		HTTPTimeoutSeconds: 60,
		Schedule:           "0 6 * * *",
		Sources: SourcesConfig{
			CasesResourceID:         "21304414-1ff1-4243-a5d2-f52778048b29",
			AnnouncementsTableIndex: 4,
			TrendKeyword:            "covid",
			TrendGeo:                "AU-NSW",
			TrendStartYear:          2020,
			TrendStartMonth:         2,
			TrendEndYear:            2021,
			TrendEndMonth:           7,
			TrendPauseMillis:        1000,
		},
		Pipeline: PipelineConfig{
			Cleaner:      "passthrough",
			Preprocessor: "passthrough",
			Trainer:      "noop",
		},
	}
}

// HTTPTimeout returns the bounded timeout applied to every HTTP call
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// TrendPause returns the delay between consecutive trends requests
func (c Config) TrendPause() time.Duration {
	return time.Duration(c.Sources.TrendPauseMillis) * time.Millisecond
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// ReadConfig reads a configuration file and merges it with its local override, where the
// later file wins:
// 1. <name>.<ext>
// 2. <name>.local.<ext>
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	prefix, ext := splitExt(name)

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localPath := fmt.Sprintf("%s.local.%s", prefix, ext)
	localFile, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Load reads the configuration at path and fills unset fields from Defaults. A missing file
// is not an error; the defaults are used as they are.
func Load(path string) (Config, error) {
	cfg, err := ReadConfig[Config](path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return Config{}, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would only fail later, mid-run
func (c Config) Validate() error {
	s := c.Sources
	if s.TrendStartMonth < 1 || s.TrendStartMonth > 12 {
		return fmt.Errorf("sources.trendStartMonth must be within 1..12, got %d", s.TrendStartMonth)
	}
	if s.TrendEndMonth < 1 || s.TrendEndMonth > 12 {
		return fmt.Errorf("sources.trendEndMonth must be within 1..12, got %d", s.TrendEndMonth)
	}
	if s.TrendEndYear*12+s.TrendEndMonth < s.TrendStartYear*12+s.TrendStartMonth {
		return fmt.Errorf("trend range ends before it starts")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("httpTimeoutSeconds must be positive, got %d", c.HTTPTimeoutSeconds)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadEnv loads .env if present and reads the secrets from the environment
func LoadEnv() (Secrets, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Secrets{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return Secrets{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
	}, nil
}

// ParseLevel maps a config log level to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid logLevel %q: %w", level, err)
	}
	return l, nil
}

// NewLogger creates the text logger shared by every component
func NewLogger(level string) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     l,
	}))
}
