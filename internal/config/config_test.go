package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout())
}

func TestLoad_MergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// shared settings
		cacheDir: "cache",
		sources: {
			trendKeyword: "coronavirus",
			trendEndMonth: 5,
		},
		pipeline: { cleaner: "ffill", lags: [1, 7] },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		sources: { trendEndMonth: 3 },
		logLevel: "debug",
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "coronavirus", cfg.Sources.TrendKeyword)
	assert.Equal(t, 3, cfg.Sources.TrendEndMonth)
	assert.Equal(t, "ffill", cfg.Pipeline.Cleaner)
	assert.Equal(t, []int{1, 7}, cfg.Pipeline.Lags)
	// Unset fields come from the defaults
	assert.Equal(t, "AU-NSW", cfg.Sources.TrendGeo)
	assert.Equal(t, 4, cfg.Sources.AnnouncementsTableIndex)
	assert.Equal(t, "noop", cfg.Pipeline.Trainer)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{ cacheDir: `},
		{"end month", `{ sources: { trendEndMonth: 13 } }`},
		{"reversed range", `{ sources: { trendStartYear: 2022 } }`},
		{"log level", `{ logLevel: "loud" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json5")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestReadConfig_NotFound(t *testing.T) {
	_, err := ReadConfig[Config](filepath.Join(t.TempDir(), "config.json5"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("OPENAI_API_KEY", "")

	secrets, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, Secrets{TelegramBotToken: "token", TelegramChatID: "42"}, secrets)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	assert.NotNil(t, NewLogger("nonsense"))
}
