package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 5, cfg.Picker.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Cooldown.Window)
	assert.Equal(t, "chat", cfg.Cooldown.Scope)
	assert.Equal(t, 3*time.Second, cfg.Cooldown.NoticeTTL)
	assert.Equal(t, "sqlite", cfg.Remote.Driver)
	assert.Equal(t, "!", cfg.Bot.Defaults.Prefix)
	assert.Equal(t, []string{"吃什麼"}, cfg.Bot.Defaults.Triggers)
	assert.Equal(t, 5, cfg.Crawler.MinProducts)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawler.Delay)
	assert.Equal(t, 2, cfg.Crawler.Retries)
	assert.Len(t, cfg.Crawler.FoodPanda.Cities, 19)
	assert.Equal(t, "volo", cfg.Crawler.FoodPanda.APIKey)
	assert.Equal(t, config.DefaultMessages, cfg.Messages)
	require.Contains(t, cfg.Scheduler.Tasks, "cooldown_sweep")
	assert.True(t, cfg.Scheduler.Tasks["cooldown_sweep"].Enabled)

	// The crawler never needs a token, the bot always does.
	assert.Error(t, cfg.ValidateBot())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  json: true
telegram:
  token: "123:abc"
  admin_user_ids: [42, 43]
  log_chat_id: -100200
cooldown:
  window: 1m
  scope: user
bot:
  defaults:
    prefix: "/"
    triggers: ["餓了", "吃啥"]
scheduler:
  tasks:
    presence_log:
      enabled: false
crawler:
  min_products: 3
  retries: 4
  foodpanda:
    cities: [taipei-city]
`)
	t.Setenv("WHAT2EAT_DATA_DIR", "/srv/what2eat")
	t.Setenv("WHAT2EAT_PICKER_MAX_ATTEMPTS", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateBot())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(-100200), cfg.Telegram.LogChatID)
	assert.True(t, cfg.IsAdmin(43))
	assert.False(t, cfg.IsAdmin(44))
	assert.Equal(t, time.Minute, cfg.Cooldown.Window)
	assert.Equal(t, "user", cfg.Cooldown.Scope)
	assert.Equal(t, "/", cfg.Bot.Defaults.Prefix)
	assert.Equal(t, []string{"餓了", "吃啥"}, cfg.Bot.Defaults.Triggers)
	assert.False(t, cfg.Scheduler.Tasks["presence_log"].Enabled)
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.Equal(t, 3, cfg.Crawler.MinProducts)
	assert.Equal(t, 4, cfg.Crawler.Retries)
	assert.Equal(t, []string{"taipei-city"}, cfg.Crawler.FoodPanda.Cities)
	assert.Equal(t, "/srv/what2eat", cfg.DataDir)
	assert.Equal(t, 7, cfg.Picker.MaxAttempts)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "log:\n  level: loud\n"},
		{"bad cooldown scope", "cooldown:\n  scope: planet\n"},
		{"mongo without uri", "remote:\n  driver: mongo\n"},
		{"unknown driver", "remote:\n  driver: redis\n"},
		{"zero attempts", "picker:\n  max_attempts: 0\n"},
		{"negative threshold", "crawler:\n  min_products: -1\n"},
		{"negative retries", "crawler:\n  retries: -1\n"},
		{"bad support url", "bot:\n  support_url: not a url\n"},
		{"empty prefix", "bot:\n  defaults:\n    prefix: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := config.Load(writeConfig(t, "log: [unclosed\n"))
	assert.Error(t, err)
}
