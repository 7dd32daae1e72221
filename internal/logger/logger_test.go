package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "我想吃...", truncateString("我想吃牛肉麵跟滷肉飯", 6))
	assert.Equal(t, "...", truncateString("abcdef", 2))
}

func TestMiddlewareLogsUpdate(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	called := false
	handler := Middleware(log)(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		called = true
	})
	handler(context.Background(), nil, &models.Update{
		ID: 7,
		Message: &models.Message{
			ID:   3,
			Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
			From: &models.User{ID: 42},
			Text: "吃什麼",
		},
	})
	require.True(t, called)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "message", first["update_type"])
	assert.EqualValues(t, -100, first["chat_id"])
	assert.EqualValues(t, 42, first["user_id"])
	assert.Equal(t, "吃什麼", first["text_preview"])
}

func TestGocronLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewGocronLogger(New(&buf, "info", true))

	l.Info("gocron: new job", "name", "cooldown_sweep")
	assert.Zero(t, buf.Len())

	l.Error("gocron: job failed", "name", "presence_log")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "gocron", rec["component"])
	assert.Equal(t, "presence_log", rec["name"])
}
