package bot_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/bot"
	"github.com/edgard/what2eat/internal/bot/tasks"
	"github.com/edgard/what2eat/internal/config"
)

func TestScheduler_SchedulesEnabledTasks(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := func(context.Context) error { return nil }

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"cooldown_sweep":  {Enabled: true, Schedule: "*/30 * * * * *"},
		"presence_log":    {Enabled: false, Schedule: "0 0 * * * *"},
		"sql_maintenance": {Enabled: true, Schedule: "not a cron"},
		"unknown":         {Enabled: true, Schedule: "0 0 * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"cooldown_sweep":  noop,
		"presence_log":    noop,
		"sql_maintenance": noop,
	}

	s, err := bot.NewScheduler(logger, cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	assert.Equal(t, []string{"cooldown_sweep"}, s.Jobs())
	assert.Error(t, s.Start())
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	t.Parallel()
	s, err := bot.NewScheduler(nil, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}
