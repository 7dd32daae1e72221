// Package main contains the entrypoint for the What2Eat Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/what2eat/internal/bot"
	"github.com/edgard/what2eat/internal/bot/handlers"
	"github.com/edgard/what2eat/internal/bot/tasks"
	"github.com/edgard/what2eat/internal/catalog"
	"github.com/edgard/what2eat/internal/config"
	"github.com/edgard/what2eat/internal/cooldown"
	"github.com/edgard/what2eat/internal/database"
	"github.com/edgard/what2eat/internal/logger"
	"github.com/edgard/what2eat/internal/picker"
	"github.com/edgard/what2eat/internal/reply"
	"github.com/edgard/what2eat/internal/settings"
	"github.com/edgard/what2eat/internal/settings/mongostore"
	"github.com/edgard/what2eat/internal/settings/sqlstore"
	"github.com/edgard/what2eat/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, catalog, settings, Telegram and the scheduler, blocks
// until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	startedAt := time.Now()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}
	if err := cfg.ValidateBot(); err != nil {
		slog.Error("Invalid bot configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	cat, err := catalog.New(cfg.DataDir)
	if err != nil {
		log.Error("Failed to open restaurant catalog", "data_dir", cfg.DataDir, "error", err)
		return 1
	}
	menu := picker.NewMenu(cat, cfg.Picker.MaxAttempts, nil, log)
	if _, err := menu.Reload(); err != nil {
		log.Error("Failed to load restaurant catalog", "data_dir", cfg.DataDir, "error", err)
		return 1
	}

	store, sqlDB, err := openSettingsStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open settings store", "driver", cfg.Remote.Driver, "error", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("Failed to close settings store", "error", err)
		}
	}()

	provider := settings.NewProvider(store, settings.GuildSetting{
		Prefix:   cfg.Bot.Defaults.Prefix,
		Triggers: cfg.Bot.Defaults.Triggers,
	}, log)
	initCtx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
	err = provider.Init(initCtx)
	cancel()
	if err != nil {
		log.Error("Failed to load remote settings", "error", err)
		return 1
	}

	guard := cooldown.NewGuard(cfg.Cooldown.Window, nil)
	ops := telegram.NewOpsLog(nil, cfg.Telegram.LogChatID, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Menu:     menu,
		Guard:    guard,
		Settings: provider,
		Replies: reply.NewBuilder(reply.Links{
			Manual:  cfg.Bot.ManualURL,
			Support: cfg.Bot.SupportURL,
			Donate:  cfg.Bot.DonateURL,
		}, reply.Messages(cfg.Messages)),
		OpsLog:    ops,
		StartedAt: startedAt,
	}
	tDeps := tasks.TaskDeps{
		Logger:    log,
		Config:    cfg,
		Store:     sqlDB,
		Guard:     guard,
		Menu:      menu,
		OpsLog:    ops,
		StartedAt: startedAt,
	}

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), handlers.Gate(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps, cmdHandlers)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}
	ops.SetSender(tg)

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if err := ops.Startup(ctx, startedAt, cfg.Telegram.BotInfo.Username); err != nil {
		log.Error("Operations chat is not reachable", "chat_id", cfg.Telegram.LogChatID, "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommands(ctx, tg, cmdHandlers); err != nil {
		log.Warn("Failed to publish the command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, provider, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

// openSettingsStore opens the configured remote settings backend. The
// returned database store is non-nil only for sqlite and feeds the
// maintenance task.
func openSettingsStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (settings.Store, database.Store, error) {
	switch cfg.Remote.Driver {
	case "sqlite":
		s, err := sqlstore.Open(cfg.Remote.SQLitePath, cfg.Remote.PollInterval, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Database(), nil
	case "mongo":
		s, err := mongostore.Connect(ctx, cfg.Remote.MongoURI, cfg.Remote.MongoDatabase, cfg.Remote.Timeout, log)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown settings driver %q", cfg.Remote.Driver)
}
