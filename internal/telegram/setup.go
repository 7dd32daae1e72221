// Package telegram handles the setup and registration of Telegram bot handlers.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/bot/handlers"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully")
	return b, nil
}

// RegisterHandlers registers command handlers with the Telegram bot instance,
// each wrapped in its own middleware.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registeredHandlers map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	log.Info("Registering Telegram handlers...", "count", len(registeredHandlers))

	for _, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", regHandler.Pattern)
			continue
		}

		b.RegisterHandler(regHandler.HandlerType, regHandler.Pattern, regHandler.MatchType, regHandler.Final())
		log.Debug("Registered handler", "pattern", regHandler.Pattern, "match_type", regHandler.MatchType, "middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}

// BotCommands lists the registered commands for the Telegram command menu,
// sorted by name.
func BotCommands(registeredHandlers map[string]handlers.RegisteredHandler) []models.BotCommand {
	commands := make([]models.BotCommand, 0, len(registeredHandlers))
	for _, h := range registeredHandlers {
		if h.Description == "" {
			continue
		}
		commands = append(commands, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Command < commands[j].Command })
	return commands
}

// SetCommands publishes the command menu.
func SetCommands(ctx context.Context, b *bot.Bot, registeredHandlers map[string]handlers.RegisteredHandler) error {
	_, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: BotCommands(registeredHandlers)})
	if err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
