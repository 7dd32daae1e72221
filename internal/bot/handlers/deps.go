package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/config"
	"github.com/edgard/what2eat/internal/cooldown"
	"github.com/edgard/what2eat/internal/picker"
	"github.com/edgard/what2eat/internal/reply"
	"github.com/edgard/what2eat/internal/settings"
)

// Sender is the subset of the Bot API the handlers call. *bot.Bot
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// OpsLogger mirrors command executions to the operations chat.
type OpsLogger interface {
	Send(ctx context.Context, r reply.Reply)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Menu     *picker.Menu
	Guard    *cooldown.Guard
	Settings *settings.Provider
	Replies  *reply.Builder
	OpsLog   OpsLogger

	// Sender overrides the *bot.Bot passed to handlers. Tests set it.
	Sender Sender

	StartedAt time.Time
}

func (d HandlerDeps) sender(b *bot.Bot) Sender {
	if d.Sender != nil {
		return d.Sender
	}
	return b
}
