package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/reply"
)

const opsSendTimeout = 10 * time.Second

// MessageSender is the part of *bot.Bot the operations log needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// OpsLog mirrors command executions, startups and heartbeats to a Telegram
// chat. A nil OpsLog or a zero chat id discards everything.
type OpsLog struct {
	sender MessageSender
	chatID int64
	logger *slog.Logger
}

// NewOpsLog creates an operations log writing to chatID.
func NewOpsLog(sender MessageSender, chatID int64, logger *slog.Logger) *OpsLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsLog{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "ops_log"),
	}
}

// SetSender attaches the bot once it exists. Messages sent before that are
// dropped.
func (o *OpsLog) SetSender(sender MessageSender) {
	o.sender = sender
}

// Enabled reports whether messages are delivered anywhere.
func (o *OpsLog) Enabled() bool {
	return o != nil && o.chatID != 0 && o.sender != nil
}

// Send delivers r and logs delivery failures. It never returns an error so
// callers do not fail because the operations chat is unavailable.
func (o *OpsLog) Send(ctx context.Context, r reply.Reply) {
	if !o.Enabled() {
		return
	}
	if err := o.send(ctx, r); err != nil {
		o.logger.WarnContext(ctx, "Failed to send to operations chat", "error", err, "chat_id", o.chatID)
	}
}

// Startup announces the bot in the operations chat. Unlike Send it returns
// the delivery error, so a missing or unreachable chat stops the startup.
func (o *OpsLog) Startup(ctx context.Context, at time.Time, botName string) error {
	if !o.Enabled() {
		return nil
	}
	if err := o.send(ctx, reply.Startup(at, botName)); err != nil {
		return fmt.Errorf("operations chat %d unreachable: %w", o.chatID, err)
	}
	return nil
}

func (o *OpsLog) send(ctx context.Context, r reply.Reply) error {
	sendCtx, cancel := context.WithTimeout(ctx, opsSendTimeout)
	defer cancel()

	disabled := true
	_, err := o.sender.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:             o.chatID,
		Text:               r.Text,
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	})
	return err
}
