package handlers

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const maxPrefixRunes = 8

// NewPrefixHandler returns a handler for the /prefix command.
func NewPrefixHandler(deps HandlerDeps) bot.HandlerFunc {
	return prefixHandler{deps}.Handle
}

// prefixHandler shows or changes the command prefix of a chat.
type prefixHandler struct {
	deps HandlerDeps
}

func (h prefixHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "prefix")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Prefix handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	s := h.deps.sender(b)
	guild := chatKey(msg)
	started := time.Now()

	prefix := commandArgs(msg.Text)
	if prefix == "" || utf8.RuneCountInString(prefix) > maxPrefixRunes || containsSpace(prefix) {
		_, err := sendReply(ctx, s, log, msg, h.deps.Replies.PrefixUsage(h.deps.Settings.Guild(guild).Prefix))
		h.deps.logOp(ctx, msg, opEntry{command: "prefix", response: "usage", started: started, err: err})
		return
	}

	log.InfoContext(ctx, "Setting chat prefix", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "prefix", prefix)
	if err := h.deps.Settings.SetPrefix(ctx, guild, prefix); err != nil {
		log.ErrorContext(ctx, "Failed to store prefix", "error", err, "chat_id", msg.Chat.ID)
		sendReply(ctx, s, log, msg, h.deps.Replies.Error())
		h.deps.logOp(ctx, msg, opEntry{command: "prefix " + prefix, started: started, err: err})
		return
	}

	_, err := sendReply(ctx, s, log, msg, h.deps.Replies.PrefixSet(prefix))
	h.deps.logOp(ctx, msg, opEntry{command: "prefix " + prefix, response: "ok", started: started, err: err})
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			return true
		}
	}
	return false
}
