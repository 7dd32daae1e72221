package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewReloadHandler returns a handler for the /reload command.
func NewReloadHandler(deps HandlerDeps) bot.HandlerFunc {
	return reloadHandler{deps}.Handle
}

// reloadHandler drops the restaurant cache and re-reads the catalog.
type reloadHandler struct {
	deps HandlerDeps
}

func (h reloadHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reload")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Reload handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	s := h.deps.sender(b)
	started := time.Now()

	log.InfoContext(ctx, "Reloading restaurant catalog", "user_id", msg.From.ID)
	n, err := h.deps.Menu.Reload()
	if err != nil {
		log.ErrorContext(ctx, "Failed to reload restaurant catalog", "error", err)
		sendReply(ctx, s, log, msg, h.deps.Replies.Error())
		h.deps.logOp(ctx, msg, opEntry{command: "reload", started: started, err: err})
		return
	}

	_, err = sendReply(ctx, s, log, msg, h.deps.Replies.Reloaded(n))
	h.deps.logOp(ctx, msg, opEntry{command: "reload", response: fmt.Sprintf("%d restaurants", n), started: started, err: err})
}
