package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/reply"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	started := time.Now()

	stats := h.deps.Menu.Stats()
	banned, guilds, hints := h.deps.Settings.Counts()
	_, err := sendReply(ctx, h.deps.sender(b), log, msg, h.deps.Replies.Stats(reply.StatsParams{
		Cached:      stats.Cached,
		Restaurants: stats.Restaurants,
		Banned:      banned,
		Guilds:      guilds,
		Hints:       hints,
		Uptime:      time.Since(h.deps.StartedAt),
	}))
	h.deps.logOp(ctx, msg, opEntry{command: "stats", started: started, err: err})
}
