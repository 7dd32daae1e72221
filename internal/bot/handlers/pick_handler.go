package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/cooldown"
	"github.com/edgard/what2eat/internal/reply"
)

// NewPickHandler returns a handler for the /what2eat command.
func NewPickHandler(deps HandlerDeps) bot.HandlerFunc {
	return pickHandler{deps}.Handle
}

// pickHandler draws a random product for the chat, one at a time per actor.
type pickHandler struct {
	deps HandlerDeps
}

func (h pickHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "pick")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Pick handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	s := h.deps.sender(b)
	actor := h.deps.actorKey(msg)

	switch h.deps.Guard.Acquire(actor) {
	case cooldown.Dropped:
		log.DebugContext(ctx, "Dropping pick during cooldown", "actor", actor)
		return
	case cooldown.Busy:
		log.DebugContext(ctx, "Actor busy, sending notice", "actor", actor)
		sent, err := sendReply(ctx, s, log, msg, h.deps.Replies.Busy())
		if err == nil {
			deleteAfter(ctx, s, log, sent, h.deps.Config.Cooldown.NoticeTTL)
		}
		return
	}
	defer h.deps.Guard.Release(actor)

	started := time.Now()
	log.InfoContext(ctx, "Handling pick", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

	pick, ok := h.deps.Menu.Pick()
	if !ok {
		log.InfoContext(ctx, "No restaurant could be picked", "chat_id", msg.Chat.ID)
		_, err := sendReply(ctx, s, log, msg, h.deps.Replies.TryAgain())
		h.deps.logOp(ctx, msg, opEntry{command: "what2eat", response: "no pick", started: started, err: err})
		return
	}

	r := h.deps.Replies.Pick(reply.PickParams{
		Member:      memberName(msg.From),
		Product:     pick.Product.Name,
		Description: pick.Product.Description,
		Image:       pick.Product.Image,
		Store:       pick.Restaurant.Name,
		StoreURL:    pick.Restaurant.URL,
		Hint:        h.deps.Settings.RandomHint(),
	})
	_, err := sendReply(ctx, s, log, msg, r)
	h.deps.logOp(ctx, msg, opEntry{
		command:       "what2eat",
		response:      pick.Product.Name + " @ " + pick.Restaurant.Name,
		restaurantURL: pick.Restaurant.URL,
		started:       started,
		err:           err,
	})
}
