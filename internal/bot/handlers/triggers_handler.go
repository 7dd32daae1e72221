package handlers

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewTriggersHandler returns a handler for the /triggers command.
func NewTriggersHandler(deps HandlerDeps) bot.HandlerFunc {
	return triggersHandler{deps}.Handle
}

// triggersHandler lists and edits the trigger words of a chat:
//
//	/triggers
//	/triggers add <word>
//	/triggers remove <word>
//	/triggers reset
type triggersHandler struct {
	deps HandlerDeps
}

func (h triggersHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "triggers")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "Triggers handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	s := h.deps.sender(b)
	guild := chatKey(msg)
	started := time.Now()
	current := h.deps.Settings.Guild(guild).Triggers

	args := commandArgs(msg.Text)
	sub, word, _ := strings.Cut(args, " ")
	word = strings.TrimSpace(word)
	command := strings.TrimSpace("triggers " + args)

	var next []string
	switch {
	case args == "":
		_, err := sendReply(ctx, s, log, msg, h.deps.Replies.Triggers(current))
		h.deps.logOp(ctx, msg, opEntry{command: command, started: started, err: err})
		return
	case sub == "add" && word != "":
		if slices.Contains(current, word) {
			_, err := sendReply(ctx, s, log, msg, h.deps.Replies.Triggers(current))
			h.deps.logOp(ctx, msg, opEntry{command: command, response: "unchanged", started: started, err: err})
			return
		}
		if len(current) >= h.deps.Config.Bot.MaxTriggers {
			_, err := sendReply(ctx, s, log, msg, h.deps.Replies.TriggersUsage())
			h.deps.logOp(ctx, msg, opEntry{command: command, response: "limit reached", started: started, err: err})
			return
		}
		next = append(slices.Clone(current), word)
	case sub == "remove" && word != "":
		next = slices.DeleteFunc(slices.Clone(current), func(w string) bool { return w == word })
	case sub == "reset" && word == "":
		next = nil
	default:
		_, err := sendReply(ctx, s, log, msg, h.deps.Replies.TriggersUsage())
		h.deps.logOp(ctx, msg, opEntry{command: command, response: "usage", started: started, err: err})
		return
	}

	log.InfoContext(ctx, "Updating chat triggers", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "triggers", next)
	if err := h.deps.Settings.SetTriggers(ctx, guild, next); err != nil {
		log.ErrorContext(ctx, "Failed to store triggers", "error", err, "chat_id", msg.Chat.ID)
		sendReply(ctx, s, log, msg, h.deps.Replies.Error())
		h.deps.logOp(ctx, msg, opEntry{command: command, started: started, err: err})
		return
	}

	// An empty list falls back to the defaults.
	if len(next) == 0 {
		next = h.deps.Config.Bot.Defaults.Triggers
	}
	_, err := sendReply(ctx, s, log, msg, h.deps.Replies.TriggersUpdated(next))
	h.deps.logOp(ctx, msg, opEntry{command: command, response: strings.Join(next, ", "), started: started, err: err})
}
