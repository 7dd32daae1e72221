package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDefaultHandler returns the handler for messages no registered command
// matched: "/cmd@botname", "<prefix>cmd" and trigger words.
func NewDefaultHandler(deps HandlerDeps, commands map[string]RegisteredHandler) bot.HandlerFunc {
	final := make(map[string]bot.HandlerFunc, len(commands))
	for name, h := range commands {
		final[name] = h.Final()
	}
	return defaultHandler{deps: deps, commands: final}.Handle
}

type defaultHandler struct {
	deps     HandlerDeps
	commands map[string]bot.HandlerFunc
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	log := h.deps.Logger.With("handler", "default")
	guild := h.deps.Settings.Guild(chatKey(msg))

	if name, ok := h.commandName(msg.Text, guild.Prefix); ok {
		if name == "" {
			return
		}
		if handler, found := h.commands["/"+name]; found {
			log.DebugContext(ctx, "Dispatching command", "command", name, "chat_id", msg.Chat.ID)
			handler(ctx, b, update)
		}
		return
	}

	if matchesTrigger(msg.Text, guild.Triggers) {
		log.DebugContext(ctx, "Trigger matched", "chat_id", msg.Chat.ID)
		if handler, found := h.commands["/what2eat"]; found {
			handler(ctx, b, update)
		}
	}
}

// commandName extracts the lower-cased command word from "/cmd", "/cmd@bot"
// or "<prefix>cmd". ok reports whether text is a command at all; a slash
// command addressed to another bot yields ok with an empty name.
func (h defaultHandler) commandName(text, prefix string) (string, bool) {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	word, _, _ = strings.Cut(word, "\n")

	switch {
	case strings.HasPrefix(word, "/"):
		word = word[1:]
		if name, target, found := strings.Cut(word, "@"); found {
			if !strings.EqualFold(target, h.botUsername()) {
				return "", true
			}
			word = name
		}
		return strings.ToLower(word), true
	case prefix != "" && strings.HasPrefix(word, prefix):
		word = word[len(prefix):]
	default:
		return "", false
	}

	if word == "" {
		return "", false
	}
	return strings.ToLower(word), true
}

func (h defaultHandler) botUsername() string {
	if h.deps.Config.Telegram.BotInfo == nil {
		return ""
	}
	return h.deps.Config.Telegram.BotInfo.Username
}

func matchesTrigger(text string, triggers []string) bool {
	lower := strings.ToLower(text)
	for _, t := range triggers {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
