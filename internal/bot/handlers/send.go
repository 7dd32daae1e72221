package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/what2eat/internal/reply"
)

const sendTimeout = 10 * time.Second

// sendReply answers msg with r as MarkdownV2. Replies with an image are sent
// as a photo; when the photo is rejected the text is sent on its own.
func sendReply(ctx context.Context, s Sender, log *slog.Logger, msg *models.Message, r reply.Reply) (*models.Message, error) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	replyTo := &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true}

	if r.ImageURL != "" {
		sent, err := s.SendPhoto(sendCtx, &bot.SendPhotoParams{
			ChatID:          msg.Chat.ID,
			Photo:           &models.InputFileString{Data: r.ImageURL},
			Caption:         r.Text,
			ParseMode:       models.ParseModeMarkdown,
			ReplyParameters: replyTo,
		})
		if err == nil {
			return sent, nil
		}
		log.WarnContext(ctx, "Failed to send photo, falling back to text", "error", err, "chat_id", msg.Chat.ID)
	}

	disabled := true
	sent, err := s.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:             msg.Chat.ID,
		Text:               r.Text,
		ParseMode:          models.ParseModeMarkdown,
		ReplyParameters:    replyTo,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
		return nil, err
	}
	return sent, nil
}

// deleteAfter removes a sent message once ttl elapses. It returns early when
// ctx is cancelled.
func deleteAfter(ctx context.Context, s Sender, log *slog.Logger, sent *models.Message, ttl time.Duration) {
	if sent == nil || ttl <= 0 {
		return
	}
	go func() {
		t := time.NewTimer(ttl)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if _, err := s.DeleteMessage(delCtx, &bot.DeleteMessageParams{ChatID: sent.Chat.ID, MessageID: sent.ID}); err != nil {
			log.DebugContext(ctx, "Failed to delete notice", "error", err, "chat_id", sent.Chat.ID, "message_id", sent.ID)
		}
	}()
}

// opEntry collects what the operations log shows about one command.
type opEntry struct {
	command       string
	response      string
	restaurantURL string
	started       time.Time
	err           error
}

// logOp mirrors a command execution to the operations chat, if configured.
func (d HandlerDeps) logOp(ctx context.Context, msg *models.Message, op opEntry) {
	if d.OpsLog == nil {
		return
	}
	stats := d.Menu.Stats()
	d.OpsLog.Send(ctx, reply.Log(reply.LogEntry{
		Time:          op.started,
		Command:       op.command,
		Response:      op.response,
		ChatID:        msg.Chat.ID,
		ChatTitle:     chatTitle(msg.Chat),
		UserID:        msg.From.ID,
		UserName:      memberName(msg.From),
		Cached:        stats.Cached,
		Restaurants:   stats.Restaurants,
		RestaurantURL: op.restaurantURL,
		Elapsed:       time.Since(op.started),
		Err:           op.err,
	}))
}

// chatKey is the settings key of a chat.
func chatKey(msg *models.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10)
}

// actorKey is the cooldown key of a message: the chat or the sender,
// depending on cooldown.scope.
func (d HandlerDeps) actorKey(msg *models.Message) string {
	if d.Config.Cooldown.Scope == "user" {
		return "u" + strconv.FormatInt(msg.From.ID, 10)
	}
	return "c" + strconv.FormatInt(msg.Chat.ID, 10)
}

func memberName(u *models.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func chatTitle(c models.Chat) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	default:
		return strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
}

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexAny(text, " \t\n")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+1:])
}
