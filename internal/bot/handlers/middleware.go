// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"strconv"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Gate drops updates the bot must ignore: anything before the settings
// snapshot is loaded, messages from bots and messages from banned users or
// chats. Banned senders get no reply.
func Gate(deps HandlerDeps) tgbot.Middleware {
	log := deps.Logger.With("middleware", "Gate")
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.From == nil {
				return
			}
			if msg.From.IsBot {
				return
			}
			if !deps.Settings.Ready() {
				log.DebugContext(ctx, "Settings not ready, dropping update", "update_id", update.ID)
				return
			}
			if deps.Settings.IsBanned(chatKey(msg), strconv.FormatInt(msg.From.ID, 10)) {
				log.InfoContext(ctx, "Dropping update from banned sender", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
				return
			}
			next(ctx, b, update)
		}
	}
}

// AdminOnly lets only the configured bot admins through.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			if !deps.Config.IsAdmin(userID) {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				sendReply(ctx, deps.sender(b), log, update.Message, deps.Replies.Unauthorized())
				return
			}

			next(ctx, b, update)
		}
	}
}

// ChatAdminOnly lets bot admins and the owner or administrators of the chat
// through. In private chats the user owns the chat.
func ChatAdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			msg := update.Message
			if msg == nil || msg.From == nil {
				return
			}
			log := deps.Logger.With("middleware", "ChatAdminOnly")

			if deps.Config.IsAdmin(msg.From.ID) || msg.Chat.Type == models.ChatTypePrivate {
				next(ctx, b, update)
				return
			}

			member, err := deps.sender(b).GetChatMember(ctx, &tgbot.GetChatMemberParams{
				ChatID: msg.Chat.ID,
				UserID: msg.From.ID,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to get chat member", "error", err, "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
				sendReply(ctx, deps.sender(b), log, msg, deps.Replies.Error())
				return
			}
			if member.Type != models.ChatMemberTypeOwner && member.Type != models.ChatMemberTypeAdministrator {
				log.WarnContext(ctx, "Unauthorized chat settings change", "user_id", msg.From.ID, "chat_id", msg.Chat.ID)
				sendReply(ctx, deps.sender(b), log, msg, deps.Replies.Unauthorized())
				return
			}

			next(ctx, b, update)
		}
	}
}
