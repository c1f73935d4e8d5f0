package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewAllUsersHandler returns a handler for the /allusers command.
// Registration pairs it with the AdminOnly middleware.
func NewAllUsersHandler(deps HandlerDeps) bot.HandlerFunc {
	return allUsersHandler{deps}.Handle
}

// allUsersHandler processes the /allusers command.
type allUsersHandler struct {
	deps HandlerDeps
}

func (h allUsersHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "allusers")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "AllUsers handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Admin requested user listing", "chat_id", chatID, "user_id", update.Message.From.ID)

	users, err := h.deps.Store.ListAllUsers(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list users", "error", err, "chat_id", chatID)
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.GeneralError,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	if len(users) == 0 {
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.NoUsers,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send no users reply", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatUserList(users),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send user list", "error", err, "chat_id", chatID)
	}
}
