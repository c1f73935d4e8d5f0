package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"chatvault/internal/database"
)

// NewMyMessagesHandler returns a handler for the /mymessages command.
func NewMyMessagesHandler(deps HandlerDeps) bot.HandlerFunc {
	return myMessagesHandler{deps}.Handle
}

// myMessagesHandler processes the /mymessages command.
type myMessagesHandler struct {
	deps HandlerDeps
}

func (h myMessagesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "mymessages")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "MyMessages handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /mymessages command", "chat_id", chatID, "user_id", from.ID)

	messages, err := h.deps.Store.GetUserHistory(ctx, from.ID, database.DefaultHistoryLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to get user history", "error", err, "user_id", from.ID)
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.GeneralError,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	if len(messages) == 0 {
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.NoMessages,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send no messages reply", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatHistory(messages),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send history message", "error", err, "chat_id", chatID)
	}
}
