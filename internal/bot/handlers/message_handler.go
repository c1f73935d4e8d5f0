package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"chatvault/internal/database"
)

// NewMessageHandler returns the default handler that persists every plain
// text message. It is registered as the bot's default handler; command
// updates are matched by the command handlers first and skipped here.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

// messageHandler persists inbound text messages.
type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	text := update.Message.Text
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Saving inbound message", "chat_id", chatID, "user_id", from.ID)

	msg, err := h.deps.Store.RecordActivity(ctx, database.ActivityEvent{
		UserID:    from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Text:      text,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to record message", "error", err, "user_id", from.ID)
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.GeneralError,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatSaved(msg),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send save confirmation", "error", err, "chat_id", chatID)
	}
}
