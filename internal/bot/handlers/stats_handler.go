package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

// statsHandler processes the /stats command using injected dependencies.
type statsHandler struct {
	deps HandlerDeps
}

// Handle replies with the aggregate snapshot plus the caller's own message
// count. A failed read degrades to the "stats unavailable" reply; it never
// propagates as a fault.
func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /stats command", "chat_id", chatID, "user_id", from.ID)

	stats, err := h.deps.Store.Stats(ctx)
	var ownCount int64
	if err == nil {
		ownCount, err = h.deps.Store.CountUserMessages(ctx, from.ID)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch statistics", "error", err, "user_id", from.ID)
		_, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Config.Messages.StatsUnavailable,
		})
		if sendErr != nil {
			log.ErrorContext(ctx, "Failed to send stats unavailable message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatStats(stats, ownCount, from.ID, from.Username),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send stats message", "error", err, "chat_id", chatID)
	}
}
