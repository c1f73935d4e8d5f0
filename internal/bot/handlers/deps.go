package handlers

import (
	"log/slog"

	"chatvault/internal/config"
	"chatvault/internal/database"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
}
