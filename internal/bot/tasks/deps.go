// Package tasks implements scheduled background tasks for the chatvault bot.
package tasks

import (
	"log/slog"

	"chatvault/internal/config"
	"chatvault/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
