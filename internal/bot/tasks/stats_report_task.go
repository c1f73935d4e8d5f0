package tasks

import (
	"context"
	"fmt"
)

// newStatsReportTask creates the scheduled task that logs a snapshot of the
// aggregate statistics. A failed read is reported as a task error and
// retried on the next schedule; it never affects message ingestion.
func newStatsReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "stats_report")

	return func(ctx context.Context) error {
		stats, err := deps.Store.Stats(ctx)
		if err != nil {
			log.WarnContext(ctx, "Stats snapshot unavailable", "error", err)
			return fmt.Errorf("stats report failed: %w", err)
		}

		logEntry := log.With(
			"messages", stats.MessageCount,
			"users", stats.UserCount,
		)
		if stats.LastMessageAt.Valid {
			logEntry = logEntry.With(
				"last_message_at", stats.LastMessageAt.Time,
				"last_message_user_id", stats.LastMessageUserID.Int64,
			)
		}
		logEntry.InfoContext(ctx, "Periodic stats snapshot")
		return nil
	}
}
