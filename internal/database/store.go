package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrPersistence is returned when a write operation fails after a session
// was acquired. It is always paired with a rollback of the whole unit of
// work: a failed RecordActivity leaves neither the user change nor the
// message behind.
var ErrPersistence = errors.New("persistence error")

const (
	// DefaultHistoryLimit bounds GetUserHistory when the caller passes no limit.
	DefaultHistoryLimit = 10

	maxHistoryLimit = 100
)

// Store defines the persistence operations exposed to command handlers and
// scheduled tasks. Methods accept context.Context for cancellation and
// timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecordActivity upserts the sender and inserts a message carrying the
	// denormalized sender fields, as one atomic unit. It returns the
	// persisted message with its assigned ID and timestamp.
	RecordActivity(ctx context.Context, event ActivityEvent) (*Message, error)

	// Stats returns a point-in-time snapshot of aggregate counts.
	Stats(ctx context.Context) (*Stats, error)

	// CountUserMessages returns the total number of messages stored for a user.
	CountUserMessages(ctx context.Context, userID int64) (int64, error)

	// GetUserHistory retrieves the 'limit' most recent messages for a user,
	// newest first. Presentation-order reversal is the caller's concern.
	GetUserHistory(ctx context.Context, userID int64, limit int) ([]Message, error)

	// ListAllUsers retrieves all users, most recently registered first.
	ListAllUsers(ctx context.Context) ([]User, error)

	// RunMaintenance refreshes planner statistics (ANALYZE).
	RunMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordActivity performs the user upsert and the message insert inside a
// single transaction. The upsert is the store-level atomic primitive
// (INSERT ... ON CONFLICT DO UPDATE), so two concurrent calls for the same
// unseen user ID cannot lose a write: the second conflict falls back to an
// update inside the store, with no read-modify-write window in this process.
func (s *sqlxStore) RecordActivity(ctx context.Context, event ActivityEvent) (*Message, error) {
	if event.UserID == 0 {
		return nil, fmt.Errorf("%w: event must have a non-zero user_id", ErrPersistence)
	}

	now := time.Now().UTC()
	msg := &Message{
		UserID:    event.UserID,
		Username:  nullString(event.Username),
		FirstName: nullString(event.FirstName),
		LastName:  nullString(event.LastName),
		Text:      event.Text,
		CreatedAt: now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for recording activity",
			"user_id", event.UserID, "error", err)
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	// Upsert the sender: insert on first sight, otherwise overwrite the
	// profile fields and bump last_seen. created_at is never touched after
	// the first insert.
	upsert := tx.Rebind(`
        INSERT INTO users (user_id, username, first_name, last_name, created_at, last_seen)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET
            username   = excluded.username,
            first_name = excluded.first_name,
            last_name  = excluded.last_name,
            last_seen  = excluded.last_seen;
    `)
	_, err = tx.ExecContext(ctx, upsert,
		event.UserID, msg.Username, msg.FirstName, msg.LastName, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "user_id", event.UserID, "error", err)
		return nil, fmt.Errorf("%w: failed to upsert user %d: %v", ErrPersistence, event.UserID, err)
	}

	insert := tx.Rebind(`
        INSERT INTO messages (user_id, username, first_name, last_name, message_text, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id;
    `)
	err = tx.GetContext(ctx, &msg.ID, insert,
		msg.UserID, msg.Username, msg.FirstName, msg.LastName, msg.Text, msg.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "user_id", event.UserID, "error", err)
		return nil, fmt.Errorf("%w: failed to save message for user %d: %v", ErrPersistence, event.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"user_id", event.UserID, "error", err)
		return nil, fmt.Errorf("%w: failed to commit transaction: %v", ErrPersistence, err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil

	s.logger.DebugContext(ctx, "Activity recorded successfully",
		"user_id", event.UserID, "message_id", msg.ID)
	return msg, nil
}

// Stats returns aggregate counts and the most recent message, if any, as a
// point-in-time snapshot.
func (s *sqlxStore) Stats(ctx context.Context) (*Stats, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var stats Stats
	if err := s.db.GetContext(ctx, &stats.MessageCount, `SELECT COUNT(*) FROM messages`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting messages", "error", err)
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.UserCount, `SELECT COUNT(*) FROM users`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting users", "error", err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var last Message
	query := `
        SELECT id, user_id, username, first_name, last_name, message_text, created_at
        FROM messages
        ORDER BY created_at DESC, id DESC
        LIMIT 1;
    `
	err := s.db.GetContext(ctx, &last, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Empty log: last-message fields stay unset.
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting last message", "error", err)
		return nil, fmt.Errorf("failed to get last message: %w", err)
	default:
		stats.LastMessageAt = sql.NullTime{Time: last.CreatedAt, Valid: true}
		stats.LastMessageUserID = sql.NullInt64{Int64: last.UserID, Valid: true}
	}

	s.logger.DebugContext(ctx, "Fetched stats snapshot",
		"messages", stats.MessageCount, "users", stats.UserCount)
	return &stats, nil
}

// CountUserMessages returns the total number of messages stored for a user.
func (s *sqlxStore) CountUserMessages(ctx context.Context, userID int64) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user_id cannot be zero")
	}

	var count int64
	query := s.db.Rebind(`SELECT COUNT(*) FROM messages WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &count, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error counting user messages", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count messages for user %d: %w", userID, err)
	}
	return count, nil
}

// GetUserHistory retrieves the most recent 'limit' messages for a user,
// newest first. An unseen user yields an empty slice, not an error.
func (s *sqlxStore) GetUserHistory(ctx context.Context, userID int64, limit int) ([]Message, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "user_id", userID, "default_limit", limit)
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "user_id", userID, "capped_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	messages := []Message{}
	query := s.db.Rebind(`
        SELECT id, user_id, username, first_name, last_name, message_text, created_at
        FROM messages
        WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `)

	err := s.db.SelectContext(ctx, &messages, query, userID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching history",
			"user_id", userID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting user history", "user_id", userID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get history for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched user history successfully", "user_id", userID, "count", len(messages))
	return messages, nil
}

// ListAllUsers retrieves all users ordered by registration time, newest
// first, with the user ID as a deterministic tie-break. The listing is
// unbounded; pagination is the presentation layer's concern.
func (s *sqlxStore) ListAllUsers(ctx context.Context) ([]User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	users := []User{}
	query := `
        SELECT user_id, username, first_name, last_name, created_at, last_seen
        FROM users
        ORDER BY created_at DESC, user_id DESC;
    `

	err := s.db.SelectContext(ctx, &users, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed users successfully", "count", len(users))
	return users, nil
}

// RunMaintenance refreshes planner statistics for the two tables.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (ANALYZE)...")
	if _, err := s.db.ExecContext(ctx, `ANALYZE;`); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (ANALYZE) failed", "error", err)
		return fmt.Errorf("failed to execute ANALYZE: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (ANALYZE) completed successfully")
	return nil
}
