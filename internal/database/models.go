package database

import (
	"database/sql"
	"time"
)

// User represents a distinct sender identity observed by the bot.
// The primary key is the Telegram user ID, assigned externally and never
// generated here. Profile fields and LastSeen are overwritten on every
// observed activity; CreatedAt is set once at first insert.
type User struct {
	UserID    int64          `db:"user_id"`
	Username  sql.NullString `db:"username"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	CreatedAt time.Time      `db:"created_at"`
	LastSeen  time.Time      `db:"last_seen"`
}

// Message is one durable record of an inbound text event. Rows are
// append-only: a message is inserted exactly once and never updated.
// The sender fields are denormalized copies taken at send time so the
// history keeps the sender's presentation identity as it was then,
// independent of later profile changes.
type Message struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	Username  sql.NullString `db:"username"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	Text      string         `db:"message_text"`
	CreatedAt time.Time      `db:"created_at"`
}

// ActivityEvent carries the sender identity and text extracted from one
// inbound update. Empty optional fields are stored as NULL.
type ActivityEvent struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// Stats is a point-in-time snapshot of the aggregate table counts.
// LastMessageAt and LastMessageUserID are unset while the log is empty.
type Stats struct {
	MessageCount      int64
	UserCount         int64
	LastMessageAt     sql.NullTime
	LastMessageUserID sql.NullInt64
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
