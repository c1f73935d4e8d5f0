package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"chatvault/internal/database"

	_ "modernc.org/sqlite"
)

// Test schema mirrors the Postgres migrations with SQLite declensions.
// The store binds all queries through Rebind/positional args, so the same
// code paths run against both drivers.
const testSchema = `
CREATE TABLE users (
    user_id    INTEGER PRIMARY KEY,
    username   TEXT,
    first_name TEXT,
    last_name  TEXT,
    created_at TIMESTAMP NOT NULL,
    last_seen  TIMESTAMP NOT NULL
);

CREATE TABLE messages (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      INTEGER NOT NULL,
    username     TEXT,
    first_name   TEXT,
    last_name    TEXT,
    message_text TEXT NOT NULL,
    created_at   TIMESTAMP NOT NULL
);

CREATE INDEX idx_messages_user_id ON messages (user_id);
CREATE INDEX idx_messages_created_at ON messages (created_at);
CREATE INDEX idx_users_last_seen ON users (last_seen);
`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// newTestStore returns a Store over a fresh in-memory SQLite database,
// plus the raw handle for direct assertions and fault injection.
func newTestStore(t *testing.T) (database.Store, *sqlx.DB) {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	// A single connection keeps the in-memory database alive for the whole test.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return database.NewStore(db, nil), db
}

func record(t *testing.T, store database.Store, userID int64, username, text string) *database.Message {
	t.Helper()

	msg, err := store.RecordActivity(context.Background(), database.ActivityEvent{
		UserID:   userID,
		Username: username,
		Text:     text,
	})
	if err != nil {
		t.Fatalf("RecordActivity(%d, %q) failed: %v", userID, text, err)
	}
	return msg
}

func TestRecordActivityFreshStore(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	msg, err := store.RecordActivity(ctx, database.ActivityEvent{
		UserID:    42,
		Username:  "alice",
		FirstName: "Alice",
		Text:      "hi",
	})
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if msg.ID == 0 {
		t.Error("expected assigned message ID, got 0")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected message timestamp to be set")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.MessageCount != 1 {
		t.Errorf("expected 1 message, got %d", stats.MessageCount)
	}
	if stats.UserCount != 1 {
		t.Errorf("expected 1 user, got %d", stats.UserCount)
	}
	if !stats.LastMessageUserID.Valid || stats.LastMessageUserID.Int64 != 42 {
		t.Errorf("expected last message from user 42, got %+v", stats.LastMessageUserID)
	}

	history, err := store.GetUserHistory(ctx, 42, 10)
	if err != nil {
		t.Fatalf("GetUserHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 message in history, got %d", len(history))
	}
	if history[0].Text != "hi" {
		t.Errorf("expected message text %q, got %q", "hi", history[0].Text)
	}
	if !history[0].Username.Valid || history[0].Username.String != "alice" {
		t.Errorf("expected denormalized username alice, got %+v", history[0].Username)
	}

	users, err := store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].UserID != 42 {
		t.Fatalf("expected single user 42, got %+v", users)
	}
}

func TestRecordActivityUpsertsUser(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()

	record(t, store, 7, "old_name", "first")
	record(t, store, 7, "new_name", "second")

	var userCount int64
	if err := db.Get(&userCount, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if userCount != 1 {
		t.Errorf("expected exactly one user row, got %d", userCount)
	}

	users, err := store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	u := users[0]
	if !u.Username.Valid || u.Username.String != "new_name" {
		t.Errorf("expected username from second call, got %+v", u.Username)
	}
	if u.LastSeen.Before(u.CreatedAt) {
		t.Errorf("last_seen %v before created_at %v", u.LastSeen, u.CreatedAt)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.MessageCount != 2 {
		t.Errorf("expected 2 messages, got %d", stats.MessageCount)
	}
}

func TestRecordActivityPreservesCreatedAt(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	record(t, store, 9, "bob", "one")
	users, err := store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	firstCreated := users[0].CreatedAt

	record(t, store, 9, "bob", "two")
	users, err = store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	if !users[0].CreatedAt.Equal(firstCreated) {
		t.Errorf("created_at changed on upsert: %v -> %v", firstCreated, users[0].CreatedAt)
	}
}

func TestRecordActivityRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()

	// Force the message insert to fail after the user upsert succeeded
	// in-transaction. The whole unit must roll back.
	if _, err := db.Exec(`DROP TABLE messages`); err != nil {
		t.Fatalf("failed to drop messages table: %v", err)
	}

	_, err := store.RecordActivity(ctx, database.ActivityEvent{UserID: 42, Username: "alice", Text: "hi"})
	if err == nil {
		t.Fatal("expected RecordActivity to fail")
	}
	if !errors.Is(err, database.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}

	var userCount int64
	if err := db.Get(&userCount, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if userCount != 0 {
		t.Errorf("expected user upsert to be rolled back, found %d user rows", userCount)
	}
}

func TestRecordActivityRejectsZeroUserID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.RecordActivity(context.Background(), database.ActivityEvent{Text: "hi"})
	if !errors.Is(err, database.ErrPersistence) {
		t.Errorf("expected ErrPersistence for zero user_id, got %v", err)
	}
}

func TestGetUserHistoryOrderingAndBounding(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	record(t, store, 7, "u", "first")
	record(t, store, 7, "u", "second")
	record(t, store, 7, "u", "third")

	t.Run("newest first", func(t *testing.T) {
		history, err := store.GetUserHistory(ctx, 7, 2)
		if err != nil {
			t.Fatalf("GetUserHistory failed: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(history))
		}
		if history[0].Text != "third" || history[1].Text != "second" {
			t.Errorf("expected [third second], got [%s %s]", history[0].Text, history[1].Text)
		}
	})

	t.Run("limit exceeds row count", func(t *testing.T) {
		history, err := store.GetUserHistory(ctx, 7, 10)
		if err != nil {
			t.Fatalf("GetUserHistory failed: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("expected 3 messages, got %d", len(history))
		}
		if history[0].Text != "third" || history[2].Text != "first" {
			t.Errorf("unexpected ordering: %v", texts(history))
		}
	})

	t.Run("default limit for non-positive values", func(t *testing.T) {
		history, err := store.GetUserHistory(ctx, 7, 0)
		if err != nil {
			t.Fatalf("GetUserHistory failed: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("expected all 3 messages under default limit, got %d", len(history))
		}
	})

	t.Run("unseen user yields empty history", func(t *testing.T) {
		history, err := store.GetUserHistory(ctx, 999, 10)
		if err != nil {
			t.Fatalf("GetUserHistory failed: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d messages", len(history))
		}
	})

	t.Run("zero user id rejected", func(t *testing.T) {
		if _, err := store.GetUserHistory(ctx, 0, 10); err == nil {
			t.Error("expected error for zero user_id")
		}
	})
}

func TestListAllUsersOrdering(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()

	record(t, store, 1, "first_user", "a")
	record(t, store, 2, "second_user", "b")
	record(t, store, 3, "third_user", "c")

	users, err := store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, wantID := range []int64{3, 2, 1} {
		if users[i].UserID != wantID {
			t.Errorf("position %d: expected user %d, got %d", i, wantID, users[i].UserID)
		}
	}

	// Identical created_at values fall back to user_id descending.
	if _, err := db.Exec(
		`UPDATE users SET created_at = (SELECT created_at FROM users WHERE user_id = 1)`,
	); err != nil {
		t.Fatalf("failed to align created_at values: %v", err)
	}

	users, err = store.ListAllUsers(ctx)
	if err != nil {
		t.Fatalf("ListAllUsers failed: %v", err)
	}
	for i, wantID := range []int64{3, 2, 1} {
		if users[i].UserID != wantID {
			t.Errorf("tie-break position %d: expected user %d, got %d", i, wantID, users[i].UserID)
		}
	}
}

func TestStatsConsistency(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.MessageCount != 0 || stats.UserCount != 0 {
			t.Errorf("expected zero counts, got %+v", stats)
		}
		if stats.LastMessageAt.Valid {
			t.Error("expected unset last message time for empty store")
		}
	})

	t.Run("after activity", func(t *testing.T) {
		record(t, store, 1, "a", "m1")
		record(t, store, 1, "a", "m2")
		record(t, store, 2, "b", "m3")
		record(t, store, 3, "c", "m4")

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.MessageCount != 4 {
			t.Errorf("expected 4 messages, got %d", stats.MessageCount)
		}
		if stats.UserCount != 3 {
			t.Errorf("expected 3 users, got %d", stats.UserCount)
		}
		if !stats.LastMessageUserID.Valid || stats.LastMessageUserID.Int64 != 3 {
			t.Errorf("expected last message from user 3, got %+v", stats.LastMessageUserID)
		}
		if !stats.LastMessageAt.Valid {
			t.Error("expected last message time to be set")
		}
	})
}

func TestCountUserMessages(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	record(t, store, 5, "a", "one")
	record(t, store, 5, "a", "two")
	record(t, store, 6, "b", "other")

	count, err := store.CountUserMessages(ctx, 5)
	if err != nil {
		t.Fatalf("CountUserMessages failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 messages for user 5, got %d", count)
	}

	count, err = store.CountUserMessages(ctx, 999)
	if err != nil {
		t.Fatalf("CountUserMessages failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 messages for unseen user, got %d", count)
	}
}

func TestConcurrentRecordActivitySameNewUser(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordActivity(ctx, database.ActivityEvent{
				UserID:   77,
				Username: "racer",
				Text:     "contender",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent RecordActivity failed: %v", err)
		}
	}

	var userCount int64
	if err := db.Get(&userCount, `SELECT COUNT(*) FROM users WHERE user_id = 77`); err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if userCount != 1 {
		t.Errorf("expected exactly one user row after concurrent upserts, got %d", userCount)
	}

	count, err := store.CountUserMessages(ctx, 77)
	if err != nil {
		t.Fatalf("CountUserMessages failed: %v", err)
	}
	if count != workers {
		t.Errorf("expected %d messages, got %d", workers, count)
	}
}

func TestRunMaintenance(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	if err := store.RunMaintenance(context.Background()); err != nil {
		t.Errorf("RunMaintenance failed: %v", err)
	}
}

func texts(messages []database.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}
