package handlers

import (
	"fmt"
	"strings"

	"chatvault/internal/database"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
	shortLayout    = "02.01 15:04"
	clockLayout    = "15:04:05"

	previewLength = 40
)

func formatWelcome(userID int64, firstName, lastName, username string) string {
	var b strings.Builder
	b.WriteString("🤖 *Welcome to chatvault*\n\n")
	b.WriteString("👤 *Your details:*\n")
	fmt.Fprintf(&b, "• ID: `%d`\n", userID)
	fmt.Fprintf(&b, "• First name: %s\n", firstNonEmpty(firstName, "not set"))
	fmt.Fprintf(&b, "• Last name: %s\n", firstNonEmpty(lastName, "not set"))
	fmt.Fprintf(&b, "• Username: @%s\n\n", firstNonEmpty(username, "none"))
	b.WriteString("📝 *Send me any text message and it will be saved to the database.*\n")
	b.WriteString("Use /help to see all commands.")
	return b.String()
}

func formatStats(stats *database.Stats, ownCount int64, userID int64, username string) string {
	var b strings.Builder
	b.WriteString("📊 *Bot statistics*\n\n")
	b.WriteString("*Overall:*\n")
	fmt.Fprintf(&b, "• Total messages: `%d`\n", stats.MessageCount)
	fmt.Fprintf(&b, "• Total users: `%d`\n\n", stats.UserCount)
	b.WriteString("*Yours:*\n")
	fmt.Fprintf(&b, "• Your messages: `%d`\n", ownCount)
	fmt.Fprintf(&b, "• Your ID: `%d`\n", userID)
	fmt.Fprintf(&b, "• Your username: @%s\n", firstNonEmpty(username, "none"))

	if stats.LastMessageAt.Valid {
		fmt.Fprintf(&b, "\n*Last activity:*\n• %s (user %d)\n",
			stats.LastMessageAt.Time.Format(dateTimeLayout),
			stats.LastMessageUserID.Int64)
	}
	return b.String()
}

// formatHistory renders the caller's recent messages. The store returns
// them newest-first; the display contract is oldest-first within that
// recent window, so iteration runs backwards.
func formatHistory(messages []database.Message) string {
	var b strings.Builder
	b.WriteString("📝 *Your recent messages:*\n\n")

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		fmt.Fprintf(&b, "%d. *[%s]* %s\n",
			len(messages)-i,
			msg.CreatedAt.Format(shortLayout),
			preview(msg.Text))
	}

	fmt.Fprintf(&b, "\nMessages shown: %d", len(messages))
	return b.String()
}

func formatUserList(users []database.User) string {
	var b strings.Builder
	b.WriteString("👥 *All registered users:*\n\n")

	for i, u := range users {
		username := "no username"
		if u.Username.Valid {
			username = "@" + u.Username.String
		}
		fmt.Fprintf(&b, "%d. *%s* %s\n", i+1, firstNonEmpty(u.FirstName.String, "No name"), username)
		fmt.Fprintf(&b, "   ID: `%d` | Registered: %s\n", u.UserID, u.CreatedAt.Format(dateLayout))
		fmt.Fprintf(&b, "   Last activity: %s\n\n", u.LastSeen.Format(dateTimeLayout))
	}

	fmt.Fprintf(&b, "Total users: %d", len(users))
	return b.String()
}

func formatSaved(msg *database.Message) string {
	var b strings.Builder
	b.WriteString("✅ *Message saved to the database!*\n\n")
	b.WriteString("📝 *Details:*\n")
	fmt.Fprintf(&b, "• Message ID: `%d`\n", msg.ID)
	fmt.Fprintf(&b, "• Saved at: %s\n", msg.CreatedAt.Format(clockLayout))
	fmt.Fprintf(&b, "• Sender: %s\n", firstNonEmpty(msg.FirstName.String, "user"))
	return b.String()
}

func preview(text string) string {
	if len(text) > previewLength {
		return text[:previewLength] + "..."
	}
	return text
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
