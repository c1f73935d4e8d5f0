package config

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Schedules use the standard 5-field cron syntax.
	DefaultMaintenanceSchedule = "0 4 * * *"
	DefaultStatsReportSchedule = "0 8 * * *"
)

// DefaultMessages holds the default reply texts sent by the bot.
var DefaultMessages = Messages{
	Help: "🆘 Available commands:\n" +
		"/start - register and see your stored identity\n" +
		"/help - this help\n" +
		"/stats - message and user statistics\n" +
		"/mymessages - your last saved messages\n" +
		"/allusers - list all users (admin only)\n\n" +
		"Any plain text message you send is saved to the database.",
	NotAuthorized:    "⛔ This command is available to the administrator only.",
	GeneralError:     "❌ A database error occurred. Please try again later.",
	StatsUnavailable: "📊 Statistics are currently unavailable.",
	NoMessages:       "📭 You have no saved messages yet. Send me any text message and it will appear here!",
	NoUsers:          "👥 No users in the database yet.",
}

// DefaultCommands describes the commands advertised to Telegram clients.
var DefaultCommands = []CommandConfig{
	{Command: "start", Description: "Register and start saving messages"},
	{Command: "help", Description: "Show help"},
	{Command: "stats", Description: "Show bot statistics"},
	{Command: "mymessages", Description: "Show your recent messages"},
	{Command: "allusers", Description: "List all users (admin only)"},
}
