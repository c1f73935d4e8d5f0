// Package config provides configuration loading and validation for the
// chatvault bot. Values come from defaults, an optional config.yaml, and
// BOT_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration indicates missing or invalid required configuration.
// It is fatal at startup and not retryable without operator intervention.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  Messages        `mapstructure:"messages"`
	Commands  []CommandConfig `mapstructure:"commands"`
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	AdminID int64  `mapstructure:"admin_id" validate:"required,gt=0"`
}

// DatabaseConfig holds the store connection settings. The URL is required;
// there is no fallback default at any layer.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SchedulerConfig holds the scheduled task definitions, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Messages holds the configurable reply texts.
type Messages struct {
	Help             string `mapstructure:"help"              validate:"required"`
	NotAuthorized    string `mapstructure:"not_authorized"    validate:"required"`
	GeneralError     string `mapstructure:"general_error"     validate:"required"`
	StatsUnavailable string `mapstructure:"stats_unavailable" validate:"required"`
	NoMessages       string `mapstructure:"no_messages"       validate:"required"`
	NoUsers          string `mapstructure:"no_users"          validate:"required"`
}

// CommandConfig describes one command advertised to Telegram clients.
type CommandConfig struct {
	Command     string `mapstructure:"command"`
	Description string `mapstructure:"description"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at configPath (optional)
// 3. BOT_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Required values have no defaults; bind them explicitly (after the env
	// prefix is set) so AutomaticEnv sees the keys even without a config file.
	for _, key := range []string{"telegram.token", "telegram.admin_id", "database.url"} {
		_ = v.BindEnv(key)
	}

	// The config file is optional; env vars alone are a valid setup.
	// With SetConfigFile a missing file surfaces as a plain fs.PathError.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("scheduler.tasks.db_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.db_maintenance.schedule", DefaultMaintenanceSchedule)
	v.SetDefault("scheduler.tasks.stats_report.enabled", true)
	v.SetDefault("scheduler.tasks.stats_report.schedule", DefaultStatsReportSchedule)

	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.stats_unavailable", DefaultMessages.StatsUnavailable)
	v.SetDefault("messages.no_messages", DefaultMessages.NoMessages)
	v.SetDefault("messages.no_users", DefaultMessages.NoUsers)

	v.SetDefault("commands", DefaultCommands)
}
