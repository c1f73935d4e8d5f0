package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chatvault/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("BOT_TELEGRAM_ADMIN_ID", "42")
	t.Setenv("BOT_DATABASE_URL", "postgres://bot@localhost:5432/chatvault")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "123456:test-token" {
		t.Errorf("unexpected token: %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminID != 42 {
		t.Errorf("unexpected admin id: %d", cfg.Telegram.AdminID)
	}
	if cfg.Database.URL != "postgres://bot@localhost:5432/chatvault" {
		t.Errorf("unexpected database url: %q", cfg.Database.URL)
	}

	// Defaults fill everything not provided.
	if cfg.Log.Level != config.DefaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.Log.Level)
	}
	if cfg.Messages.GeneralError == "" {
		t.Error("expected default general error message")
	}
	if len(cfg.Commands) == 0 {
		t.Error("expected default command list")
	}
	if _, ok := cfg.Scheduler.Tasks["db_maintenance"]; !ok {
		t.Error("expected default db_maintenance task")
	}
	if _, ok := cfg.Scheduler.Tasks["stats_report"]; !ok {
		t.Error("expected default stats_report task")
	}
}

func TestLoadMissingRequiredValues(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database url",
			env: map[string]string{
				"BOT_TELEGRAM_TOKEN":    "123456:test-token",
				"BOT_TELEGRAM_ADMIN_ID": "42",
			},
		},
		{
			name: "missing telegram token",
			env: map[string]string{
				"BOT_TELEGRAM_ADMIN_ID": "42",
				"BOT_DATABASE_URL":      "postgres://bot@localhost:5432/chatvault",
			},
		},
		{
			name: "missing admin id",
			env: map[string]string{
				"BOT_TELEGRAM_TOKEN": "123456:test-token",
				"BOT_DATABASE_URL":   "postgres://bot@localhost:5432/chatvault",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := config.Load("nonexistent.yaml")
			if err == nil {
				t.Fatal("expected Load to fail")
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_LOG_LEVEL", "verbose")

	_, err := config.Load("nonexistent.yaml")
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for invalid log level, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	setRequiredEnv(t)

	content := []byte(`
log:
  level: debug
  json: false
messages:
  no_users: "nobody here"
scheduler:
  tasks:
    db_maintenance:
      enabled: false
      schedule: "0 3 * * *"
`)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
	if cfg.Log.JSON {
		t.Error("expected json logging disabled")
	}
	if cfg.Messages.NoUsers != "nobody here" {
		t.Errorf("file value not applied: %q", cfg.Messages.NoUsers)
	}
	if cfg.Messages.Help == "" {
		t.Error("expected default help message to survive partial file")
	}

	task := cfg.Scheduler.Tasks["db_maintenance"]
	if task.Enabled {
		t.Error("expected db_maintenance to be disabled by file")
	}
	if task.Schedule != "0 3 * * *" {
		t.Errorf("unexpected schedule: %q", task.Schedule)
	}
}
