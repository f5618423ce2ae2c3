/*
Package config loads service configuration.

PURPOSE:
  Central place for environment-driven configuration. A .env file in
  the working directory is loaded when present; real environment
  variables always win over .env values. Command-line flags in
  cmd/server override both.

VARIABLES:
  PORT            HTTP server port (default 8080)
  DB_PATH         SQLite database path (default dashboard.db)
  CURRENT_PERIOD  Period treated as "now" (default January/2026)
  USER_ID         Audit identity for mutations (default local)
  USER_NAME       Display name for the audit identity
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the service settings.
type Config struct {
	Port          int
	DBPath        string
	CurrentPeriod string
	UserID        string
	UserName      string
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// Missing .env is fine; only a malformed one is an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:          8080,
		DBPath:        "dashboard.db",
		CurrentPeriod: "January/2026",
		UserID:        "local",
		UserName:      "Local User",
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CURRENT_PERIOD"); v != "" {
		cfg.CurrentPeriod = v
	}
	if v := os.Getenv("USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("USER_NAME"); v != "" {
		cfg.UserName = v
	}
	return cfg, nil
}
