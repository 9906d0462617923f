package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken        string
	DatabaseDriver       string
	DatabaseURL          string
	LogLevel             string
	LogFormat            string
	PrometheusPort       string
	Port                 string
	Location             *time.Location
	SimulatedDevice      bool
	ReminderPollInterval time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		DatabaseDriver: getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		Port:           getEnvOrDefault("PORT", "8080"),
	}

	var result *multierror.Error

	// Required environment variables
	if cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN"); cfg.TelegramToken == "" {
		result = multierror.Append(result, fmt.Errorf("TELEGRAM_TOKEN environment variable is required"))
	}

	switch cfg.DatabaseDriver {
	case "sqlite":
		cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", "data/shoplist.db")
	case "postgres":
		if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("DATABASE_URL environment variable is required for postgres"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", cfg.DatabaseDriver))
	}

	loc, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "Local"))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid TIMEZONE: %w", err))
	}
	cfg.Location = loc

	simulated, err := strconv.ParseBool(getEnvOrDefault("NOTIFY_SIMULATED", "false"))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid NOTIFY_SIMULATED: %w", err))
	}
	cfg.SimulatedDevice = simulated

	interval, err := time.ParseDuration(getEnvOrDefault("REMINDER_POLL_INTERVAL", "30s"))
	if err == nil && interval <= 0 {
		err = fmt.Errorf("must be positive")
	}
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid REMINDER_POLL_INTERVAL: %w", err))
	}
	cfg.ReminderPollInterval = interval

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
