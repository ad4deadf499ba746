package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/storage"
)

// Config holds all configuration values for the tracker
type Config struct {
	// Discord, optional
	DiscordToken         string
	RemoveCommandsOnExit bool

	// Database
	DatabaseDriver storage.Driver
	DatabasePath   string
	DatabaseURL    string

	// Rating site
	RatingsURL    string
	SearchURL     string
	FetchTimeout  time.Duration
	FetchInterval time.Duration

	// JSON API, empty disables it
	HTTPAddr string

	DefaultHistoryMonths int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:         os.Getenv("DISCORD_BOT_TOKEN"),
		DatabaseDriver:       storage.Driver(getEnvOrDefault("DATABASE_DRIVER", string(storage.DriverSQLite))),
		DatabasePath:         getEnvOrDefault("DATABASE_PATH", "./data/fide.db"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RatingsURL:           getEnvOrDefault("FIDE_RATINGS_URL", fide.DefaultRatingsURL),
		SearchURL:            getEnvOrDefault("FIDE_SEARCH_URL", fide.DefaultSearchURL),
		HTTPAddr:             os.Getenv("HTTP_ADDR"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}
	if _, set := os.LookupEnv("HTTP_ADDR"); !set {
		cfg.HTTPAddr = ":8080"
	}

	timeout, err := getIntOrDefault("FETCH_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout = time.Duration(timeout) * time.Second

	interval, err := getIntOrDefault("FETCH_INTERVAL_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.FetchInterval = time.Duration(interval) * time.Millisecond

	cfg.RemoveCommandsOnExit, err = getBoolOrDefault("DISCORD_REMOVE_COMMANDS", false)
	if err != nil {
		return nil, err
	}

	cfg.DefaultHistoryMonths, err = getIntOrDefault("DEFAULT_HISTORY_MONTHS", 12)
	if err != nil {
		return nil, err
	}

	// Validate
	switch cfg.DatabaseDriver {
	case storage.DriverSQLite:
	case storage.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER: %q", cfg.DatabaseDriver)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if cfg.DefaultHistoryMonths < 1 {
		return nil, fmt.Errorf("DEFAULT_HISTORY_MONTHS must be at least 1")
	}

	return cfg, nil
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DatabaseDriver == storage.DriverPostgres {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
