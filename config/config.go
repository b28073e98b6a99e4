package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store backends selectable through STORE_BACKEND
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Database configuration. Unused with the memory backend.
	DatabaseURL string

	// StoreBackend selects the persistence layer: "postgres" or "memory"
	StoreBackend string

	// Ledger configuration
	StartingBalance int64

	// Logging
	LogLevel string

	// Environment is "development" or "production"
	Environment string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StoreBackend:    getEnvWithDefault("STORE_BACKEND", StorePostgres),
		StartingBalance: 0,
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		parsed, err := strconv.ParseInt(balance, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("STARTING_BALANCE must be an integer: %w", err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("STARTING_BALANCE must be non-negative, got %d", parsed)
		}
		cfg.StartingBalance = parsed
	}

	switch cfg.StoreBackend {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required with the postgres backend")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
