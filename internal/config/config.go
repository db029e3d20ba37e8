package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/logger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	Tax      TaxConfig
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level zerolog.Level
}

// TaxConfig holds cost-basis computation settings
type TaxConfig struct {
	Methods           []model.Method // methods computed when a command names none
	QuoteCurrency     string
	Workers           int    // concurrent partition tasks; 0 means GOMAXPROCS
	RecomputeSchedule string // standard 5-field cron expression
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	level, err := logger.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	methods, err := model.ParseMethods(getEnv("TAX_DEFAULT_METHOD", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_DEFAULT_METHOD: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("TAX_WORKERS", "0"))
	if err != nil || workers < 0 {
		return nil, fmt.Errorf("invalid TAX_WORKERS %q: must be a non-negative integer", os.Getenv("TAX_WORKERS"))
	}

	schedule := getEnv("TAX_RECOMPUTE_SCHEDULE", "0 3 * * *")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid TAX_RECOMPUTE_SCHEDULE %q: %w", schedule, err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/crypto_tax.db"),
		},
		Log: LogConfig{
			Level: level,
		},
		Tax: TaxConfig{
			Methods:           methods,
			QuoteCurrency:     strings.ToUpper(getEnv("TAX_QUOTE_CURRENCY", "USD")),
			Workers:           workers,
			RecomputeSchedule: schedule,
		},
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
