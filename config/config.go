// Package config loads runtime configuration from the environment,
// with a .env file honored in development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App    AppConfig
	Store  StoreConfig
	Logger LoggerConfig
	Engine EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Host string
	Port string
}

// StoreConfig holds the SQLite database location.
type StoreConfig struct {
	Path string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// EngineConfig holds lifecycle policy switches.
type EngineConfig struct {
	// DebitGate selects the flag gating the decision-time debit:
	// "balance-based" (default) or "requires-approval" (legacy).
	DebitGate string

	// SeedDefaults installs the default leave-type catalogue on start.
	SeedDefaults bool
}

// Load reads configuration from environment variables, applying
// defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Host: getEnv("APP_HOST", "0.0.0.0"),
			Port: getEnv("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Path: getEnv("SQLITE_PATH", "./data/leave.db"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			DebitGate:    getEnv("ENGINE_DEBIT_GATE", "balance-based"),
			SeedDefaults: getEnvAsBool("ENGINE_SEED_DEFAULTS", true),
		},
	}

	switch cfg.Engine.DebitGate {
	case "balance-based", "requires-approval":
	default:
		return nil, fmt.Errorf("invalid ENGINE_DEBIT_GATE %q", cfg.Engine.DebitGate)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
