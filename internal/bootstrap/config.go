// Package bootstrap wires configuration, infrastructure, and services into a
// running darkroom instance.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/glasskite/darkroom/config"
)

// InitLogger initializes the structured logger. Development mode gets a
// human-readable text handler, everything else JSON.
func InitLogger(isDev bool) *slog.Logger {
	var handler slog.Handler
	if isDev {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects configurations that must never reach production.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if !cfg.IsDev && cfg.Dispatch.Mode == "simulator" {
		return errors.New("dispatch simulator is only allowed in development mode")
	}
	if !cfg.IsDev && cfg.Callback.Secret == "default-internal-secret" {
		return errors.New("INTERNAL_CALLBACK_SECRET must be set outside development")
	}
	switch cfg.Dispatch.Mode {
	case "http", "simulator":
	default:
		return fmt.Errorf("unknown dispatch mode %q", cfg.Dispatch.Mode)
	}
	return nil
}
