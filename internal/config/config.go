// Package config loads Warbler's settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// DefaultSecretKey is only acceptable outside production.
const DefaultSecretKey = "it's a secret"

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"5000"`
	DatabaseURL string `env:"DATABASE_URL" default:"sqlite3:///tmp/warbler.db"`
	SecretKey   string `env:"SECRET_KEY" default:"it's a secret"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"console"`

	// PerPage caps the messages shown on timelines and profiles.
	PerPage int `env:"PER_PAGE" default:"100"`

	// AuthRateLimit is the per-client rate of login and signup attempts per
	// second; AuthRateBurst is the bucket size.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" default:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" default:"10"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Load reads the environment. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if cfg.IsProduction() && cfg.SecretKey == DefaultSecretKey {
		return errors.New("SECRET_KEY must be changed from the default in production")
	}
	if cfg.PerPage <= 0 {
		return fmt.Errorf("PER_PAGE must be positive, got %d", cfg.PerPage)
	}
	if cfg.AuthRateLimit <= 0 || cfg.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	return nil
}
