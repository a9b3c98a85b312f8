// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr          string        `envconfig:"ADDR" default:":8080"`
	AllowedOrigin string        `envconfig:"ALLOWED_ORIGIN" default:"*"`

	// DatabaseURL empty means the in-memory store, for dev and tests.
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	EnsureSchema bool   `envconfig:"ENSURE_SCHEMA" default:"true"`

	// RedisAddr empty disables the analytics cache.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	AuthSecret string        `envconfig:"AUTH_SECRET"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	SummaryTTL time.Duration `envconfig:"SUMMARY_TTL" default:"60s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("load config: TOKEN_TTL must be positive")
	}
	return cfg, nil
}
