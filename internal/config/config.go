package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the campus-chat service.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// JWT secret shared with the identity service that issues tokens.
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Optional collaborators. An empty DB_DSN disables message history and
	// notification persistence; an empty REDIS_ADDR keeps routing on the
	// in-process loopback bus (single instance).
	DatabaseDSN string `env:"DB_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`

	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"50"`
}

// Load parses environment variables into Config, reading a local .env file
// first when one exists.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	return cfg, nil
}

// Development reports whether the service runs with development conveniences
// (human-readable console logging).
func (c *Config) Development() bool {
	return c.Environment == "development"
}
