package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all process-wide settings. Values come from the
// environment; a .env file is loaded first when present.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"todo_user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"todo_pass"`
	DBName     string `env:"DB_NAME" envDefault:"teamtodo"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret string `env:"JWT_SECRET"`

	// Shared secret the provider signs webhook deliveries with. When
	// empty the webhook endpoint fails closed.
	WebhookSigningSecret string `env:"WEBHOOK_SIGNING_SECRET"`

	IdentityAPIURL string `env:"IDENTITY_API_URL" envDefault:"https://api.clerk.com/v1"`
	IdentityAPIKey string `env:"IDENTITY_API_KEY"`

	RedisURL string `env:"REDIS_URL"`
	NatsURL  string `env:"NATS_URL"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
