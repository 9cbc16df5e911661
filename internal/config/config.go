package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	Port      int
	Database  DatabaseConfig
	JWTSecret string

	// ScannerSecretHash is the bcrypt hash scanner clients must match to
	// obtain a token. Empty disables the token endpoint.
	ScannerSecretHash string

	RedisAddr        string
	QueueConcurrency int

	SweepSchedule string
	MissingAfter  time.Duration
	RequeueAfter  time.Duration
	RequeueBatch  int
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnectionString prefers an explicit DATABASE_URL and otherwise builds a
// DSN from the individual parts.
func (c DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func Load() *Config {
	return &Config{
		Port: envInt("PORT", 8080),
		Database: DatabaseConfig{
			URL:      env("DATABASE_URL", ""),
			Host:     env("DB_HOST", "localhost"),
			Port:     envInt("DB_PORT", 5432),
			User:     env("DB_USER", "stagevault"),
			Password: env("DB_PASSWORD", "stagevault"),
			Name:     env("DB_NAME", "stagevault"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		JWTSecret:         env("JWT_SECRET", "change-me-in-production"),
		ScannerSecretHash: env("SCANNER_SECRET_HASH", ""),
		RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
		QueueConcurrency:  envInt("QUEUE_CONCURRENCY", 4),
		SweepSchedule:     env("SWEEP_SCHEDULE", "*/15 * * * *"),
		MissingAfter:      envDuration("MISSING_AFTER", 48*time.Hour),
		RequeueAfter:      envDuration("REQUEUE_AFTER", 30*time.Minute),
		RequeueBatch:      envInt("REQUEUE_BATCH", 500),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return fallback
}
