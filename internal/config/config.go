// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver       string
	DSN            string
	ServerPort     string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisAddr      string
	AllowedOrigins []string
	LogLevel       string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDriver:   orDefault(getenv("DB_DRIVER"), "postgres"),
		ServerPort: orDefault(getenv("SERVER_PORT"), "8080"),
		JWTSecret:  getenv("JWT_SECRET"),
		RedisAddr:  getenv("REDIS_ADDR"),
		LogLevel:   orDefault(getenv("LOG_LEVEL"), "info"),
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}

	ttl := orDefault(getenv("TOKEN_TTL"), "1h")
	d, err := time.ParseDuration(ttl)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", ttl)
	}
	cfg.TokenTTL = d

	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	switch cfg.DBDriver {
	case "postgres":
		cfg.DSN, err = postgresDSN(getenv)
		if err != nil {
			return nil, err
		}
	case "sqlite3":
		cfg.DSN = orDefault(getenv("DATABASE_DSN"), "file:planner.db?_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

func postgresDSN(getenv func(string) string) (string, error) {
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		return dsn, nil
	}
	requiredEnvVars := []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"POSTGRES_HOST", "POSTGRES_PORT",
	}
	for _, env := range requiredEnvVars {
		if getenv(env) == "" {
			return "", fmt.Errorf("environment variable %s must be set", env)
		}
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getenv("POSTGRES_HOST"), getenv("POSTGRES_USER"), getenv("POSTGRES_PASSWORD"),
		getenv("POSTGRES_DB"), getenv("POSTGRES_PORT")), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
