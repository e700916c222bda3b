// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Environment string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are believed. Empty means the peer address is the client.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	SecretKey           string
	AccessTokenTTL      time.Duration
	ConfirmationCodeTTL time.Duration
}

type MailConfig struct {
	Backend       string
	Host          string
	Port          string
	Username      string
	Password      string
	From          string
	RetryInterval time.Duration
	MaxRetries    int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads the configuration. Malformed numbers or durations and a missing
// SECRET_KEY are errors; everything else falls back to a default.
func Load() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return n
	}
	float := func(key string, def float64) float64 {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return f
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:    duration("HTTP_READ_TIMEOUT", "15s"),
			WriteTimeout:   duration("HTTP_WRITE_TIMEOUT", "15s"),
			TrustedProxies: list("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "postgres"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "program"),
			Password:        getEnv("DB_PASSWORD", "test"),
			Name:            getEnv("DB_NAME", "yamdb"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("SQLITE_PATH", "yamdb.sqlite3"),
			MaxOpenConns:    integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    integer("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: duration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Auth: AuthConfig{
			SecretKey:           os.Getenv("SECRET_KEY"),
			AccessTokenTTL:      duration("ACCESS_TOKEN_TTL", "24h"),
			ConfirmationCodeTTL: duration("CONFIRMATION_CODE_TTL", "72h"),
		},
		Mail: MailConfig{
			Backend:       getEnv("MAIL_BACKEND", "log"),
			Host:          getEnv("SMTP_HOST", "localhost"),
			Port:          getEnv("SMTP_PORT", "25"),
			Username:      os.Getenv("SMTP_USERNAME"),
			Password:      os.Getenv("SMTP_PASSWORD"),
			From:          getEnv("ADMIN_EMAIL", "admin@yamdb.local"),
			RetryInterval: duration("MAIL_RETRY_INTERVAL", "30s"),
			MaxRetries:    integer("MAIL_MAX_RETRIES", 5),
		},
		RateLimit: RateLimitConfig{
			RPS:   float("AUTH_RATE_LIMIT_RPS", 1),
			Burst: integer("AUTH_RATE_LIMIT_BURST", 5),
		},
	}

	if cfg.Auth.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// list splits a comma-separated variable, dropping blank entries.
func list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
