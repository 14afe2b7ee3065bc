package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Placeholder values shipped in example configs. Starting with either
	// of them is a configuration error.
	placeholderToken   = "YOUR_BOT_TOKEN"
	placeholderAdminID = 123456789

	defaultMetricsPort          = "9090"
	defaultBroadcastConcurrency = 4
	defaultRequestTimeout       = 30 * time.Second
)

type Config struct {
	BotToken    string
	AdminChatID int64
	AppEnv      string

	MetricsPort          string
	BroadcastConcurrency int64
	RequestTimeout       time.Duration
}

// Load reads configuration from the environment, with .env as a fallback.
// It returns an error for missing or placeholder credentials; the caller
// must not start serving in that case.
func Load() (*Config, error) {
	// Best effort: a missing .env just means plain env vars are used.
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:             strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		AppEnv:               strings.ToLower(getEnv("APP_ENV", "dev")),
		MetricsPort:          getEnv("METRICS_PORT", defaultMetricsPort),
		BroadcastConcurrency: defaultBroadcastConcurrency,
		RequestTimeout:       defaultRequestTimeout,
	}

	if cfg.BotToken == "" || cfg.BotToken == placeholderToken {
		return nil, fmt.Errorf("config: TELEGRAM_BOT_TOKEN is missing or still the placeholder")
	}

	adminRaw := strings.TrimSpace(os.Getenv("ADMIN_CHAT_ID"))
	if adminRaw == "" {
		return nil, fmt.Errorf("config: ADMIN_CHAT_ID is missing")
	}
	adminID, err := strconv.ParseInt(adminRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_CHAT_ID must be a numeric Telegram user ID: %w", err)
	}
	if adminID == 0 || adminID == placeholderAdminID {
		return nil, fmt.Errorf("config: ADMIN_CHAT_ID is still the placeholder")
	}
	cfg.AdminChatID = adminID

	if raw := os.Getenv("BROADCAST_CONCURRENCY"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("config: BROADCAST_CONCURRENCY must be a positive integer")
		}
		cfg.BroadcastConcurrency = n
	}

	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: REQUEST_TIMEOUT must be a positive duration")
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

// IsDev reports whether the bot runs with the development logger.
func (c *Config) IsDev() bool {
	return c.AppEnv != "prod" && c.AppEnv != "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
