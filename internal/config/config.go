// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults used when the environment leaves a value unset.
const (
	DefaultDatabasePath = "./data/relay.db"
	DefaultLogLevel     = "info"
	DefaultFetchDelay   = 3 * time.Minute
	DefaultCycleDelay   = 10 * time.Minute
	DefaultUpstreamURL  = "https://twitter.com/"
	DefaultMediaURL     = "https://pbs.twimg.com/"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	// FetchDelay separates two feed fetches on the same mirror.
	FetchDelay time.Duration
	// CycleDelay separates two passes over a mirror's feeds.
	CycleDelay time.Duration

	UpstreamURL string
	MediaURL    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	fetchDelay, err := durationOrDefault("FETCH_DELAY", DefaultFetchDelay)
	if err != nil {
		return nil, err
	}
	cycleDelay, err := durationOrDefault("CYCLE_DELAY", DefaultCycleDelay)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     envOrDefault("DATABASE_PATH", DefaultDatabasePath),
		LogLevel:         envOrDefault("LOG_LEVEL", DefaultLogLevel),
		AllowedUsers:     allowedUsers,
		FetchDelay:       fetchDelay,
		CycleDelay:       cycleDelay,
		UpstreamURL:      envOrDefault("UPSTREAM_URL", DefaultUpstreamURL),
		MediaURL:         envOrDefault("MEDIA_URL", DefaultMediaURL),
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
