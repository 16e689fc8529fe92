// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimezone is the timezone used for the balance day boundary and the
// daily auto-reset when TIMEZONE is not set.
const DefaultTimezone = "Europe/Kyiv"

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	GeminiAPIKey     string
	LogLevel         string
	Timezone         string

	// AdminUserIDs are the Telegram users allowed to talk to the admin bot.
	AdminUserIDs []int64

	// Userbot (MTProto) credentials. The passive listener is disabled when
	// AppID or AppHash is missing.
	AppID       int
	AppHash     string
	SessionFile string

	// TopUpChatID is the group where bank top-up notifications arrive.
	TopUpChatID int64
	// ChecksChatID is the group where receipt photos arrive.
	ChecksChatID int64
	// AlertChatIDs are the chats that receive emergency broadcasts.
	AlertChatIDs []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		AppHash:          os.Getenv("APP_HASH"),
		SessionFile:      os.Getenv("SESSION_FILE"),
	}

	if appIDStr := os.Getenv("APP_ID"); appIDStr != "" {
		if id, err := strconv.Atoi(appIDStr); err == nil {
			cfg.AppID = id
		}
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = "payments-userbot.session"
	}

	cfg.Timezone = DefaultTimezone
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.Timezone = tz
		}
	}

	cfg.AdminUserIDs = parseIDList(os.Getenv("ADMIN_USER_IDS"))
	cfg.AlertChatIDs = parseIDList(os.Getenv("ALERT_CHAT_IDS"))
	cfg.TopUpChatID = parseID(os.Getenv("TOP_UP_CHAT_ID"))
	cfg.ChecksChatID = parseID(os.Getenv("CHECKS_CHAT_ID"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.AdminUserIDs) == 0 {
		errs = append(errs, "at least one admin user (ADMIN_USER_IDS) is required")
	}

	if len(c.AlertChatIDs) == 0 {
		errs = append(errs, "at least one alert chat (ALERT_CHAT_IDS) is required")
	}

	if c.UserbotEnabled() {
		if c.TopUpChatID == 0 {
			errs = append(errs, "TOP_UP_CHAT_ID is required when the userbot is configured")
		}
		if c.ChecksChatID == 0 {
			errs = append(errs, "CHECKS_CHAT_ID is required when the userbot is configured")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// UserbotEnabled reports whether MTProto credentials were provided.
func (c *Config) UserbotEnabled() bool {
	return c.AppID != 0 && c.AppHash != ""
}

// IsAdmin checks if a Telegram user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminUserIDs, userID)
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for idStr := range strings.SplitSeq(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
