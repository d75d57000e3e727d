package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultNutritionURL = "https://my.smoothiefroot.com"
	FruityviceURL       = "https://fruityvice.com"
	defaultSQLitePath   = "data/smoothies.db"
)

// Config holds the configuration for the application.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	NutritionAPIURL  string
	NutritionTimeout time.Duration
	NutritionRPS     float64
	LookupPolicy     string

	Port          string
	SessionSecret string
	SessionTTL    time.Duration
	ShowSQL       bool

	MetricsRetentionDays int
	LogLevel             string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// LoadDotEnv loads a .env secrets file into the process environment.
// A missing file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	driver := getenvDefault("DATABASE_DRIVER", "sqlite")
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		if driver == "postgres" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
		dbURL = defaultSQLitePath
	}

	policy := getenvDefault("LOOKUP_POLICY", "search_on")
	switch policy {
	case "basic", "search_on", "heuristic":
	default:
		return nil, fmt.Errorf("LOOKUP_POLICY must be one of basic, search_on, heuristic, got %q", policy)
	}

	timeout, err := parseDuration("NUTRITION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	var rps float64
	if v := os.Getenv("NUTRITION_RPS"); v != "" {
		rps, err = strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("NUTRITION_RPS must be a non-negative number, got %q", v)
		}
	}

	ttl, err := parseDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	showSQL := false
	if v := os.Getenv("SHOW_SQL"); v != "" {
		showSQL, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SHOW_SQL must be a boolean, got %q", v)
		}
	}

	retention := 30
	if v := os.Getenv("METRICS_RETENTION_DAYS"); v != "" {
		retention, err = strconv.Atoi(v)
		if err != nil || retention < 1 {
			return nil, fmt.Errorf("METRICS_RETENTION_DAYS must be a positive integer, got %q", v)
		}
	}

	// Telegram Config (Optional for CLI, required for Bot)
	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}
	var adminID int64
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		adminID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be an integer, got %q", v)
		}
	}

	return &Config{
		DatabaseDriver:         driver,
		DatabaseURL:            dbURL,
		NutritionAPIURL:        strings.TrimRight(getenvDefault("NUTRITION_API_URL", DefaultNutritionURL), "/"),
		NutritionTimeout:       timeout,
		NutritionRPS:           rps,
		LookupPolicy:           policy,
		Port:                   getenvDefault("PORT", "8080"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		SessionTTL:             ttl,
		ShowSQL:                showSQL,
		MetricsRetentionDays:   retention,
		LogLevel:               getenvDefault("LOG_LEVEL", "info"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

// ValidateBot checks the settings only the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// ValidateWeb checks the settings only the web form needs.
func (c *Config) ValidateWeb() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET environment variable not set")
	}
	return nil
}

// AllowsTelegramUser reports whether id may use the bot. An empty list allows everyone.
func (c *Config) AllowsTelegramUser(id int64) bool {
	if len(c.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains an invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
