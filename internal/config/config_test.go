package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable NewFromEnv reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_DRIVER", "DATABASE_URL", "NUTRITION_API_URL", "NUTRITION_TIMEOUT",
		"NUTRITION_RPS", "LOOKUP_POLICY", "PORT", "SESSION_SECRET", "SESSION_TTL", "SHOW_SQL",
		"METRICS_RETENTION_DAYS", "LOG_LEVEL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL",
		"TELEGRAM_ALLOWED_USER_IDS", "ADMIN_TELEGRAM_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabaseDriver != "sqlite" {
			t.Errorf("Expected DatabaseDriver 'sqlite', got '%s'", cfg.DatabaseDriver)
		}
		if cfg.DatabaseURL != "data/smoothies.db" {
			t.Errorf("Expected default sqlite path, got '%s'", cfg.DatabaseURL)
		}
		if cfg.NutritionAPIURL != DefaultNutritionURL {
			t.Errorf("Expected NutritionAPIURL '%s', got '%s'", DefaultNutritionURL, cfg.NutritionAPIURL)
		}
		if cfg.NutritionTimeout != 10*time.Second {
			t.Errorf("Expected 10s nutrition timeout, got %v", cfg.NutritionTimeout)
		}
		if cfg.LookupPolicy != "search_on" {
			t.Errorf("Expected LookupPolicy 'search_on', got '%s'", cfg.LookupPolicy)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected Port '8080', got '%s'", cfg.Port)
		}
		if cfg.MetricsRetentionDays != 30 {
			t.Errorf("Expected 30 retention days, got %d", cfg.MetricsRetentionDays)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NUTRITION_API_URL", "https://fruityvice.com/")
		t.Setenv("NUTRITION_TIMEOUT", "3s")
		t.Setenv("NUTRITION_RPS", "2.5")
		t.Setenv("LOOKUP_POLICY", "heuristic")
		t.Setenv("SHOW_SQL", "true")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "11, 22")
		t.Setenv("ADMIN_TELEGRAM_ID", "11")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.NutritionAPIURL != "https://fruityvice.com" {
			t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.NutritionAPIURL)
		}
		if cfg.NutritionTimeout != 3*time.Second || cfg.NutritionRPS != 2.5 {
			t.Errorf("Unexpected nutrition settings: %v / %v", cfg.NutritionTimeout, cfg.NutritionRPS)
		}
		if !cfg.ShowSQL {
			t.Error("Expected ShowSQL to be true")
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 22 {
			t.Errorf("Unexpected allowed ids: %v", cfg.TelegramAllowedUserIDs)
		}
		if !cfg.AllowsTelegramUser(22) || cfg.AllowsTelegramUser(33) {
			t.Error("Allow list not applied")
		}
	})

	errorCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"UnknownDriver", "DATABASE_DRIVER", "mysql", `DATABASE_DRIVER must be sqlite or postgres, got "mysql"`},
		{"UnknownPolicy", "LOOKUP_POLICY", "fuzzy", `LOOKUP_POLICY must be one of basic, search_on, heuristic, got "fuzzy"`},
		{"BadTimeout", "NUTRITION_TIMEOUT", "soon", `NUTRITION_TIMEOUT must be a positive duration, got "soon"`},
		{"NegativeRPS", "NUTRITION_RPS", "-1", `NUTRITION_RPS must be a non-negative number, got "-1"`},
		{"BadBool", "SHOW_SQL", "maybe", `SHOW_SQL must be a boolean, got "maybe"`},
		{"BadUserID", "TELEGRAM_ALLOWED_USER_IDS", "1,abc", `TELEGRAM_ALLOWED_USER_IDS contains an invalid id "abc"`},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := NewFromEnv()
			if err == nil {
				t.Fatalf("Expected an error for %s=%s, got nil", tc.key, tc.value)
			}
			if err.Error() != tc.expected {
				t.Errorf("Expected error '%s', got '%s'", tc.expected, err.Error())
			}
		})
	}

	t.Run("PostgresRequiresURL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_DRIVER", "postgres")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing DATABASE_URL, got nil")
		}
		if err.Error() != "DATABASE_URL environment variable not set" {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}

func TestValidateSurfaces(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateBot(); err == nil || err.Error() != "TELEGRAM_BOT_TOKEN environment variable not set" {
		t.Errorf("Expected missing token error, got %v", err)
	}
	cfg.TelegramBotToken = "token"
	if err := cfg.ValidateBot(); err == nil || err.Error() != "TELEGRAM_WEBHOOK_URL environment variable not set" {
		t.Errorf("Expected missing webhook error, got %v", err)
	}
	cfg.TelegramWebhookURL = "https://example.test/webhook"
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("Expected bot config to validate, got %v", err)
	}

	if err := cfg.ValidateWeb(); err == nil {
		t.Error("Expected missing SESSION_SECRET error")
	}
	cfg.SessionSecret = "s3cret"
	if err := cfg.ValidateWeb(); err != nil {
		t.Errorf("Expected web config to validate, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("MissingFileIsIgnored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	})

	t.Run("LoadsValues", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		os.Unsetenv("SESSION_SECRET")

		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("SESSION_SECRET=from-file\n"), 0600); err != nil {
			t.Fatalf("Failed to write env file: %v", err)
		}
		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := os.Getenv("SESSION_SECRET"); got != "from-file" {
			t.Errorf("Expected SESSION_SECRET 'from-file', got '%s'", got)
		}
	})
}
