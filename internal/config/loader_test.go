package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when optional variables are missing", func(t *testing.T) {
		unset := []string{
			"KIOSK_HTTP_PORT",
			"KIOSK_CACHE_DSN",
			"KIOSK_SLACK_BOT_TOKEN",
			"KIOSK_SLACK_WEBHOOK_URL",
			"KIOSK_LOCATION",
			"KIOSK_CACHE_RETENTION",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		t.Setenv("KIOSK_STORE_URL", "https://records.example.com")
		t.Setenv("KIOSK_STORE_API_KEY", "service-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if !strings.HasPrefix(cfg.CacheDSN, "file:kiosk-cache.db") {
			t.Fatalf("unexpected default cache DSN: %q", cfg.CacheDSN)
		}
		if cfg.Location != "Reception Desk" {
			t.Fatalf("expected default location, got %q", cfg.Location)
		}
		if cfg.CacheRetention != 24*time.Hour {
			t.Fatalf("expected default retention 24h, got %s", cfg.CacheRetention)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		for _, key := range []string{
			"KIOSK_STORE_URL",
			"KIOSK_STORE_API_KEY",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: KIOSK_STORE_URL, KIOSK_STORE_API_KEY"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rejects a record store URL without a host", func(t *testing.T) {
		t.Setenv("KIOSK_STORE_URL", "not-a-url")
		t.Setenv("KIOSK_STORE_API_KEY", "service-key")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for malformed store URL")
		}
		if !strings.Contains(err.Error(), "KIOSK_STORE_URL") {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		t.Setenv("KIOSK_STORE_URL", "https://records.example.com/")
		t.Setenv("KIOSK_STORE_API_KEY", "service-key")
		t.Setenv("KIOSK_HTTP_PORT", "9090")
		t.Setenv("KIOSK_CACHE_DSN", "file:/tmp/kiosk.db")
		t.Setenv("KIOSK_CACHE_RETENTION", "48h")
		t.Setenv("KIOSK_LOCATION", "Front Lobby")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.CacheDSN != "file:/tmp/kiosk.db" {
			t.Fatalf("unexpected cache DSN: %q", cfg.CacheDSN)
		}
		if cfg.CacheRetention != 48*time.Hour {
			t.Fatalf("expected retention 48h, got %s", cfg.CacheRetention)
		}
		if cfg.Location != "Front Lobby" {
			t.Fatalf("expected location override, got %q", cfg.Location)
		}
		if cfg.RecordStoreURL != "https://records.example.com" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.RecordStoreURL)
		}
	})
}
