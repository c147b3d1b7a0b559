package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the kiosk service.
type Config struct {
	HTTPPort        int
	CacheDSN        string
	RecordStoreURL  string
	RecordStoreKey  string
	SlackBotToken   string
	SlackWebhookURL string
	Location        string
	CacheRetention  time.Duration
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required values and malformed
// entries are reported together so a misconfigured device fails fast with a
// complete picture.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		CacheDSN:       "file:kiosk-cache.db?_pragma=busy_timeout(5000)",
		Location:       "Reception Desk",
		CacheRetention: 24 * time.Hour,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("KIOSK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "KIOSK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("KIOSK_CACHE_DSN")); dsn != "" {
		cfg.CacheDSN = dsn
	}

	if storeURL := strings.TrimSpace(os.Getenv("KIOSK_STORE_URL")); storeURL == "" {
		missing = append(missing, "KIOSK_STORE_URL")
	} else if parsed, err := url.Parse(storeURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		invalid = append(invalid, "KIOSK_STORE_URL")
	} else {
		cfg.RecordStoreURL = strings.TrimRight(storeURL, "/")
	}

	if key := strings.TrimSpace(os.Getenv("KIOSK_STORE_API_KEY")); key == "" {
		missing = append(missing, "KIOSK_STORE_API_KEY")
	} else {
		cfg.RecordStoreKey = key
	}

	cfg.SlackBotToken = strings.TrimSpace(os.Getenv("KIOSK_SLACK_BOT_TOKEN"))
	cfg.SlackWebhookURL = strings.TrimSpace(os.Getenv("KIOSK_SLACK_WEBHOOK_URL"))

	if location := strings.TrimSpace(os.Getenv("KIOSK_LOCATION")); location != "" {
		cfg.Location = location
	}

	if retentionValue := strings.TrimSpace(os.Getenv("KIOSK_CACHE_RETENTION")); retentionValue != "" {
		retention, err := time.ParseDuration(retentionValue)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "KIOSK_CACHE_RETENTION")
		} else {
			cfg.CacheRetention = retention
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
