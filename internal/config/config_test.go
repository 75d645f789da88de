package config

import (
	"testing"
	"time"

	"wilayasapi/internal/logging"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "ALLOWED_ORIGINS", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "CURRENCY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit: %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.Currency != "DA" {
		t.Fatalf("unexpected currency %q", cfg.Currency)
	}
}

func TestLoadLogDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "APP_ENV"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Log != logging.DefaultConfig() {
		t.Fatalf("expected default log config, got %+v", cfg.Log)
	}

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "development")
	cfg = Load()
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || !cfg.Log.Development {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("BODY_LIMIT_BYTES", "not-a-number")

	cfg := Load()
	if cfg.Port != "3001" {
		t.Fatalf("expected port 3001, got %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("unexpected rate limit: %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.BodyLimitBytes != 10<<20 {
		t.Fatalf("expected default body limit, got %d", cfg.BodyLimitBytes)
	}
}
