package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadReceiver_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("DATABASE_DSN")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("CHARGE_TTL_SECONDS")

	cfg := LoadReceiver()

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseDSN != "postgres://postgres@localhost:5432/pix_charges?sslmode=disable" {
		t.Errorf("unexpected DSN: %s", cfg.DatabaseDSN)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected redis addr: %s", cfg.RedisAddr)
	}
	if cfg.DefaultTTL != 1800*time.Second {
		t.Errorf("expected 1800s TTL, got %v", cfg.DefaultTTL)
	}
}

func TestLoadReceiver_CustomEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("WEBHOOK_SECRET", "shh")
	os.Setenv("CHARGE_TTL_SECONDS", "60")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("WEBHOOK_SECRET")
		os.Unsetenv("CHARGE_TTL_SECONDS")
	}()

	cfg := LoadReceiver()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.WebhookSecret != "shh" {
		t.Errorf("unexpected secret: %s", cfg.WebhookSecret)
	}
	if cfg.DefaultTTL != 60*time.Second {
		t.Errorf("expected 60s TTL, got %v", cfg.DefaultTTL)
	}
}

func TestLoadIssuer_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("MAX_RETRIES")
	os.Unsetenv("BACKOFF_MULTIPLIER")
	os.Unsetenv("DISPATCH_MODE")

	cfg := LoadIssuer()

	if cfg.Port != "8081" {
		t.Errorf("expected port 8081, got %s", cfg.Port)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffMultiplier != 2.0 {
		t.Errorf("expected multiplier 2.0, got %v", cfg.BackoffMultiplier)
	}
	if cfg.InitialDelay != 1*time.Second {
		t.Errorf("expected 1s initial delay, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("expected 30s max delay, got %v", cfg.MaxDelay)
	}
	if cfg.DispatchMode != "sync" {
		t.Errorf("expected sync dispatch mode, got %s", cfg.DispatchMode)
	}
}

func TestLoadIssuer_CustomEnv(t *testing.T) {
	os.Setenv("MAX_RETRIES", "10")
	os.Setenv("DISPATCH_MODE", "outbox")
	os.Setenv("DISPATCH_RATE_PER_SEC", "25.5")
	defer func() {
		os.Unsetenv("MAX_RETRIES")
		os.Unsetenv("DISPATCH_MODE")
		os.Unsetenv("DISPATCH_RATE_PER_SEC")
	}()

	cfg := LoadIssuer()

	if cfg.MaxRetries != 10 {
		t.Errorf("expected 10 retries, got %d", cfg.MaxRetries)
	}
	if cfg.DispatchMode != "outbox" {
		t.Errorf("expected outbox dispatch mode, got %s", cfg.DispatchMode)
	}
	if cfg.DispatchRatePerSec != 25.5 {
		t.Errorf("expected rate 25.5, got %v", cfg.DispatchRatePerSec)
	}
}

func TestParseIntOrDefault_Invalid(t *testing.T) {
	os.Setenv("TEST_BAD_INT", "not-a-number")
	defer os.Unsetenv("TEST_BAD_INT")

	if v := parseIntOrDefault("TEST_BAD_INT", 7); v != 7 {
		t.Errorf("expected fallback 7, got %d", v)
	}
}

func TestParseFloatOrDefault_Invalid(t *testing.T) {
	os.Setenv("TEST_BAD_FLOAT", "not-a-number")
	defer os.Unsetenv("TEST_BAD_FLOAT")

	if v := parseFloatOrDefault("TEST_BAD_FLOAT", 1.5); v != 1.5 {
		t.Errorf("expected fallback 1.5, got %v", v)
	}
}

func TestEnvOrDefault(t *testing.T) {
	os.Unsetenv("TEST_KEY_NONEXISTENT")
	v := envOrDefault("TEST_KEY_NONEXISTENT", "fallback")
	if v != "fallback" {
		t.Errorf("expected fallback, got %s", v)
	}

	os.Setenv("TEST_KEY_EXISTS", "custom")
	defer os.Unsetenv("TEST_KEY_EXISTS")
	v = envOrDefault("TEST_KEY_EXISTS", "fallback")
	if v != "custom" {
		t.Errorf("expected custom, got %s", v)
	}
}
