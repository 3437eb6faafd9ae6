// Package config loads process configuration from the environment, in the
// envOrDefault style shared by both the Receiver and the Issuer binaries.
package config

import (
	"os"
	"strconv"
	"time"
)

// ReceiverConfig configures the payment-charges API process.
type ReceiverConfig struct {
	Port           string
	DatabaseDSN    string
	RedisAddr      string
	WebhookSecret  string
	ExternalAPIKey string
	DefaultTTL     time.Duration
}

// LoadReceiver reads the Receiver's configuration from the environment.
func LoadReceiver() ReceiverConfig {
	return ReceiverConfig{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseDSN:    envOrDefault("DATABASE_DSN", "postgres://postgres@localhost:5432/pix_charges?sslmode=disable"),
		RedisAddr:      envOrDefault("REDIS_ADDR", "localhost:6379"),
		WebhookSecret:  envOrDefault("WEBHOOK_SECRET", ""),
		ExternalAPIKey: envOrDefault("EXTERNAL_API_KEY", ""),
		DefaultTTL:     parseDurationSeconds(envOrDefault("CHARGE_TTL_SECONDS", "1800")),
	}
}

// IssuerConfig configures the fake-bank/webhook-dispatcher process.
type IssuerConfig struct {
	Port               string
	WebhookSecret      string
	DLQPath            string
	MaxRetries         int
	InitialDelay       time.Duration
	BackoffMultiplier  float64
	MaxDelay           time.Duration
	Timeout            time.Duration
	DispatchMode       string
	DispatchRatePerSec float64
}

// LoadIssuer reads the Issuer's configuration from the environment.
func LoadIssuer() IssuerConfig {
	return IssuerConfig{
		Port:               envOrDefault("PORT", "8081"),
		WebhookSecret:      envOrDefault("WEBHOOK_SECRET", ""),
		DLQPath:            envOrDefault("DLQ_PATH", "dlq.jsonl"),
		MaxRetries:         parseIntOrDefault("MAX_RETRIES", 5),
		InitialDelay:       parseDurationSeconds(envOrDefault("INITIAL_DELAY_SECONDS", "1")),
		BackoffMultiplier:  parseFloatOrDefault("BACKOFF_MULTIPLIER", 2.0),
		MaxDelay:           parseDurationSeconds(envOrDefault("MAX_DELAY_SECONDS", "30")),
		Timeout:            parseDurationSeconds(envOrDefault("TIMEOUT_SECONDS", "5")),
		DispatchMode:       envOrDefault("DISPATCH_MODE", "sync"),
		DispatchRatePerSec: parseFloatOrDefault("DISPATCH_RATE_PER_SEC", 10.0),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationSeconds(s string) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}

func parseIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
