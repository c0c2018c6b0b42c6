package utils

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration, loaded once from the
// environment with dev-safe defaults.
type Config struct {
	// Remote catalog
	APIBase      string
	PageSize     int
	FetchTimeout time.Duration

	// Export pipeline
	Concurrency  int // worker hint, clamped by the pipeline
	FastMode     bool
	OutputDir    string
	DeliveryWait time.Duration

	// Scope detection
	JWTSecret string
	JWTIssuer string

	// Listeners
	HTTPAddr string
	TCPAddr  string
}

func LoadConfig() Config {
	return Config{
		APIBase:      envStr("MEDIAVAULT_API_BASE", "http://localhost:9000"),
		PageSize:     envInt("MEDIAVAULT_PAGE_SIZE", 32),
		FetchTimeout: envDuration("MEDIAVAULT_FETCH_TIMEOUT", 30*time.Second),
		Concurrency:  envInt("MEDIAVAULT_CONCURRENCY", 4),
		FastMode:     envBool("MEDIAVAULT_FAST_MODE", true),
		OutputDir:    envStr("MEDIAVAULT_OUTPUT_DIR", "exports"),
		DeliveryWait: envDuration("MEDIAVAULT_DELIVERY_WAIT", 20*time.Second),
		JWTSecret:    envStr("MEDIAVAULT_JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:    envStr("MEDIAVAULT_JWT_ISSUER", "mediavault"),
		HTTPAddr:     envStr("MEDIAVAULT_HTTP_ADDR", ":8080"),
		TCPAddr:      envStr("MEDIAVAULT_TCP_ADDR", ":7070"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
