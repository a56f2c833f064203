package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Quote engine tunables.
	DefaultCurrency    string
	QuoteCacheSize     int
	QuoteCacheTTL      time.Duration
	DebounceWindow     time.Duration
	CalcTimeout        time.Duration
	ConversionRetryMax int
	RetryBase          time.Duration

	// External rates provider.
	RatesBaseURL         string
	RatesAPIKey          string
	RatesRefreshInterval time.Duration
	RatesSnapshotTTL     time.Duration

	// Country settings cache.
	CountryCacheTTL time.Duration

	// Calculate endpoint rate limiting, requests per minute per client IP.
	RateLimitPerMinute int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		DefaultCurrency:    valueOrDefault(strings.ToUpper(k.String("QUOTE_DEFAULT_CURRENCY")), "USD"),
		QuoteCacheSize:     parseInt(k.String("QUOTE_CACHE_SIZE"), 200),
		QuoteCacheTTL:      parseDuration(k.String("QUOTE_CACHE_TTL"), "1h"),
		DebounceWindow:     parseDuration(k.String("QUOTE_DEBOUNCE_WINDOW"), "800ms"),
		CalcTimeout:        parseDuration(k.String("QUOTE_CALC_TIMEOUT"), "10s"),
		ConversionRetryMax: parseInt(k.String("QUOTE_CONVERSION_RETRY_MAX"), 2),
		RetryBase:          parseDuration(k.String("QUOTE_RETRY_BASE"), "50ms"),

		RatesBaseURL:         k.String("RATES_BASE_URL"),
		RatesAPIKey:          k.String("RATES_API_KEY"),
		RatesRefreshInterval: parseDuration(k.String("RATES_REFRESH_INTERVAL"), "1h"),
		RatesSnapshotTTL:     parseDuration(k.String("RATES_SNAPSHOT_TTL"), "24h"),

		CountryCacheTTL: parseDuration(k.String("COUNTRY_CACHE_TTL"), "15m"),

		RateLimitPerMinute: parseInt(k.String("QUOTE_RATE_LIMIT_PER_MINUTE"), 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
