package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/jastip",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "USD", cfg.DefaultCurrency)
	require.Equal(t, 200, cfg.QuoteCacheSize)
	require.Equal(t, time.Hour, cfg.QuoteCacheTTL)
	require.Equal(t, 800*time.Millisecond, cfg.DebounceWindow)
	require.Equal(t, 10*time.Second, cfg.CalcTimeout)
	require.Equal(t, 2, cfg.ConversionRetryMax)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost:5432/jastip",
		"REDIS_URL":              "redis://localhost:6379/0",
		"PORT":                   "9090",
		"QUOTE_DEFAULT_CURRENCY": "idr",
		"QUOTE_CACHE_SIZE":       "500",
		"QUOTE_DEBOUNCE_WINDOW":  "250ms",
		"CORS_ALLOWED_ORIGINS":   "https://a.example, https://b.example",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "IDR", cfg.DefaultCurrency)
	require.Equal(t, 500, cfg.QuoteCacheSize)
	require.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":          "postgres://localhost:5432/jastip",
		"REDIS_URL":             "redis://localhost:6379/0",
		"QUOTE_CACHE_SIZE":      "not-a-number",
		"QUOTE_DEBOUNCE_WINDOW": "soon",
	})
	require.NoError(t, err)
	require.Equal(t, 200, cfg.QuoteCacheSize)
	require.Equal(t, 800*time.Millisecond, cfg.DebounceWindow)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	require.Error(t, err)
}
