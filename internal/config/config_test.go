package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 10, cfg.Scanner.MaxConcurrency)
	assert.Equal(t, uint64(10_000), cfg.Scanner.FeeReserveLamports)
	assert.Equal(t, 30*time.Second, cfg.Price.CacheTTL)
	assert.Equal(t, "EUR", cfg.Price.FiatCurrency)
	assert.Equal(t, "games.yaml", cfg.GamesFile)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SCANNER_INTERVAL", "45s")
	t.Setenv("SCANNER_MIN_TRIGGER_LAMPORTS", "5000000")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SCANNER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, uint64(5_000_000), cfg.Scanner.MinTriggerLamports)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Scanner.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		t.Setenv("PRICE_CACHE_TTL", "half a minute")
		_, err := Load()
		assert.ErrorContains(t, err, "PRICE_CACHE_TTL")
	})

	t.Run("concurrency", func(t *testing.T) {
		t.Setenv("SCANNER_MAX_CONCURRENCY", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
