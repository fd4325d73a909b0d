package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 300*time.Second, cfg.QuoteCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.QuoteFailureTTL)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 15, cfg.FetchWorkers)
	assert.Equal(t, "10000", cfg.SeedBalance.String())
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL_TEST", "postgres://test")
	t.Setenv("QUOTE_CACHE_TTL", "1m")
	t.Setenv("QUOTE_FAILURE_TTL", "0s")
	t.Setenv("FETCH_WORKERS", "4")
	t.Setenv("SEED_BALANCE", "2500.50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres://test", cfg.DatabaseURL)
	assert.Equal(t, time.Minute, cfg.QuoteCacheTTL)
	assert.Equal(t, time.Duration(0), cfg.QuoteFailureTTL)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, "2500.5", cfg.SeedBalance.String())
}

func TestLoadRejectsBadSeed(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("SEED_BALANCE", "lots")

	_, err := Load()
	assert.Error(t, err)
}
