package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 3, cfg.ReconMatchWindowDays)
	assert.True(t, cfg.ReconAmountTolerance.IsZero())
	assert.Equal(t, 5*time.Minute, cfg.AccountCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("BASE_CURRENCY", "eur")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BATCH_CONCURRENCY", "0")
	t.Setenv("RECON_AMOUNT_TOLERANCE", "0.05")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 1, cfg.BatchConcurrency)
	assert.Equal(t, "0.05", cfg.ReconAmountTolerance.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := LoadConfig()
	assert.Error(t, err)
}
