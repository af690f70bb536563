package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("FLOW_FORCE_VARIANT", "")
	t.Setenv("GATEWAY_BASE_URL", "http://localhost:9000/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, "http://localhost:9000", cfg.Gateway.BaseURL)
	assert.Equal(t, 3, cfg.Gateway.CreateRetryAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Redis.IdempotencyTTL())
	assert.Empty(t, cfg.Flow.ForceVariant)
}

func TestLoad_ForceVariant(t *testing.T) {
	t.Setenv("FLOW_FORCE_VARIANT", " b ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "B", cfg.Flow.ForceVariant)

	t.Setenv("FLOW_FORCE_VARIANT", "C")
	_, err = Load()
	assert.Error(t, err)
}

func TestAppConfig_IsProduction(t *testing.T) {
	assert.True(t, AppConfig{Env: "Production"}.IsProduction())
	assert.False(t, AppConfig{Env: "staging"}.IsProduction())
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}
