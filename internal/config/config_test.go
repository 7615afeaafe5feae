package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(2*1024*1024), cfg.Server.MaxImageSize)
	assert.Equal(t, DBTypeMongo, cfg.Database.Type)
	assert.Equal(t, "gator_overflow", cfg.Database.Name)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("WORKER_POOL_SIZE", "3")
	t.Setenv("DB_TYPE", "MEMORY")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:8080, https://qa.example.com")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address())
	assert.Equal(t, 750*time.Millisecond, cfg.Server.RequestTimeout)
	assert.Equal(t, 600*time.Millisecond, cfg.Server.OperationTimeout())
	assert.Equal(t, 3, cfg.Server.WorkerPoolSize)
	assert.Equal(t, DBTypeMemory, cfg.Database.Type)
	assert.Equal(t, []string{"http://localhost:8080", "https://qa.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigRejectsUnknownDatabase(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unsupported DB_TYPE")
}

func TestLoadConfigRejectsInvalidPort(t *testing.T) {
	t.Setenv("PORT", "0")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "PORT must be positive")
}

func TestOperationTimeoutIsShorterThanRequestTimeout(t *testing.T) {
	for _, requestTimeout := range []time.Duration{10 * time.Millisecond, time.Second, 5 * time.Second, time.Minute} {
		server := &ServerConfig{RequestTimeout: requestTimeout}
		assert.Positive(t, server.OperationTimeout())
		assert.Less(t, server.OperationTimeout(), requestTimeout)
	}
}
