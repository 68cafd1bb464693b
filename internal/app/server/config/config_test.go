package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_URI", "postgres://localhost/vistoria")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, 50, cfg.Sync.MaxBatch)
	assert.Equal(t, 10*time.Second, cfg.Sync.StatusCacheTTL)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_URI", "postgres://db/vistoria")
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("SYNC_WORKERS", "8")
	t.Setenv("STATUS_CACHE_TTL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example, https://admin.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, 8, cfg.Sync.Workers)
	assert.Equal(t, 30*time.Second, cfg.Sync.StatusCacheTTL)
	assert.Equal(t, []string{"https://portal.example", "https://admin.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database", env: map[string]string{"DATABASE_URI": ""}},
		{name: "zero workers", env: map[string]string{"DATABASE_URI": "postgres://x", "SYNC_WORKERS": "0"}},
		{name: "zero batch", env: map[string]string{"DATABASE_URI": "postgres://x", "SYNC_MAX_BATCH": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
