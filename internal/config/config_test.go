package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "PORT", "AUTH_MODE", "JWT_SECRET", "JWT_TTL", "LOG_LEVEL",
		"DEFAULT_CURRENCY", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "SAR", cfg.DefaultCurrency)
	assert.Equal(t, 10, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5, cfg.DB.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Contains(t, cfg.DatabaseURL, "mixi")
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "DEV")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AuthModeDev, cfg.AuthMode)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "jwt mode without secret",
			env:     map[string]string{"AUTH_MODE": "jwt"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "unknown auth mode",
			env:     map[string]string{"AUTH_MODE": "basic"},
			wantErr: "AUTH_MODE",
		},
		{
			name:    "bad ttl",
			env:     map[string]string{"AUTH_MODE": "dev", "JWT_TTL": "tomorrow"},
			wantErr: "JWT_TTL",
		},
		{
			name:    "bad pool size",
			env:     map[string]string{"AUTH_MODE": "dev", "DB_MAX_IDLE_CONNS": "many"},
			wantErr: "DB_MAX_IDLE_CONNS",
		},
		{
			name:    "negative pool size",
			env:     map[string]string{"AUTH_MODE": "dev", "DB_MAX_OPEN_CONNS": "-1"},
			wantErr: "DB_MAX_OPEN_CONNS",
		},
		{
			name:    "bad currency",
			env:     map[string]string{"AUTH_MODE": "dev", "DEFAULT_CURRENCY": "EURO"},
			wantErr: "DEFAULT_CURRENCY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
