package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "DATABASE_URL", "DB_HOST", "JWT_TTL_HOURS", "ALERTS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.AlertsEnabled)
	assert.Contains(t, cfg.DatabaseURL, "@localhost:")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cars")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("ALERTS_ENABLED", "true")
	t.Setenv("STORE_DRIVER", "memory")

	cfg := Load()

	assert.Equal(t, "postgres://u:p@db:5432/cars", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, "memory", cfg.StoreDriver)
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 5, getEnvInt("SOME_INT", 5))
	t.Setenv("SOME_INT", "-3")
	assert.Equal(t, 5, getEnvInt("SOME_INT", 5))
}
