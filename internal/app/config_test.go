package app

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "APP_ENV", "APP_ADDR", "STORAGE_DRIVER", "ROLE_CACHE_BACKEND", "ROLE_CACHE_TTL", "ROLE_CACHE_SIZE", "SESSION_COOKIE")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 5*time.Minute, cfg.RoleCacheTTL)
	assert.Equal(t, 10000, cfg.RoleCacheSize)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, CacheMemory, cfg.RoleCacheBackend)
	assert.Equal(t, "odyssey_session", cfg.SessionCookie)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ROLE_CACHE_BACKEND", "redis")
	t.Setenv("ROLE_CACHE_TTL", "30s")
	t.Setenv("DEV_ROLES", "alice:admin|manager,bob:employee")
	t.Setenv("DEV_DEPARTMENTS", "bob:d-1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.RoleCacheTTL)
	assert.Equal(t, map[string][]string{
		"alice": {"admin", "manager"},
		"bob":   {"employee"},
	}, cfg.DevRoleBindings())
	assert.Equal(t, "d-1", cfg.DevDepartments["bob"])
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown driver":  {"STORAGE_DRIVER", "sqlite"},
		"unknown backend": {"ROLE_CACHE_BACKEND", "memcached"},
		"zero ttl":        {"ROLE_CACHE_TTL", "0s"},
		"bad duration":    {"SESSION_TTL", "soon"},
		"bad log format":  {"LOG_FORMAT", "xml"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			require.ErrorIs(t, err, shared.ErrConfiguration)
		})
	}
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("PG_DSN", " ")
	_, err := LoadConfig()
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"msg":"shown"`)
}
