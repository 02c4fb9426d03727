package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, "https://api.postalpincode.in", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 5, cfg.Upstream.BreakerThreshold)
	assert.Equal(t, 1024, cfg.Audit.BufferSize)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("UDYAM_ADDR", ":9090")
	t.Setenv("LOCATION_CACHE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PINCODE_API_URL", "http://stub.local/")
	t.Setenv("PINCODE_API_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, "http://stub.local", cfg.Upstream.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Upstream.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
}

func TestFromEnv_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres backend without DATABASE_URL", map[string]string{"LOCATION_CACHE_BACKEND": "postgres"}},
		{"redis backend without REDIS_URL", map[string]string{"LOCATION_CACHE_BACKEND": "redis"}},
		{"unknown backend", map[string]string{"LOCATION_CACHE_BACKEND": "etcd"}},
		{"bad duration", map[string]string{"PINCODE_API_TIMEOUT": "soon"}},
		{"bad int", map[string]string{"AUDIT_BUFFER_SIZE": "many"}},
		{"zero audit buffer", map[string]string{"AUDIT_BUFFER_SIZE": "0"}},
		{"negative audit buffer", map[string]string{"AUDIT_BUFFER_SIZE": "-8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("UDYAM_ADDR=:7000\nAPP_VERSION=2.0.0\n"), 0o600))
	t.Setenv("UDYAM_ADDR", ":6000")
	t.Setenv("APP_VERSION", "")
	os.Unsetenv("APP_VERSION")

	cfg, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("APP_VERSION") })

	assert.Equal(t, ":6000", cfg.Addr)
	assert.Equal(t, "2.0.0", cfg.Version)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
