package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("config-absent")
	require.NoError(t, err)

	assert.Equal(t, "gomarket-sync", cfg.AppName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 14*24*time.Hour, cfg.Sync.OrderWindow)
	assert.Equal(t, "redis", cfg.Sync.LockBackend)
	assert.Equal(t, []string{"products", "orders", "claims"}, cfg.Sync.Resources)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Cache.ReasonsTTL)
	assert.False(t, cfg.Keycloak.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SYNC_PAGE_SIZE", "200")
	t.Setenv("SYNC_RUN_TIMEOUT", "90s")
	t.Setenv("SYNC_RESOURCES", "orders, claims")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KEYCLOAK_ENABLED", "true")
	t.Setenv("KEYCLOAK_SERVER_URL", "https://sso.example.com")

	cfg, err := Load("config-absent")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 200, cfg.Sync.PageSize)
	assert.Equal(t, 90*time.Second, cfg.Sync.RunTimeout)
	assert.Equal(t, []string{"orders", "claims"}, cfg.Sync.Resources)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Keycloak.Enabled)
	assert.Equal(t, "https://sso.example.com", cfg.Keycloak.GetKeycloakConfig().ServerURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
postgres:
  host: db.internal
  dbname: sync
sync:
  lockBackend: memory
  scheduleInterval: 15m
redis:
  enabled: false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "sync", cfg.DSN().DBName)
	assert.Equal(t, "memory", cfg.Sync.LockBackend)
	assert.Equal(t, 15*time.Minute, cfg.Sync.ScheduleInterval)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown lock backend", map[string]string{"SYNC_LOCK_BACKEND": "etcd"}},
		{"redis lock without redis", map[string]string{"REDIS_ENABLED": "false"}},
		{"unknown resource", map[string]string{"SYNC_RESOURCES": "products,invoices"}},
		{"redis lock without run timeout", map[string]string{"SYNC_RUN_TIMEOUT": "0s"}},
		{"redis lock shorter than run", map[string]string{"SYNC_RUN_TIMEOUT": "30m", "SYNC_LOCK_TTL": "30m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("config-absent")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MemoryLockAllowsUnboundedRun(t *testing.T) {
	t.Setenv("SYNC_LOCK_BACKEND", "memory")
	t.Setenv("SYNC_RUN_TIMEOUT", "0s")

	cfg, err := Load("config-absent")
	require.NoError(t, err)
	assert.Zero(t, cfg.Sync.RunTimeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
