package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// clearEnv makes sure variables from the host do not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_ADDRESS", "ENVIRONMENT", "STORE_BACKEND", "TABLE_NAME",
		"DYNAMODB_TABLE", "KV_NAMESPACE", "LOG_LEVEL", "MIGRATE_ON_REQUEST",
		"IS_LAMBDA", "AWS_LAMBDA_FUNCTION_NAME", "MAX_BODY_BYTES",
		"CORS_ALLOWED_ORIGINS", "CIRCUIT_BREAKER_FAILURE_THRESHOLD",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "note:", cfg.LegacyKeyPrefix)
	assert.True(t, cfg.MigrateOnRequest)
	assert.Equal(t, int64(350*1024), cfg.MaxBodyBytes)
	assert.False(t, cfg.IsLambda)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	// Arrange
	clearEnv(t)
	path := writeFile(t, t.TempDir(), `
environment: staging
store_backend: dynamodb
dynamodb_table: notes-from-file
log_level: debug
migrate_on_request: false
circuit_breaker:
  failure_threshold: 0.5
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TABLE_NAME", "notes-from-env")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, StoreDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "notes-from-env", cfg.DynamoDBTable)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.MigrateOnRequest)
	assert.Equal(t, 0.5, cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 60, cfg.CircuitBreaker.TimeoutSeconds)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_NonDevelopmentDefaultsToDynamoDB(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, StoreDynamoDB, cfg.StoreBackend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "redis"}},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "memory in production", env: map[string]string{"ENVIRONMENT": "production", "STORE_BACKEND": "memory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()

			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestWatcher_ReloadAppliesReloadableFields(t *testing.T) {
	// Arrange
	initial := defaults()
	initial.StoreBackend = StoreMemory
	w, err := NewWatcher(initial, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	next := defaults()
	next.StoreBackend = StoreDynamoDB
	next.LogLevel = "debug"
	next.MigrateOnRequest = false
	w.load = func() (*Config, error) { return next, nil }

	var seen *Config
	w.OnChange(func(c *Config) { seen = c })

	// Act
	w.Reload()

	// Assert
	require.NotNil(t, seen)
	assert.Equal(t, "debug", w.Current().LogLevel)
	assert.False(t, w.Current().MigrateOnRequest)
	assert.Equal(t, StoreMemory, w.Current().StoreBackend, "non-reloadable fields keep their startup value")
	assert.Same(t, seen, w.Current())
}

func TestWatcher_ReloadWithoutChangesDoesNotNotify(t *testing.T) {
	w, err := NewWatcher(defaults(), zap.NewNop())
	require.NoError(t, err)
	w.load = func() (*Config, error) { return defaults(), nil }

	called := false
	w.OnChange(func(*Config) { called = true })
	w.Reload()

	assert.False(t, called)
}

func TestWatcher_PicksUpFileChanges(t *testing.T) {
	// Arrange
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "log_level: info\n")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	var notified atomic.Bool
	w.OnChange(func(*Config) { notified.Store(true) })

	// Act
	writeFile(t, dir, "log_level: debug\n")

	// Assert
	require.Eventually(t, notified.Load, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "debug", w.Current().LogLevel)
}
