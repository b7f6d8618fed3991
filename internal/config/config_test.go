package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"http_port": 8081,
		"log_level": "debug",
		"db_path": "/var/lib/tokenvault/tokens.db",
		"encryption_key": "`+testKey+`",
		"scheduler": {"workers": 2},
		"maintenance": {
			"disable_authorization_pruning": true,
			"minimum_token_lifespan": "72h"
		}
	}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.MetricsPort, "unset fields keep their defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/tokenvault/tokens.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
	assert.Equal(t, 32, cfg.Scheduler.QueueSize)
	assert.True(t, cfg.Maintenance.DisableAuthorizationPruning)
	assert.Equal(t, 72*time.Hour, cfg.Maintenance.MinimumTokenLifespan.Duration)
	assert.Equal(t, 14*24*time.Hour, cfg.Maintenance.MinimumAuthorizationLifespan.Duration)
	assert.Equal(t, 2, cfg.Maintenance.MaximumRefireCount)

	// Test loading non-existent file
	_, err = LoadFromFile("non-existent.json")
	assert.Error(t, err)

	// Test loading invalid JSON
	_, err = LoadFromFile(writeConfig(t, "{invalid json}"))
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"encryption_key": "`+testKey+`"}`)

	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("SCHEDULER_WORKERS", "8")
	t.Setenv("MAINTENANCE_DISABLED", "1")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.True(t, cfg.Maintenance.Disabled)
}

func TestConfig_EnvOverrideErrors(t *testing.T) {
	path := writeConfig(t, `{"encryption_key": "`+testKey+`"}`)

	t.Setenv("METRICS_PORT", "not-a-port")
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestConfig_EncryptionKeyFromEnv(t *testing.T) {
	path := writeConfig(t, `{}`)

	_, err := LoadFromFile(path)
	require.Error(t, err, "the encryption key is required")

	t.Setenv("ENCRYPTION_KEY", testKey)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.EncryptionKey)
}

func TestConfig_Validation(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.EncryptionKey = testKey
		return cfg
	}

	tests := []struct {
		name        string
		modify      func(*Config)
		shouldError bool
	}{
		{"defaults with key", func(*Config) {}, false},
		{"short key", func(c *Config) { c.EncryptionKey = "short" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"port out of range", func(c *Config) { c.HTTPPort = 70000 }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"no workers", func(c *Config) { c.Scheduler.Workers = 0 }, true},
		{"negative refire count", func(c *Config) { c.Maintenance.MaximumRefireCount = -1 }, true},
		{"negative lifespan", func(c *Config) { c.Maintenance.MinimumTokenLifespan = Duration{-time.Hour} }, true},
		{"zero lifespan", func(c *Config) { c.Maintenance.MinimumTokenLifespan = Duration{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"90m"`)))
	assert.Equal(t, 90*time.Minute, d.Duration)

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Duration)

	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1s"`, string(b))
}

func TestConfig_ExampleFile(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	cfg, err := LoadFromFile("../../configs/config.example.json")
	require.NoError(t, err)
	assert.Equal(t, Default().Maintenance, cfg.Maintenance)
	assert.Equal(t, Default().Scheduler, cfg.Scheduler)
}
