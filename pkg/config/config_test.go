package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bridgeEnvVars = []string{
	"APP_ENV", "LOG_LEVEL",
	"SNAPYR_API_KEY", "SNAPYR_ENVIRONMENT", "SNAPYR_SIMULATOR",
	"SNAPYR_EVENT_BUFFER", "SNAPYR_COMMAND_QUEUE",
	"SNAPYR_BREAKER_ENABLED", "SNAPYR_BREAKER_THRESHOLD", "SNAPYR_BREAKER_TIMEOUT",
	"EVENT_SINK", "RABBITMQ_URL", "REDIS_URL", "SNAPYR_EVENT_TOPIC",
	"JOURNAL_DRIVER", "SQLITE_PATH", "DATABASE_URL", "JOURNAL_RETENTION_DAYS",
}

// clearEnv blanks every bridge variable for the duration of the test.
// Empty values fall back to defaults in getEnv.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range bridgeEnvVars {
		t.Setenv(v, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.Environment)
	assert.True(t, cfg.Simulator)

	assert.Equal(t, 64, cfg.EventBuffer)
	assert.Equal(t, 128, cfg.CommandQueue)
	assert.True(t, cfg.BreakerEnabled)
	assert.Equal(t, 5, cfg.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)

	assert.Equal(t, EventSinkInProcess, cfg.EventSink)
	assert.Equal(t, "snapyr.events", cfg.EventTopic)

	assert.Equal(t, JournalDriverSQLite, cfg.JournalDriver)
	assert.Contains(t, cfg.SQLitePath, "journal.db")
	assert.Equal(t, 14, cfg.JournalRetentionDays)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SNAPYR_API_KEY", "key-123")
	t.Setenv("SNAPYR_ENVIRONMENT", "dev")
	t.Setenv("SNAPYR_SIMULATOR", "false")
	t.Setenv("SNAPYR_EVENT_BUFFER", "8")
	t.Setenv("SNAPYR_BREAKER_ENABLED", "false")
	t.Setenv("SNAPYR_BREAKER_TIMEOUT", "5s")
	t.Setenv("EVENT_SINK", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("JOURNAL_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/snapyr")
	t.Setenv("JOURNAL_RETENTION_DAYS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "key-123", cfg.APIKey)
	assert.Equal(t, "dev", cfg.Environment)
	assert.False(t, cfg.Simulator)
	assert.Equal(t, 8, cfg.EventBuffer)
	assert.False(t, cfg.BreakerEnabled)
	assert.Equal(t, 5*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, EventSinkRedis, cfg.EventSink)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, JournalDriverPostgres, cfg.JournalDriver)
	assert.Equal(t, 3, cfg.JournalRetentionDays)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPYR_EVENT_BUFFER", "lots")
	t.Setenv("SNAPYR_BREAKER_TIMEOUT", "soon")
	t.Setenv("SNAPYR_BREAKER_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.EventBuffer)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.True(t, cfg.BreakerEnabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EventSink:     EventSinkInProcess,
			JournalDriver: JournalDriverNone,
			EventBuffer:   1,
			CommandQueue:  1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown sink", func(c *Config) { c.EventSink = "kafka" }, "EVENT_SINK"},
		{"unknown driver", func(c *Config) { c.JournalDriver = "mysql" }, "JOURNAL_DRIVER"},
		{"postgres without url", func(c *Config) { c.JournalDriver = JournalDriverPostgres }, "DATABASE_URL"},
		{"negative buffer", func(c *Config) { c.EventBuffer = -1 }, "SNAPYR_EVENT_BUFFER"},
		{"zero buffer", func(c *Config) { c.EventBuffer = 0 }, "SNAPYR_EVENT_BUFFER"},
		{"zero queue", func(c *Config) { c.CommandQueue = 0 }, "SNAPYR_COMMAND_QUEUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsUnknownSink(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENT_SINK", "kafka")

	_, err := Load()
	assert.Error(t, err)
}
