package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_FORMAT", "pretty")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "erpsol_session", cfg.SessionCookie)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.True(t, cfg.AuditQueueEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("AUDIT_QUEUE_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.AuditQueueEnabled)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"log format":  {"LOG_FORMAT", "xml"},
		"log level":   {"LOG_LEVEL", "loud"},
		"rate limit":  {"RATE_LIMIT_PER_MINUTE", "0"},
		"concurrency": {"WORKER_CONCURRENCY", "-1"},
		"timeout":     {"APP_READ_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", "json")
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("company_id", "C1"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"erpsolutions"`)
	assert.Contains(t, out, `"env":"staging"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestLoggerDefaultsToText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(nil, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "env=development")
}
