package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8002", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:8000", cfg.Sources.SQL.BaseURL)
	assert.Equal(t, "http://localhost:8001", cfg.Sources.NoSQL.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Sources.SQL.Timeout)
	assert.Equal(t, uint32(10), cfg.Sources.SQL.Breaker.MinRequests)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
  format: console
sources:
  sql:
    base_url: http://sql-api:8000
    timeout: 2s
  nosql:
    base_url: ""
model:
  artifact: redis://cache:6379/0/models/rating
audit:
  rules:
    - name: low_rating
      expr: result.predicted_rating <= 1.5
`)
	t.Setenv("RATINGKIT_PORT", "9100")
	t.Setenv("SQL_API_URL", "http://sql-from-env:8000")
	t.Setenv("RATINGKIT_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "http://sql-from-env:8000", cfg.Sources.SQL.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Sources.SQL.Timeout)
	assert.Equal(t, "", cfg.Sources.NoSQL.BaseURL)
	assert.Equal(t, "redis://cache:6379/0/models/rating", cfg.Model.Artifact)
	require.Len(t, cfg.Audit.Rules, 1)
	assert.Equal(t, "low_rating", cfg.Audit.Rules[0].Name)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7000\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"no sources", "sources:\n  sql:\n    base_url: \"\"\n  nosql:\n    base_url: \"\"\n"},
		{"bad url", "sources:\n  sql:\n    base_url: not a url\n"},
		{"empty artifact", "model:\n  artifact: \"\"\n"},
		{"rule without expr", "audit:\n  rules:\n    - name: r\n"},
		{"rate limit without window", "ratelimit:\n  enabled: true\n  window: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "sources.nosql.base_url", envTransformFunc("NOSQL_API_URL"))
	assert.Equal(t, "logging.level", envTransformFunc("RATINGKIT_LOG_LEVEL"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}
