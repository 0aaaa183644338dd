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
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "https://slack.com/api", cfg.API.URL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Minute, cfg.Retry.MaxBackoff)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  timeout: 10s
retry:
  max_attempts: 5
log:
  format: json
`), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched values keep their defaults.
	assert.Equal(t, "https://slack.com/api", cfg.API.URL)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	t.Setenv("SLACK_COURIER_LOG__LEVEL", "debug")
	t.Setenv("SLACK_COURIER_RETRY__MAX_ATTEMPTS", "7")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"zero attempts",
			"retry:\n  max_attempts: 0\n",
			"max_attempts",
		},
		{
			"sub-unit multiplier",
			"retry:\n  backoff_multiplier: 0.5\n",
			"backoff_multiplier",
		},
		{
			"unknown log format",
			"log:\n  format: xml\n",
			"log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnvToKey(t *testing.T) {
	assert.Equal(t, "api.timeout", envToKey("SLACK_COURIER_API__TIMEOUT"))
	assert.Equal(t, "retry.max_attempts", envToKey("SLACK_COURIER_RETRY__MAX_ATTEMPTS"))
	assert.Equal(t, "log.level", envToKey("SLACK_COURIER_LOG__LEVEL"))
}
