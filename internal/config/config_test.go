package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultMaxResults, cfg.Search.DefaultMaxResults)
	assert.Equal(t, DefaultSearchLimit, cfg.Search.SearchLimit)
	assert.Equal(t, DefaultWindowDays, cfg.Search.WindowDays)
	assert.Equal(t, DefaultPreviewChars, cfg.Search.PreviewChars)
	assert.Equal(t, 5*time.Second, cfg.Gmail.CallTimeout())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
credentials:
  mode: service_account
  service_account_key_file: /tmp/sa.json
  subject: me@example.com
gmail:
  call_timeout_seconds: 10
  max_retries: 0
search:
  window_days: 0
  search_limit: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ModeServiceAccount, cfg.Credentials.ResolvedMode())
	assert.Equal(t, "me@example.com", cfg.Credentials.Subject)
	assert.Equal(t, 10*time.Second, cfg.Gmail.CallTimeout())
	assert.Equal(t, 0, cfg.Gmail.MaxRetries)
	assert.Equal(t, 0, cfg.Search.WindowDays)
	assert.Equal(t, 20, cfg.Search.SearchLimit)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultPreviewChars, cfg.Search.PreviewChars)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BUDGET_AGENT_LOG_LEVEL", "warn")
	t.Setenv("BUDGET_AGENT_TOKEN_FILE", "/tmp/token.json")
	t.Setenv("BUDGET_AGENT_SEARCH_LIMIT", "7")
	t.Setenv("BUDGET_AGENT_MAX_RETRIES", "not-a-number")

	path := writeConfig(t, "log_level: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/token.json", cfg.Credentials.TokenFile)
	assert.Equal(t, 7, cfg.Search.SearchLimit)
	assert.Equal(t, DefaultMaxRetries, cfg.Gmail.MaxRetries)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad yaml", "log_level: [", "parse config"},
		{"bad mode", "credentials:\n  mode: magic\n", "credentials.mode"},
		{"missing subject", "credentials:\n  mode: service_account\n", "credentials.subject"},
		{"zero timeout", "gmail:\n  call_timeout_seconds: 0\n", "call_timeout_seconds"},
		{"negative window", "search:\n  window_days: -1\n", "window_days"},
		{"negative retries", "gmail:\n  max_retries: -2\n", "max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestResolvedMode(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  string
	}{
		{"explicit oauth", Credentials{Mode: ModeOAuth, ServiceAccountKeyFile: "k", Subject: "s"}, ModeOAuth},
		{"inferred service account", Credentials{ServiceAccountKeyFile: "k", Subject: "s"}, ModeServiceAccount},
		{"key without subject", Credentials{ServiceAccountKeyFile: "k"}, ModeOAuth},
		{"nothing", Credentials{}, ModeOAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.ResolvedMode())
		})
	}
}
