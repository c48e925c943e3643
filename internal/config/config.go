package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v4"
)

// Credential modes.
const (
	ModeAuto           = ""
	ModeServiceAccount = "service_account"
	ModeOAuth          = "oauth"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultMaxResults        = 5
	DefaultSearchLimit       = 50
	DefaultWindowDays        = 3
	DefaultPreviewChars      = 1000
	DefaultCallTimeoutSecond = 5
	DefaultMaxRetries        = 2
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel    string      `yaml:"log_level"`
	LogFormat   string      `yaml:"log_format"`
	Credentials Credentials `yaml:"credentials"`
	Gmail       Gmail       `yaml:"gmail"`
	Search      Search      `yaml:"search"`
}

// Credentials points at the files used to authenticate against Gmail.
// Either a service account key plus the mailbox to impersonate, or an OAuth
// client secret plus the file the user token is persisted in.
type Credentials struct {
	Mode                  string `yaml:"mode"`
	ServiceAccountKeyFile string `yaml:"service_account_key_file"`
	Subject               string `yaml:"subject"`
	ClientSecretFile      string `yaml:"client_secret_file"`
	TokenFile             string `yaml:"token_file"`
}

// Gmail holds transport settings for the Gmail API client.
type Gmail struct {
	CallTimeoutSeconds int    `yaml:"call_timeout_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
	Endpoint           string `yaml:"endpoint"`
}

// Search holds retrieval defaults.
type Search struct {
	DefaultMaxResults int `yaml:"default_max_results"`
	SearchLimit       int `yaml:"search_limit"`
	WindowDays        int `yaml:"window_days"`
	PreviewChars      int `yaml:"preview_chars"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Gmail: Gmail{
			CallTimeoutSeconds: DefaultCallTimeoutSecond,
			MaxRetries:         DefaultMaxRetries,
		},
		Search: Search{
			DefaultMaxResults: DefaultMaxResults,
			SearchLimit:       DefaultSearchLimit,
			WindowDays:        DefaultWindowDays,
			PreviewChars:      DefaultPreviewChars,
		},
	}
}

// Load reads the YAML file at path (if any), applies environment overrides and
// validates the result. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnvOrDefault("BUDGET_AGENT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("BUDGET_AGENT_LOG_FORMAT", c.LogFormat)

	c.Credentials.Mode = getEnvOrDefault("BUDGET_AGENT_CREDENTIALS_MODE", c.Credentials.Mode)
	c.Credentials.ServiceAccountKeyFile = getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.Credentials.ServiceAccountKeyFile)
	c.Credentials.ServiceAccountKeyFile = getEnvOrDefault("BUDGET_AGENT_SERVICE_ACCOUNT_KEY", c.Credentials.ServiceAccountKeyFile)
	c.Credentials.Subject = getEnvOrDefault("BUDGET_AGENT_IMPERSONATE", c.Credentials.Subject)
	c.Credentials.ClientSecretFile = getEnvOrDefault("BUDGET_AGENT_CLIENT_SECRET", c.Credentials.ClientSecretFile)
	c.Credentials.TokenFile = getEnvOrDefault("BUDGET_AGENT_TOKEN_FILE", c.Credentials.TokenFile)

	c.Gmail.CallTimeoutSeconds = getEnvIntOrDefault("BUDGET_AGENT_CALL_TIMEOUT_SECONDS", c.Gmail.CallTimeoutSeconds)
	c.Gmail.MaxRetries = getEnvIntOrDefault("BUDGET_AGENT_MAX_RETRIES", c.Gmail.MaxRetries)
	c.Gmail.Endpoint = getEnvOrDefault("BUDGET_AGENT_GMAIL_ENDPOINT", c.Gmail.Endpoint)

	c.Search.SearchLimit = getEnvIntOrDefault("BUDGET_AGENT_SEARCH_LIMIT", c.Search.SearchLimit)
}

// Validate checks value ranges. Credential files are not opened here; a
// missing file is reported when Gmail is first used.
func (c *Config) Validate() error {
	switch c.Credentials.Mode {
	case ModeAuto, ModeServiceAccount, ModeOAuth:
	default:
		return fmt.Errorf("credentials.mode %q must be one of: service_account, oauth", c.Credentials.Mode)
	}
	if c.Credentials.Mode == ModeServiceAccount && c.Credentials.Subject == "" {
		return fmt.Errorf("credentials.subject is required for service_account mode")
	}
	if c.Gmail.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("gmail.call_timeout_seconds must be positive, got %d", c.Gmail.CallTimeoutSeconds)
	}
	if c.Gmail.MaxRetries < 0 {
		return fmt.Errorf("gmail.max_retries must not be negative, got %d", c.Gmail.MaxRetries)
	}
	if c.Search.DefaultMaxResults <= 0 {
		return fmt.Errorf("search.default_max_results must be positive, got %d", c.Search.DefaultMaxResults)
	}
	if c.Search.SearchLimit <= 0 {
		return fmt.Errorf("search.search_limit must be positive, got %d", c.Search.SearchLimit)
	}
	if c.Search.WindowDays < 0 {
		return fmt.Errorf("search.window_days must not be negative, got %d", c.Search.WindowDays)
	}
	if c.Search.PreviewChars <= 0 {
		return fmt.Errorf("search.preview_chars must be positive, got %d", c.Search.PreviewChars)
	}
	return nil
}

// ResolvedMode returns the credential mode, inferring it from the configured
// files when Mode is empty.
func (c Credentials) ResolvedMode() string {
	if c.Mode != ModeAuto {
		return c.Mode
	}
	if c.ServiceAccountKeyFile != "" && c.Subject != "" {
		return ModeServiceAccount
	}
	return ModeOAuth
}

// CallTimeout returns the per-call Gmail timeout.
func (g Gmail) CallTimeout() time.Duration {
	return time.Duration(g.CallTimeoutSeconds) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
