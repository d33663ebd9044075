package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierank/core"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Leaderboard.PageSize)
	assert.Equal(t, core.Descending, cfg.Leaderboard.Order)
	assert.Equal(t, "sync", cfg.Engine.DispatchMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TIERANK_SERVER_ADDR", ":7070")
	t.Setenv("TIERANK_LEADERBOARD_PAGE_SIZE", "10")
	t.Setenv("TIERANK_LEADERBOARD_ORDER", "asc")
	t.Setenv("TIERANK_REDIS_DB", "3")
	t.Setenv("TIERANK_ENGINE_SERIALIZE_WRITES", "true")
	t.Setenv("TIERANK_WEBHOOKS_ENDPOINTS", "http://a.example/hook, https://b.example/hook")
	t.Setenv("TIERANK_WEBHOOKS_TIMEOUT", "750ms")
	t.Setenv("TIERANK_LOG_ATTRIBUTES", "service=tierank,region=eu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 10, cfg.Leaderboard.PageSize)
	assert.Equal(t, core.Ascending, cfg.Leaderboard.Order)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.True(t, cfg.Engine.SerializeWrites)
	assert.Equal(t, []string{"http://a.example/hook", "https://b.example/hook"}, cfg.Webhooks.Endpoints)
	assert.Equal(t, 750*time.Millisecond, cfg.Webhooks.Timeout)
	assert.Equal(t, map[string]string{"service": "tierank", "region": "eu"}, cfg.Logging.Attributes)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TIERANK_LEADERBOARD_PAGE_SIZE", "many")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TIERANK_LEADERBOARD_PAGE_SIZE", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size must be positive")
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		},
		"leaderboard": {
			"page_size": 5
		}
	}`)

	// Load config from file
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, 5, cfg.Leaderboard.PageSize)
	// untouched sections keep their defaults
	assert.Equal(t, "ties", cfg.Leaderboard.TiesNamespace)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
environment: staging
server:
  address: ":8181"
  read_timeout: 3s
storage:
  adapter: redis
  redis:
    addr: "redis:6379"
    pool_size: 20
leaderboard:
  order: asc
  page_size: 50
engine:
  dispatch_mode: async
webhooks:
  endpoints:
    - https://hooks.example/rank
  timeout: 1s
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, cfg.Environment)
	assert.Equal(t, ":8181", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "redis", cfg.Storage.Adapter)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 20, cfg.Storage.Redis.PoolSize)
	assert.Equal(t, core.Ascending, cfg.Leaderboard.Order)
	assert.Equal(t, 50, cfg.Leaderboard.PageSize)
	assert.Equal(t, "async", cfg.Engine.DispatchMode)
	assert.Equal(t, []string{"https://hooks.example/rank"}, cfg.Webhooks.Endpoints)
	assert.Equal(t, time.Second, cfg.Webhooks.Timeout)
}

func TestLoadFromFile_EnvWins(t *testing.T) {
	path := writeTemp(t, "config.yml", "server:\n  address: \":8181\"\n")
	t.Setenv("TIERANK_SERVER_ADDR", ":9999")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Address)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	_, err := LoadFromFile(writeTemp(t, "broken.json", `{"server": `))
	assert.Error(t, err)

	_, err = LoadFromFile(writeTemp(t, "bad.yaml", "engine:\n  dispatch_mode: eventually\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "invalid environment",
			mutate:      func(c *Config) { c.Environment = "" },
			expectError: "environment cannot be empty",
		},
		{
			name:        "invalid server timeout",
			mutate:      func(c *Config) { c.Server.ReadTimeout = 0 },
			expectError: "read_timeout must be positive",
		},
		{
			name:        "unknown storage adapter",
			mutate:      func(c *Config) { c.Storage.Adapter = "sql" },
			expectError: "adapter must be one of",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Storage.Adapter = "redis"
				c.Storage.Redis.Addr = ""
			},
			expectError: "addr cannot be empty",
		},
		{
			name:        "invalid sort order",
			mutate:      func(c *Config) { c.Leaderboard.Order = "sideways" },
			expectError: "order must be one of",
		},
		{
			name: "shared namespaces",
			mutate: func(c *Config) {
				c.Leaderboard.MemberDataNamespace = c.Leaderboard.TiesNamespace
			},
			expectError: "must differ",
		},
		{
			name:        "unknown dispatch mode",
			mutate:      func(c *Config) { c.Engine.DispatchMode = "later" },
			expectError: "unknown dispatch mode",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "loud" },
			expectError: "level must be one of",
		},
		{
			name: "metrics path",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Path = "metrics"
			},
			expectError: "path must start with /",
		},
		{
			name: "rate limit without budget",
			mutate: func(c *Config) {
				c.Security.EnableRateLimit = true
				c.Security.RateLimit.RequestsPerMinute = 0
			},
			expectError: "requests_per_minute must be positive",
		},
		{
			name:        "relative webhook",
			mutate:      func(c *Config) { c.Webhooks.Endpoints = []string{"/hook"} },
			expectError: "absolute http(s) URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		name         string
		profileName  string
		expectConfig bool
		environment  Environment
	}{
		{"development", "development", true, EnvDevelopment},
		{"testing", "testing", true, EnvTesting},
		{"staging", "staging", true, EnvStaging},
		{"production", "production", true, EnvProduction},
		{"unknown", "unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadProfile(tt.profileName)
			if tt.expectConfig {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				assert.Equal(t, tt.environment, cfg.Environment)
				assert.Equal(t, tt.profileName, cfg.Profile)
			} else {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			}
		})
	}

	prod, err := LoadProfile("production")
	require.NoError(t, err)
	assert.Equal(t, "redis", prod.Storage.Adapter)
	assert.True(t, prod.Engine.SerializeWrites)
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Redis.Password = "hunter2"
	cfg.Webhooks.Secret = "s3cret"
	cfg.Security.APIKeys = []string{"key-one", "key-two"}

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "key-one")
	assert.Contains(t, out, redacted)
	// the receiver is not modified
	assert.Equal(t, "key-one", cfg.Security.APIKeys[0])
}

func TestValidateConfigPath(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	yamlPath := filepath.Join(dir, "config.yaml")
	txtPath := filepath.Join(dir, "config.txt")
	for _, p := range []string{jsonPath, yamlPath, txtPath} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
	}

	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"valid json file", jsonPath, false},
		{"valid yaml file", yamlPath, false},
		{"empty path", "", true},
		{"path traversal", "../../../etc/passwd", true},
		{"non-config file", txtPath, true},
		{"nonexistent file", filepath.Join(dir, "nonexistent.json"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
