package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"tierank/adapters/redis"
	"tierank/leaderboard"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"TIERANK_ENV"`
	Profile     string      `json:"profile" env:"TIERANK_PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Defaults every leaderboard is opened with
	Leaderboard leaderboard.Config `json:"leaderboard"`

	// Event dispatch and writer coordination
	Engine EngineConfig `json:"engine"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Metrics and monitoring
	Metrics MetricsConfig `json:"metrics"`

	// Security configuration
	Security SecurityConfig `json:"security"`

	// Outbound event delivery
	Webhooks WebhooksConfig `json:"webhooks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"TIERANK_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"TIERANK_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"TIERANK_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"TIERANK_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"TIERANK_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"TIERANK_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"TIERANK_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"TIERANK_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"TIERANK_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
}

// EngineConfig holds event dispatch settings
type EngineConfig struct {
	DispatchMode    string `json:"dispatch_mode" env:"TIERANK_ENGINE_DISPATCH_MODE"`
	SerializeWrites bool   `json:"serialize_writes" env:"TIERANK_ENGINE_SERIALIZE_WRITES"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"TIERANK_LOG_LEVEL"`
	Format     string            `json:"format" env:"TIERANK_LOG_FORMAT"`
	Output     string            `json:"output" env:"TIERANK_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"TIERANK_LOG_ATTRIBUTES"`
}

// MetricsConfig holds metrics and monitoring configuration.
// An empty Address serves metrics on the API listener.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" env:"TIERANK_METRICS_ENABLED"`
	Address   string `json:"address" env:"TIERANK_METRICS_ADDR"`
	Path      string `json:"path" env:"TIERANK_METRICS_PATH"`
	Namespace string `json:"namespace" env:"TIERANK_METRICS_NAMESPACE"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"TIERANK_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"TIERANK_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" env:"TIERANK_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" env:"TIERANK_SECURITY_RATE_LIMIT_BURST"`
}

// WebhooksConfig lists endpoints that receive every leaderboard event
type WebhooksConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" env:"TIERANK_WEBHOOKS_ENDPOINTS"`
	Timeout   time.Duration `json:"timeout" env:"TIERANK_WEBHOOKS_TIMEOUT"`
	Secret    string        `json:"secret,omitempty" env:"TIERANK_WEBHOOKS_SECRET"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var configExtensions = []string{".json", ".yaml", ".yml"}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	supported := false
	for _, e := range configExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("config file must have one of the extensions: %s", strings.Join(configExtensions, ", "))
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// Environment variables override file values.
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	cfg := DefaultConfig()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = decodeJSONFile(path, cfg)
	} else {
		err = decodeYAMLFile(path, cfg)
	}
	if err != nil {
		return nil, err
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeJSONFile(path string, cfg *Config) error {
	f, err := os.Open(path) // #nosec G304 - Path validated by caller
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// decodeYAMLFile reads YAML through koanf. Keys follow the json tags and
// durations may be written as "10s".
func decodeYAMLFile(path string, cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
		},
		Leaderboard: leaderboard.DefaultConfig(),
		Engine: EngineConfig{
			DispatchMode: "sync",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "tierank",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
		Webhooks: WebhooksConfig{
			Timeout: 2 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}

	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("engine config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("metrics config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

const redacted = "[REDACTED]"

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = redacted
	}
	if cfg.Webhooks.Secret != "" {
		cfg.Webhooks.Secret = redacted
	}
	if len(cfg.Security.APIKeys) > 0 {
		keys := make([]string, len(cfg.Security.APIKeys))
		for i := range keys {
			keys[i] = redacted
		}
		cfg.Security.APIKeys = keys
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
