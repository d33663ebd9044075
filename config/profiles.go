package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the built-in configuration for a named deployment
// environment, with environment variables applied on top.
func LoadProfile(name string) (*Config, error) {
	build, ok := profiles[Environment(name)]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	cfg := DefaultConfig()
	build(cfg)
	cfg.Profile = name

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var profiles = map[Environment]func(*Config){
	EnvDevelopment: func(c *Config) {
		c.Environment = EnvDevelopment
		c.Logging.Level = "debug"
		c.Logging.Format = "text"
	},
	EnvTesting: func(c *Config) {
		c.Environment = EnvTesting
		c.Logging.Level = "warn"
		c.Server.ShutdownTimeout = 5 * time.Second
	},
	EnvStaging: func(c *Config) {
		c.Environment = EnvStaging
		c.Storage.Adapter = "redis"
		c.Engine.DispatchMode = "async"
		c.Metrics.Enabled = true
		c.Security.EnableRateLimit = true
	},
	EnvProduction: func(c *Config) {
		c.Environment = EnvProduction
		c.Storage.Adapter = "redis"
		c.Storage.Redis.PoolSize = 50
		c.Storage.Redis.MinIdleConns = 10
		c.Engine.DispatchMode = "async"
		c.Engine.SerializeWrites = true
		c.Logging.Level = "warn"
		c.Metrics.Enabled = true
		c.Security.EnableRateLimit = true
		c.Security.RateLimit = RateLimitConfig{RequestsPerMinute: 600, BurstSize: 50}
	},
}
