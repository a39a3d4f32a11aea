// Package config loads server configuration from defaults, an optional
// config file, a .env file and CRAFTLIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "CRAFTLIST"

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	// Path to the database file, or ":memory:"
	Path string `mapstructure:"path" validate:"required"`
}

// EngineConfig holds craft list resolution defaults
type EngineConfig struct {
	// Cascade makes craftable intermediates count toward their parent's capacity
	Cascade bool `mapstructure:"cascade"`

	// SourcePreference ranks market sources for cost calculations
	SourcePreference []string `mapstructure:"source_preference"`

	// RecipeCacheSize bounds the production method cache (items)
	RecipeCacheSize int `mapstructure:"recipe_cache_size" validate:"min=1"`
}

// PricingConfig holds price cache configuration
type PricingConfig struct {
	// TTL is how long loaded prices stay cached
	TTL time.Duration `mapstructure:"ttl" validate:"min=1s"`

	// RefreshWorkers is the number of background price loaders
	RefreshWorkers int `mapstructure:"refresh_workers" validate:"min=1,max=64"`

	// QueueSize bounds the background load queue
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`
}

// MetricsConfig holds Prometheus exposure configuration
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active
	Enabled bool `mapstructure:"enabled"`

	// Address the /metrics listener binds to
	Address string `mapstructure:"address" validate:"omitempty,hostname_port"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	// Set config file details
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/craftlist")
	}

	// Enable environment variable reading
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	registerDefaults(v)

	// Read config file (optional - don't error if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Create config struct and unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any values a file left empty
	SetDefaults(&cfg)

	// Validate configuration
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
