package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "craftlist.db"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		// stdout carries the MCP protocol
		cfg.Logging.Output = "stderr"
	}

	// Engine defaults
	if cfg.Engine.RecipeCacheSize == 0 {
		cfg.Engine.RecipeCacheSize = 4096
	}

	// Pricing defaults
	if cfg.Pricing.TTL == 0 {
		cfg.Pricing.TTL = 10 * time.Minute
	}
	if cfg.Pricing.RefreshWorkers == 0 {
		cfg.Pricing.RefreshWorkers = 2
	}
	if cfg.Pricing.QueueSize == 0 {
		cfg.Pricing.QueueSize = 256
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "localhost:9464"
	}
}

// registerDefaults makes every key known to v so environment variables can
// override keys that no config file mentions.
func registerDefaults(v *viper.Viper) {
	var d Config
	SetDefaults(&d)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.file_path", d.Logging.FilePath)

	v.SetDefault("engine.cascade", d.Engine.Cascade)
	v.SetDefault("engine.source_preference", d.Engine.SourcePreference)
	v.SetDefault("engine.recipe_cache_size", d.Engine.RecipeCacheSize)

	v.SetDefault("pricing.ttl", d.Pricing.TTL)
	v.SetDefault("pricing.refresh_workers", d.Pricing.RefreshWorkers)
	v.SetDefault("pricing.queue_size", d.Pricing.QueueSize)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
}
