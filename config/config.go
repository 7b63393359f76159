package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Rules     RulesConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds sqlite database paths
type DatabaseConfig struct {
	RulesPath   string `mapstructure:"rules_path"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// RulesConfig holds rule snapshot configuration
type RulesConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	GroupPenaltyCap float64       `mapstructure:"group_penalty_cap"`
}

// PipelineConfig holds evaluation pipeline configuration
type PipelineConfig struct {
	Workers            int           `mapstructure:"workers"`
	CandidateLimit     int           `mapstructure:"candidate_limit"`
	DefaultTopN        int           `mapstructure:"default_top_n"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	EnableDebugLogging bool          `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
	Burst int `mapstructure:"burst"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dermaguide/")

	// Environment variable settings
	v.SetEnvPrefix("DERMAGUIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.rules_path", "dermaguide_rules.db")
	v.SetDefault("database.catalog_path", "dermaguide_catalog.db")

	// Rules defaults
	v.SetDefault("rules.refresh_interval", "5m")
	v.SetDefault("rules.group_penalty_cap", 50.0)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("pipeline.candidate_limit", 200)
	v.SetDefault("pipeline.default_top_n", 5)
	v.SetDefault("pipeline.request_timeout", "3s")
	v.SetDefault("pipeline.cache_ttl", "60s")
	v.SetDefault("pipeline.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.RulesPath == "" {
		return fmt.Errorf("rules database path is required (set DERMAGUIDE_DATABASE_RULES_PATH)")
	}

	if config.Database.CatalogPath == "" {
		return fmt.Errorf("catalog database path is required (set DERMAGUIDE_DATABASE_CATALOG_PATH)")
	}

	if config.Rules.GroupPenaltyCap <= 0 {
		return fmt.Errorf("group penalty cap must be positive, got: %.1f", config.Rules.GroupPenaltyCap)
	}

	if config.Pipeline.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got: %s", config.Pipeline.RequestTimeout)
	}

	return nil
}
