package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Search   SearchConfig   `mapstructure:"search"`
	Health   HealthConfig   `mapstructure:"health"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Debrid   DebridConfig   `mapstructure:"debrid"`
	Indexer  IndexerConfig  `mapstructure:"indexer"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SearchConfig holds query optimizer configuration.
type SearchConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries  int           `mapstructure:"cache_max_entries"`
	DebounceDelay    time.Duration `mapstructure:"debounce_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	PrefetchEnabled  bool          `mapstructure:"prefetch_enabled"`
	PrefetchMinChars int           `mapstructure:"prefetch_min_chars"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// HealthConfig holds health evaluation configuration.
type HealthConfig struct {
	CacheSize    int           `mapstructure:"cache_size"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	RefreshAfter time.Duration `mapstructure:"refresh_after"`
}

// EngineConfig holds batch evaluation configuration.
type EngineConfig struct {
	ChunkSize          int                      `mapstructure:"chunk_size"`
	HealthAlertBelow   float64                  `mapstructure:"health_alert_below"`
	ConflictResolution ConflictResolutionConfig `mapstructure:"conflict_resolution"`
}

// ConflictResolutionConfig sets the default relaxation policy applied to
// recommendation filters that carry none of their own.
type ConflictResolutionConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Strategies []string `mapstructure:"strategies"`
}

// DebridConfig holds debrid resolver configuration.
type DebridConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IndexerConfig holds the scrape adapter configuration.
type IndexerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.riptide")
	}

	v.SetEnvPrefix("RIPTIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; defaults plus env vars apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Database defaults
	v.SetDefault("database.path", "./data/riptide.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")

	// Search optimizer defaults
	v.SetDefault("search.cache_ttl", 10*time.Minute)
	v.SetDefault("search.cache_max_entries", 100)
	v.SetDefault("search.debounce_delay", 300*time.Millisecond)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.prefetch_enabled", true)
	v.SetDefault("search.prefetch_min_chars", 3)
	v.SetDefault("search.sweep_interval", time.Minute)

	// Health evaluation defaults
	v.SetDefault("health.cache_size", 1000)
	v.SetDefault("health.cache_ttl", 10*time.Minute)
	v.SetDefault("health.refresh_after", 5*time.Minute)

	// Batch evaluation defaults
	v.SetDefault("engine.chunk_size", 10)
	v.SetDefault("engine.health_alert_below", 25.0)
	v.SetDefault("engine.conflict_resolution.enabled", false)
	v.SetDefault("engine.conflict_resolution.strategies", []string{
		"health", "codec", "quality", "audio", "release", "filesize", "provider", "age",
	})

	// Debrid defaults
	v.SetDefault("debrid.api_key", "")
	v.SetDefault("debrid.base_url", "https://api.real-debrid.com/rest/1.0")
	v.SetDefault("debrid.timeout", 15*time.Second)

	// Indexer defaults
	v.SetDefault("indexer.base_url", "")
	v.SetDefault("indexer.timeout", 20*time.Second)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
