package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Review        ReviewConfig        `mapstructure:"review"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents the policy store connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents the Redis verdict cache configuration. An empty
// RedisURL disables caching.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// CollaboratorsConfig groups the external signal source configurations.
type CollaboratorsConfig struct {
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	Qualitative QualitativeConfig `mapstructure:"qualitative"`
	Anomaly     AnomalyConfig     `mapstructure:"anomaly"`
	Watchlist   WatchlistConfig   `mapstructure:"watchlist"`
}

// ClassifierConfig represents the external fraud classifier API configuration
type ClassifierConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// QualitativeConfig represents the LLM qualitative analysis configuration
type QualitativeConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// AnomalyConfig represents the statistical outlier service configuration
type AnomalyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WatchlistConfig represents the flagged-name watchlist configuration.
// Threshold is on a 0-100 similarity scale.
type WatchlistConfig struct {
	Dir       string  `mapstructure:"dir"`
	Threshold float64 `mapstructure:"threshold"`
}

// ReviewConfig selects and configures the human-review queue store.
type ReviewConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// PipelineConfig carries the operational knobs of the pipeline. Decision and
// scoring thresholds are business policy constants and deliberately not here.
type PipelineConfig struct {
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	PolicyCacheSize     int           `mapstructure:"policy_cache_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
