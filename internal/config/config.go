package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/claim-risk-engine/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/claim-risk-engine/")

	viper.SetEnvPrefix("CLAIM_RISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables apply
	// when it is absent.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Policy database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "claim_risk")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Verdict cache defaults
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Collaborator defaults
	viper.SetDefault("collaborators.classifier.base_url", "http://localhost:9090/")
	viper.SetDefault("collaborators.classifier.timeout", "10s")
	viper.SetDefault("collaborators.classifier.rate_limit", 10)

	viper.SetDefault("collaborators.qualitative.model", "gpt-4o-mini")
	viper.SetDefault("collaborators.qualitative.max_tokens", 800)
	viper.SetDefault("collaborators.qualitative.timeout", "30s")

	viper.SetDefault("collaborators.anomaly.base_url", "http://localhost:9091/")
	viper.SetDefault("collaborators.anomaly.timeout", "5s")

	viper.SetDefault("collaborators.watchlist.dir", "data/watchlists")
	viper.SetDefault("collaborators.watchlist.threshold", 85.0)

	// Review queue defaults
	viper.SetDefault("review.driver", "sqlite")
	viper.SetDefault("review.sqlite_path", "data/reviews.db")

	// Pipeline defaults
	viper.SetDefault("pipeline.collaborator_timeout", "10s")
	viper.SetDefault("pipeline.policy_cache_size", 512)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Collaborators.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier base URL is required")
	}
	if config.Collaborators.Classifier.RateLimit <= 0 {
		return fmt.Errorf("classifier rate limit must be positive")
	}
	if config.Collaborators.Watchlist.Threshold < 0 || config.Collaborators.Watchlist.Threshold > 100 {
		return fmt.Errorf("watchlist threshold must be within [0,100]: %f", config.Collaborators.Watchlist.Threshold)
	}

	switch config.Review.Driver {
	case "sqlite":
		if config.Review.SQLitePath == "" {
			return fmt.Errorf("review sqlite path is required")
		}
	case "postgres":
		if config.Review.PostgresURL == "" {
			return fmt.Errorf("review postgres URL is required")
		}
	default:
		return fmt.Errorf("invalid review driver: %s", config.Review.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseURL returns a postgres connection URL for the policy store,
// usable both by pgx and by golang-migrate.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}
