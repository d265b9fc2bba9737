// Package config provides configuration management for Ekko.
// It loads settings from environment variables with the EKKO_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the Ekko application.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Enrichment EnrichmentConfig
	Engine     EngineConfig
	Security   SecurityConfig
	Backup     BackupConfig
	Watch      WatchConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Postgres connection string, required when engine is postgres
}

// EnrichmentConfig contains enrichment provider configuration.
type EnrichmentConfig struct {
	Provider          string        // Provider kind: static, http (default: static)
	BaseURL           string        // HTTP provider base URL
	APIKey            string        // HTTP provider API key
	Timeout           time.Duration // Per-request timeout (default: 30s)
	RequestsPerSecond float64       // Outbound rate limit (default: 2)
	Burst             int           // Rate limiter burst (default: 4)
}

// EngineConfig contains enrichment engine tuning.
type EngineConfig struct {
	NumWorkers      int           // Concurrent enrichment workers (default: 4)
	QueueSize       int           // Job queue capacity (default: 1000)
	ShutdownTimeout time.Duration // Grace period to drain workers (default: 30s)
	MaxRetries      int           // Transient failure requeue limit (default: 3)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// BackupConfig contains database snapshot settings. Snapshots only apply
// to the sqlite storage engine.
type BackupConfig struct {
	Enabled  bool          // Enable periodic snapshots (default: false)
	Dir      string        // Snapshot directory (default: {DataPath}/backups)
	Interval time.Duration // Time between snapshots (default: 1h)
}

// WatchConfig contains markdown drop folder settings.
type WatchConfig struct {
	Dir string // Directory to watch for markdown files; empty disables watching
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the EKKO_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("EKKO_PORT", 7373),
			Host: getEnv("EKKO_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("EKKO_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("EKKO_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("EKKO_POSTGRES_DSN", ""),
		},
		Enrichment: EnrichmentConfig{
			Provider:          getEnv("EKKO_ENRICHMENT_PROVIDER", "static"),
			BaseURL:           getEnv("EKKO_ENRICHMENT_BASE_URL", ""),
			APIKey:            getEnv("EKKO_ENRICHMENT_API_KEY", ""),
			Timeout:           getEnvDuration("EKKO_ENRICHMENT_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvFloat("EKKO_ENRICHMENT_RPS", 2),
			Burst:             getEnvInt("EKKO_ENRICHMENT_BURST", 4),
		},
		Engine: EngineConfig{
			NumWorkers:      getEnvInt("EKKO_ENGINE_WORKERS", 4),
			QueueSize:       getEnvInt("EKKO_ENGINE_QUEUE_SIZE", 1000),
			ShutdownTimeout: getEnvDuration("EKKO_ENGINE_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxRetries:      getEnvInt("EKKO_ENGINE_MAX_RETRIES", 3),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("EKKO_SECURITY_MODE", "development"),
			APIToken:     getEnv("EKKO_API_TOKEN", ""),
		},
		Backup: BackupConfig{
			Enabled:  getEnvBool("EKKO_BACKUP_ENABLED", false),
			Dir:      getEnv("EKKO_BACKUP_DIR", ""),
			Interval: getEnvDuration("EKKO_BACKUP_INTERVAL", time.Hour),
		},
		Watch: WatchConfig{
			Dir: getEnv("EKKO_WATCH_DIR", ""),
		},
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = cfg.Storage.DataPath + "/backups"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that defaults alone cannot guarantee.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: EKKO_POSTGRES_DSN is required when storage engine is postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}

	switch c.Enrichment.Provider {
	case "static":
	case "http":
		if c.Enrichment.BaseURL == "" {
			return fmt.Errorf("config: EKKO_ENRICHMENT_BASE_URL is required when provider is http")
		}
	default:
		return fmt.Errorf("config: unknown enrichment provider %q", c.Enrichment.Provider)
	}

	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: EKKO_API_TOKEN is required in production mode")
	}

	if c.Backup.Enabled && c.Storage.StorageEngine != "sqlite" {
		return fmt.Errorf("config: snapshots require the sqlite storage engine")
	}
	if c.Backup.Enabled && c.Backup.Interval <= 0 {
		return fmt.Errorf("config: EKKO_BACKUP_INTERVAL must be positive")
	}

	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "45s", "2m")
// or returns a default value when missing or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
