package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Store    StoreConfig
	Metadata MetadataConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	StatementTimeoutMS int // 0 disables the statement timeout
}

// StoreConfig represents entity storage configuration
type StoreConfig struct {
	BatchSize           int // rows per write statement
	PageSize            int // LIMIT of queries without a page size
	MaxIdentifierLength int // bytes; PostgreSQL truncates longer identifiers
}

// MetadataConfig represents the entity type cache configuration
type MetadataConfig struct {
	CacheSize       int
	CacheTTLMinutes int // Time-to-live for cached entity types in minutes
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string
	JSON  bool
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Port int // Port for the Prometheus metrics HTTP server, 0 disables it
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot)

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	SetDefaults()
	return nil
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "entitystore")
	viper.SetDefault("DB_NAME", "entitystore_dev")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_STATEMENT_TIMEOUT_MS", 0)

	// Store defaults
	viper.SetDefault("STORE_BATCH_SIZE", 1000)
	viper.SetDefault("STORE_PAGE_SIZE", 1000)
	viper.SetDefault("STORE_MAX_IDENTIFIER_LENGTH", 63)

	// Metadata cache defaults
	viper.SetDefault("METADATA_CACHE_SIZE", 1024)
	viper.SetDefault("METADATA_CACHE_TTL_MINUTES", 5)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_JSON", false)
	viper.SetDefault("METRICS_PORT", 0)
}

// Load loads configuration from viper
func Load() (*Config, error) {
	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:               viper.GetString("DB_HOST"),
			Port:               viper.GetInt("DB_PORT"),
			User:               viper.GetString("DB_USER"),
			Password:           dbPassword,
			Database:           viper.GetString("DB_NAME"),
			SSLMode:            viper.GetString("DB_SSLMODE"),
			StatementTimeoutMS: viper.GetInt("DB_STATEMENT_TIMEOUT_MS"),
		},
		Store: StoreConfig{
			BatchSize:           viper.GetInt("STORE_BATCH_SIZE"),
			PageSize:            viper.GetInt("STORE_PAGE_SIZE"),
			MaxIdentifierLength: viper.GetInt("STORE_MAX_IDENTIFIER_LENGTH"),
		},
		Metadata: MetadataConfig{
			CacheSize:       viper.GetInt("METADATA_CACHE_SIZE"),
			CacheTTLMinutes: viper.GetInt("METADATA_CACHE_TTL_MINUTES"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			JSON:  viper.GetBool("LOG_JSON"),
		},
		Metrics: MetricsConfig{
			Port: viper.GetInt("METRICS_PORT"),
		},
	}

	if config.Store.BatchSize <= 0 {
		return nil, fmt.Errorf("STORE_BATCH_SIZE must be positive, got %d", config.Store.BatchSize)
	}
	if config.Store.PageSize <= 0 {
		return nil, fmt.Errorf("STORE_PAGE_SIZE must be positive, got %d", config.Store.PageSize)
	}

	return config, nil
}

// CacheTTL returns the entity type cache TTL
func (c *MetadataConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	conn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
	if c.StatementTimeoutMS > 0 {
		conn += fmt.Sprintf(" options='-c statement_timeout=%d'", c.StatementTimeoutMS)
	}
	return conn
}
