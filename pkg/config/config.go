// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents the application configuration.
type Config struct {
	// Optional database endpoints. Nil means the corresponding source or
	// sink is disabled and the pipeline works with local files only.
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// Ingestion settings
	DataDir      string
	FallbackFile string
	FetchTimeout time.Duration

	// Persistence settings
	WriteParquet bool

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		DataDir:      dataDir,
		FallbackFile: getEnv("FALLBACK_FILE", filepath.Join(dataDir, "raw", "Online_Retail.csv")),
		FetchTimeout: time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 300)) * time.Second,
		WriteParquet: getEnvAsBool("WRITE_PARQUET", true),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
	}

	// Snowflake is the primary source only when credentials are provided.
	if os.Getenv("SNOWFLAKE_USER") != "" {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	// The warehouse sink is likewise opt-in.
	if os.Getenv("POSTGRES_USER") != "" {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}

	if c.Snowflake == nil && c.FallbackFile == "" {
		return errors.New("either a Snowflake source or a fallback file is required")
	}

	if c.FetchTimeout < 0 {
		return errors.New("fetch timeout cannot be negative")
	}

	return nil
}

// RawDir returns the directory for raw extracts.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// ProfilingDir returns the directory for profiling reports and history.
func (c *Config) ProfilingDir() string { return filepath.Join(c.DataDir, "profiling") }

// ProcessedDir returns the directory for cleaned extracts.
func (c *Config) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }

// ModelDir returns the directory for the star schema tables.
func (c *Config) ModelDir() string { return filepath.Join(c.DataDir, "model") }

// LogDir returns the directory for run logs.
func (c *Config) LogDir() string { return filepath.Join(c.DataDir, "logs") }

// Dirs lists every directory the pipeline writes to.
func (c *Config) Dirs() []string {
	return []string{
		c.RawDir(),
		c.ProfilingDir(),
		c.ProcessedDir(),
		c.ModelDir(),
		c.LogDir(),
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
