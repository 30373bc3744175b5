package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for statforms-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (the database
// password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Upload pipeline configuration
	Upload UploadConfig `yaml:"upload"`

	// Morphology cache used by the header normalizer
	Morphology MorphologyConfig `yaml:"morphology"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"statforms"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"statforms_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// UploadConfig holds upload pipeline settings.
type UploadConfig struct {
	// MaxFileBytes caps the size of a single uploaded workbook.
	MaxFileBytes int64 `yaml:"max_file_bytes" env:"UPLOAD_MAX_FILE_BYTES" env-default:"52428800"`
	// Workers bounds how many files from one batch are processed at once.
	// 1 means strictly sequential.
	Workers int `yaml:"workers" env:"UPLOAD_WORKERS" env-default:"1"`
	// ChunkSize is the number of long records per bulk insert.
	ChunkSize int `yaml:"chunk_size" env:"UPLOAD_CHUNK_SIZE" env-default:"5000"`
}

// MorphologyConfig holds paths for the header normalizer's caches.
type MorphologyConfig struct {
	// ManualMapPath is the persisted join/space decision cache.
	ManualMapPath string `yaml:"manual_map_path" env:"MORPH_MANUAL_MAP_PATH" env-default:"data/manual_map.yaml"`
	// DictionaryPath is a newline-delimited known-word list consulted when
	// the manual map has no entry. Optional; empty disables the oracle.
	DictionaryPath string `yaml:"dictionary_path" env:"MORPH_DICTIONARY_PATH" env-default:""`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Upload.Workers < 1 {
		return fmt.Errorf("upload.workers must be at least 1, got %d", c.Upload.Workers)
	}
	if c.Upload.ChunkSize < 1 {
		return fmt.Errorf("upload.chunk_size must be at least 1, got %d", c.Upload.ChunkSize)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string. The host is
// rewritten to host.docker.internal when running containerized against a
// database on the host machine.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
