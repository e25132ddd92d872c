package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Search      SearchConfig      `yaml:"search"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig selects and configures the image storage backend.
// Backend is "s3" or "local"; when the S3 section is incomplete the
// local backend is used regardless of the configured value.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	S3      S3Config    `yaml:"s3"`
	Local   LocalConfig `yaml:"local"`
}

// S3Config contains settings for an S3-compatible object store
type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// LocalConfig contains settings for the local disk backend
type LocalConfig struct {
	UploadsDir string `yaml:"uploads_dir"`
}

// SearchConfig contains Meilisearch connection settings
type SearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// MaintenanceConfig controls the nightly maintenance job
type MaintenanceConfig struct {
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time"`
	SweepCap        int    `yaml:"sweep_cap"`
}

// RateLimitConfig contains write-endpoint rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "inmobiliaria",
			Password: "inmobiliaria",
			Database: "inmobiliaria_db",
			SSLMode:  "disable",
		},
		Storage: StorageConfig{
			Backend: "local",
			Local: LocalConfig{
				UploadsDir: "uploads",
			},
		},
		Search: SearchConfig{
			Host: "http://localhost:7700",
		},
		Maintenance: MaintenanceConfig{
			DailyRunEnabled: false,
			DailyRunTime:    "03:00",
			SweepCap:        500,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   600,
			RequestsPerDay:    5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies
// environment variable overrides on top of it
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	// A missing file is not an error: env vars and defaults still apply
	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

// applyEnv overrides file values with environment variables when set
func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&c.Storage.Local.UploadsDir, "UPLOADS_DIR")

	setString(&c.Search.Host, "MEILISEARCH_HOST")
	setString(&c.Search.APIKey, "MEILISEARCH_KEY")

	setString(&c.Logging.Level, "LOG_LEVEL")
}

// S3Configured reports whether the S3 backend has everything it needs
func (c *StorageConfig) S3Configured() bool {
	s3 := c.S3
	return s3.Endpoint != "" && s3.Bucket != "" && s3.AccessKey != "" && s3.SecretKey != "" && s3.PublicBaseURL != ""
}

// DSN builds a lib/pq connection string
func (c *DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			*dst = n
		}
	}
}
