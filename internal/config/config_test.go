package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "local", cfg.Storage.Backend)
	require.Equal(t, "uploads", cfg.Storage.Local.UploadsDir)
	require.Equal(t, "03:00", cfg.Maintenance.DailyRunTime)
	require.True(t, cfg.RateLimit.Enabled)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  allowed_origins:
    - https://inmobiliaria.example
database:
  host: db.internal
  database: portal
storage:
  backend: s3
  s3:
    endpoint: https://minio.internal
    bucket: property-images
    access_key: key
    secret_key: secret
    public_base_url: https://img.inmobiliaria.example
maintenance:
  daily_run_enabled: true
  daily_run_time: "04:30"
  sweep_cap: 200
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, []string{"https://inmobiliaria.example"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "portal", cfg.Database.Database)
	require.Equal(t, "s3", cfg.Storage.Backend)
	require.True(t, cfg.Storage.S3Configured())
	require.True(t, cfg.Maintenance.DailyRunEnabled)
	require.Equal(t, "04:30", cfg.Maintenance.DailyRunTime)
	require.Equal(t, 200, cfg.Maintenance.SweepCap)

	// File values that were not set keep their defaults
	require.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	require.Equal(t, "7777", cfg.Server.Port)
	require.Equal(t, "env-host", cfg.Database.Host)
	require.Equal(t, "s3", cfg.Storage.Backend)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestS3ConfiguredNeedsEveryField(t *testing.T) {
	cfg := StorageConfig{
		Backend: "s3",
		S3: S3Config{
			Endpoint:      "https://minio.internal",
			Bucket:        "imgs",
			AccessKey:     "key",
			SecretKey:     "secret",
			PublicBaseURL: "https://img.example",
		},
	}
	require.True(t, cfg.S3Configured())

	cfg.S3.SecretKey = ""
	require.False(t, cfg.S3Configured())
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "portal",
	}
	require.Equal(t,
		"host=localhost port=5432 user=app password=secret dbname=portal sslmode=disable",
		cfg.DSN())

	cfg.SSLMode = "require"
	require.Contains(t, cfg.DSN(), "sslmode=require")
}
