package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Provider)
	assert.Equal(t, 168*time.Hour, cfg.Panel.TTL)
	assert.Equal(t, 10, cfg.Connector.MaxOpenConns)
	assert.Equal(t, 10000, cfg.Security.MaxStatementLength)
	assert.False(t, cfg.Quota.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  statement_timeout: 30s
storage:
  provider: s3
  s3:
    bucket: reports
panel:
  public_base_url: https://panels.example.com
connector:
  max_open_conns: 4
`), 0o600))

	t.Setenv("SQLPANEL_LOGGING_LEVEL", "debug")
	t.Setenv("SQLPANEL_QUOTA_DAILY_LIMIT", "7")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.StatementTimeout)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "reports", cfg.Storage.S3.Bucket)
	assert.Equal(t, "https://panels.example.com", cfg.Panel.PublicBaseURL)
	assert.Equal(t, 4, cfg.Connector.MaxOpenConns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(7), cfg.Quota.DailyLimit)
}

func TestLoadFileRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  provider: ftp\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unsupported storage provider")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Security: SecurityConfig{EnableAuth: true}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Quota: QuotaConfig{Enabled: true}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Storage: StorageConfig{Provider: "none"}}
	assert.NoError(t, cfg.Validate())
}

func TestRegistryDSN(t *testing.T) {
	dsn := RegistryDSN(DatabaseConfig{Host: "db", Port: "3306", Database: "sqlpanel", Username: "u", Password: "p@ss"})
	assert.Contains(t, dsn, "u:p@ss@tcp(db:3306)/sqlpanel")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, gormLogLevel("debug"))
	assert.Equal(t, logger.Warn, gormLogLevel("info"))
	assert.Equal(t, logger.Silent, gormLogLevel("error"))
}
