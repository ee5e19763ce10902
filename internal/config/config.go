package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Security  SecurityConfig  `mapstructure:"security"`
	Connector ConnectorConfig `mapstructure:"connector"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Mode             string        `mapstructure:"mode"`
	Host             string        `mapstructure:"host"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig is the panel registry database.
type DatabaseConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Database    string        `mapstructure:"database"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

type StorageConfig struct {
	Provider string      `mapstructure:"provider"` // minio, s3 or none
	Prefix   string      `mapstructure:"prefix"`
	MinIO    MinIOConfig `mapstructure:"minio"`
	S3       S3Config    `mapstructure:"s3"`
}

type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Secure        bool   `mapstructure:"secure"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	CreateBucket  bool   `mapstructure:"create_bucket"`
}

type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	EndpointURL    string `mapstructure:"endpoint_url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	MaxRetries     int    `mapstructure:"max_retries"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
}

type PanelConfig struct {
	PublicBaseURL string        `mapstructure:"public_base_url"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type QuotaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DailyLimit int64  `mapstructure:"daily_limit"`
	RedisURL   string `mapstructure:"redis_url"`
}

type SecurityConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTExpiration      time.Duration `mapstructure:"jwt_expiration"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	EnableRateLimit    bool          `mapstructure:"enable_rate_limit"`
	MaxStatementLength int           `mapstructure:"max_statement_length"`
}

// ConnectorConfig sizes the pool behind each target-database connector.
type ConnectorConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// HealthInterval is how often cached connectors are probed; 0 disables it.
	HealthInterval time.Duration `mapstructure:"health_interval"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from ./configs or the working directory, then
// applies SQLPANEL_* environment overrides.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("SQLPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case "minio", "s3", "none", "":
	default:
		return fmt.Errorf("unsupported storage provider %q", c.Storage.Provider)
	}
	if c.Security.EnableAuth && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required when auth is enabled")
	}
	if c.Quota.Enabled && c.Quota.RedisURL == "" {
		return fmt.Errorf("quota.redis_url is required when quota is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.statement_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Registry database defaults
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.database", "sqlpanel")
	v.SetDefault("database.username", "sqlpanel")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open", 10)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.max_lifetime", "30m")

	// Storage defaults
	v.SetDefault("storage.provider", "minio")
	v.SetDefault("storage.prefix", "reports")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.bucket", "sqlpanel")
	v.SetDefault("storage.minio.region", "us-east-1")
	v.SetDefault("storage.minio.create_bucket", true)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.max_retries", 3)

	// Panel defaults
	v.SetDefault("panel.public_base_url", "http://localhost:8080")
	v.SetDefault("panel.ttl", "168h")

	// Quota defaults
	v.SetDefault("quota.enabled", false)
	v.SetDefault("quota.daily_limit", 100)
	v.SetDefault("quota.redis_url", "redis://localhost:6379/0")

	// Security defaults
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_expiration", "24h")
	v.SetDefault("security.rate_limit_per_minute", 60)
	v.SetDefault("security.rate_limit_burst", 10)
	v.SetDefault("security.enable_auth", false)
	v.SetDefault("security.enable_rate_limit", true)
	v.SetDefault("security.max_statement_length", 10000)

	// Connector pool defaults
	v.SetDefault("connector.max_open_conns", 10)
	v.SetDefault("connector.max_idle_conns", 5)
	v.SetDefault("connector.conn_max_lifetime", "30m")
	v.SetDefault("connector.conn_max_idle_time", "5m")
	v.SetDefault("connector.health_interval", "1m")
	v.SetDefault("connector.health_timeout", "5s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
