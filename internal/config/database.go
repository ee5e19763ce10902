package config

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sqlpanel/internal/logging"
)

// RegistryDSN builds the MySQL DSN of the panel registry.
func RegistryDSN(cfg DatabaseConfig) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = cfg.Host + ":" + cfg.Port
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "":
		return logger.Warn
	case "warn", "warning":
		return logger.Error
	default:
		return logger.Silent
	}
}

// InitDatabase initializes the panel registry connection with GORM
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(RegistryDSN(cfg.Database)), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.Logging.Level)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping registry database: %w", err)
	}

	log := logging.Component("registry")
	log.Info().Str("address", cfg.Database.Host+":"+cfg.Database.Port).Msg("registry database connected")
	return db, nil
}
