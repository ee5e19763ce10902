package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"sqlpanel/internal/config"
	"sqlpanel/internal/controller"
	"sqlpanel/internal/database"
	"sqlpanel/internal/model"
	"sqlpanel/internal/publisher"
	"sqlpanel/internal/quota"
	"sqlpanel/internal/repository"
	"sqlpanel/internal/storage"
)

// dependencies are the long-lived collaborators built from config.
type dependencies struct {
	registryDB *gorm.DB
	panels     repository.PanelRepository
	store      publisher.ContentStore
	redis      *redis.Client
	quota      quota.Checker
	connectors *database.ConnectorManager
}

func buildDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	deps := &dependencies{quota: quota.Unlimited{}}

	if cfg.Database.Enabled {
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(&model.Panel{}); err != nil {
				log.Warn().Err(err).Msg("panel table migration failed, continuing with existing schema")
			}
		}
		deps.registryDB = db
		deps.panels = repository.NewPanelRepository(db, repository.PanelOptions{
			PublicBaseURL: cfg.Panel.PublicBaseURL,
			TTL:           cfg.Panel.TTL,
		})
	} else {
		log.Warn().Msg("panel registry disabled; report publishing will be unavailable")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		deps.store = store
		log.Info().Str("provider", store.Provider()).Msg("content store ready")
	} else {
		log.Warn().Msg("content store disabled; report publishing will be unavailable")
	}

	if cfg.Quota.Enabled {
		opts, err := redis.ParseURL(cfg.Quota.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quota redis url: %w", err)
		}
		deps.redis = redis.NewClient(opts)
		deps.quota = quota.NewRedisChecker(deps.redis, cfg.Quota.DailyLimit)
	}

	deps.connectors = database.NewConnectorManager(database.Options{
		MaxOpenConns:    cfg.Connector.MaxOpenConns,
		MaxIdleConns:    cfg.Connector.MaxIdleConns,
		ConnMaxLifetime: cfg.Connector.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Connector.ConnMaxIdleTime,
	})
	return deps, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Provider {
	case "minio":
		m := cfg.Storage.MinIO
		store, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:      m.Endpoint,
			AccessKey:     m.AccessKey,
			SecretKey:     m.SecretKey,
			Bucket:        m.Bucket,
			Region:        m.Region,
			Secure:        m.Secure,
			Prefix:        cfg.Storage.Prefix,
			PublicBaseURL: m.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		if m.CreateBucket {
			if err := store.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	case "s3":
		s := cfg.Storage.S3
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:         s.Region,
			Bucket:         s.Bucket,
			AccessKey:      s.AccessKey,
			SecretKey:      s.SecretKey,
			EndpointURL:    s.EndpointURL,
			ForcePathStyle: s.ForcePathStyle,
			MaxRetries:     s.MaxRetries,
			Prefix:         cfg.Storage.Prefix,
			PublicBaseURL:  s.PublicBaseURL,
		})
	default:
		return nil, nil
	}
}

// pingers lists the dependencies reported by /health and the check command.
func (d *dependencies) pingers() map[string]controller.Pinger {
	out := map[string]controller.Pinger{"registry": nil, "quota": nil}
	if d.registryDB != nil {
		if sqlDB, err := d.registryDB.DB(); err == nil {
			out["registry"] = sqlDB
		}
	}
	if d.redis != nil {
		out["quota"] = controller.PingFunc(func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		})
	}
	return out
}

func (d *dependencies) close(log zerolog.Logger) {
	if err := d.connectors.CloseAll(); err != nil {
		log.Warn().Err(err).Msg("failed to close connectors")
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if d.registryDB != nil {
		if sqlDB, err := d.registryDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
