// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/ammerola/warehouse-crm/internal/adapters/db"
	"github.com/ammerola/warehouse-crm/internal/adapters/memstore"
	"github.com/ammerola/warehouse-crm/internal/adapters/mongostore"
	redis_a "github.com/ammerola/warehouse-crm/internal/adapters/redis_adapter"
	"github.com/ammerola/warehouse-crm/internal/adapters/storage"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/core/services"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
)

// ErrUnknownDriver is returned for a storage driver outside postgres, mongo and memory
var ErrUnknownDriver = errors.New("unknown storage driver")

// CatalogBackend is the opened catalog store plus whatever connection backs it
type CatalogBackend struct {
	Driver   string
	Store    ports.CatalogStore
	Database *db.Database // set for the postgres driver only
	mongo    *mongo.Client
}

// Close releases the underlying connection
func (b *CatalogBackend) Close(ctx context.Context) error {
	if b.Database != nil {
		b.Database.Close()
	}
	if b.mongo != nil {
		return b.mongo.Disconnect(ctx)
	}
	return nil
}

// DatabaseConfig maps the loaded settings onto the pool configuration
func DatabaseConfig(cfg *config.Config) *db.Config {
	return &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}
}

// MigrationConfig points the migrator at the configured database
func MigrationConfig(cfg *config.Config) *db.MigrationConfig {
	return &db.MigrationConfig{
		DatabaseURL: DatabaseConfig(cfg).DSN(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}
}

// OpenCatalogStore connects the store selected by Catalog.StorageDriver.
// The postgres driver applies migrations first when Database.AutoMigrate is set.
func OpenCatalogStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*CatalogBackend, error) {
	driver := cfg.Catalog.StorageDriver
	logger.Info("opening catalog store", slog.String("driver", driver))

	switch driver {
	case config.StoragePostgres:
		if cfg.Database.AutoMigrate {
			if err := db.RunMigrationsWithRetry(ctx, MigrationConfig(cfg), logger, 3); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		database, err := db.NewDatabase(ctx, DatabaseConfig(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return &CatalogBackend{
			Driver:   driver,
			Store:    db.NewCatalogStore(database, logger),
			Database: database,
		}, nil

	case config.StorageMongo:
		client, err := mongo.Connect(options.Client().
			ApplyURI(cfg.Mongo.URI).
			SetConnectTimeout(cfg.Mongo.ConnectTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}

		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		if err := mongostore.EnsureIndexes(ctx, coll); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		return &CatalogBackend{
			Driver: driver,
			Store:  mongostore.NewCatalogStore(coll, logger),
			mongo:  client,
		}, nil

	case config.StorageMemory:
		return &CatalogBackend{Driver: driver, Store: memstore.New()}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// NewRedisClient builds the go-redis client shared by the cache
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})
}

// AsynqRedisOpt is the connection used by the task client, inspector and server
func AsynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
}

// NewCatalogService builds the catalog service, wrapped with the read-through
// cache when a redis client is given.
func NewCatalogService(cfg *config.Config, store ports.CatalogStore, client *redis.Client, logger *slog.Logger) ports.CatalogService {
	var service ports.CatalogService = services.NewCatalogService(store, logger)
	if client == nil {
		return service
	}
	cache := redis_a.NewCache(client, cfg.Catalog.CacheTTL, logger)
	return services.NewCachedCatalogService(service, cache, cfg.Catalog.CacheTTL, logger)
}

// NewObjectStorage returns S3 storage when a bucket is configured and a
// directory under Catalog.TempDir otherwise.
func NewObjectStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ObjectStorage, error) {
	if cfg.AWS.S3Bucket == "" {
		return storage.NewLocalStorage(filepath.Join(cfg.Catalog.TempDir, "objects"), logger)
	}
	return storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
}
