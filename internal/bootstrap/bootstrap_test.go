// internal/bootstrap/bootstrap_test.go
package bootstrap_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/warehouse-crm/internal/adapters/memstore"
	"github.com/ammerola/warehouse-crm/internal/adapters/storage"
	"github.com/ammerola/warehouse-crm/internal/bootstrap"
	"github.com/ammerola/warehouse-crm/internal/core/services"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
	"github.com/ammerola/warehouse-crm/test/helpers"
)

func TestOpenCatalogStore_Memory(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	cfg.Catalog.StorageDriver = config.StorageMemory

	backend, err := bootstrap.OpenCatalogStore(context.Background(), cfg, helpers.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close(context.Background()) })

	assert.IsType(t, &memstore.Store{}, backend.Store)
	assert.Nil(t, backend.Database)
	assert.NoError(t, backend.Store.Ping(context.Background()))
}

func TestOpenCatalogStore_UnknownDriver(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	cfg.Catalog.StorageDriver = "cassandra"

	_, err := bootstrap.OpenCatalogStore(context.Background(), cfg, helpers.TestLogger())
	assert.ErrorIs(t, err, bootstrap.ErrUnknownDriver)
}

func TestMigrationConfig_EscapesCredentials(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	cfg.Database.Password = "p@ss/word"

	u, err := url.Parse(bootstrap.MigrationConfig(cfg).DatabaseURL)
	require.NoError(t, err)

	pw, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "/"+cfg.Database.Name, u.Path)
}

func TestNewCatalogService(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	store := memstore.New()

	plain := bootstrap.NewCatalogService(cfg, store, nil, helpers.TestLogger())
	assert.IsType(t, &services.CatalogService{}, plain)

	redis := helpers.SetupTestRedis(t)
	cached := bootstrap.NewCatalogService(cfg, store, redis.Client, helpers.TestLogger())
	assert.IsType(t, &services.CachedCatalogService{}, cached)
}

func TestNewObjectStorage_LocalWithoutBucket(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	cfg.AWS.S3Bucket = ""
	cfg.Catalog.TempDir = t.TempDir()

	objects, err := bootstrap.NewObjectStorage(context.Background(), cfg, helpers.TestLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, objects)
}
