package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/warehouse-crm/internal/adapters/memstore"
	redis_a "github.com/ammerola/warehouse-crm/internal/adapters/redis_adapter"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/services"
	"github.com/ammerola/warehouse-crm/test/helpers"
	"github.com/ammerola/warehouse-crm/test/mocks"
)

func newCachedService(t *testing.T) (*services.CachedCatalogService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := helpers.TestLogger()
	inner := services.NewCatalogService(memstore.New(), logger, services.WithClock(tickingClock()))
	cache := redis_a.NewCache(client, time.Minute, logger)
	return services.NewCachedCatalogService(inner, cache, time.Minute, logger), mr
}

func TestCachedCatalogService_GetByID_PopulatesAndEvicts(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedService(t)

	created, err := svc.Create(ctx, helpers.CreateTestCatalogInput())
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.SKU, got.SKU)
	assert.True(t, mr.Exists("catalog:record:"+created.ID.String()))

	zero := 0
	updated, err := svc.Update(ctx, created.ID, domain.CatalogPatch{Quantity: &zero})
	require.NoError(t, err)
	assert.False(t, mr.Exists("catalog:record:"+created.ID.String()))

	got, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.True(t, updated.UpdatedAt.Equal(got.UpdatedAt))
}

func TestCachedCatalogService_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedService(t)

	id := uuid.New()
	_, err := svc.GetByID(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, mr.Exists("catalog:record:"+id.String()))
}

func TestCachedCatalogService_LowStockEvictedOnWrite(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedService(t)

	records, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, mr.Exists("catalog:lowstock"))

	_, err = svc.Create(ctx, helpers.CreateTestCatalogInput(func(in *domain.CatalogInput) {
		in.Quantity = 1
		in.MinimumStock = 3
	}))
	require.NoError(t, err)
	assert.False(t, mr.Exists("catalog:lowstock"))

	records, err = svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCachedCatalogService_FallsBackWhenCacheDown(t *testing.T) {
	ctx := context.Background()
	svc, mr := newCachedService(t)

	created, err := svc.Create(ctx, helpers.CreateTestCatalogInput())
	require.NoError(t, err)

	mr.Close()

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCachedCatalogService_ListBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockCatalogService(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := services.NewCachedCatalogService(inner, cache, time.Minute, helpers.TestLogger())

	inner.EXPECT().
		List(gomock.Any(), domain.CatalogFilter{Category: "X"}, 1, 10).
		Return(nil, nil)

	_, err := svc.List(context.Background(), domain.CatalogFilter{Category: "X"}, 1, 10)
	assert.NoError(t, err)
}

func TestCachedCatalogService_FailedWriteDoesNotEvict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockCatalogService(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := services.NewCachedCatalogService(inner, cache, time.Minute, helpers.TestLogger())

	inner.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(domain.ErrNotFound)

	err := svc.Delete(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
