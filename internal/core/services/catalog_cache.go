// internal/core/services/catalog_cache.go
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// Cache key layout
const (
	cacheKeyRecord   = "catalog:record:"
	cacheKeyLowStock = "catalog:lowstock"
)

// CachedCatalogService is a read-through cache in front of a CatalogService.
// GetByID and LowStock are cached; every write evicts the affected keys.
// A failing cache degrades to direct reads.
type CachedCatalogService struct {
	inner  ports.CatalogService
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.CatalogService = (*CachedCatalogService)(nil)

// NewCachedCatalogService wraps inner with cache
func NewCachedCatalogService(inner ports.CatalogService, cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *CachedCatalogService {
	return &CachedCatalogService{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("service", "catalog_cache")),
	}
}

func recordKey(id uuid.UUID) string {
	return cacheKeyRecord + id.String()
}

// List is not cached; listings change with every write
func (c *CachedCatalogService) List(ctx context.Context, filter domain.CatalogFilter, page, limit int) (*ports.QueryPage, error) {
	return c.inner.List(ctx, filter, page, limit)
}

func (c *CachedCatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	var (
		record   domain.CatalogRecord
		fetched  bool
		fetchErr error
	)
	err := c.cache.GetOrSet(ctx, recordKey(id), &record, func() (interface{}, error) {
		fetched = true
		r, err := c.inner.GetByID(ctx, id)
		fetchErr = err
		return r, err
	}, c.ttl)
	if err == nil {
		return &record, nil
	}
	if fetched && fetchErr != nil {
		return nil, fetchErr
	}

	c.logger.WarnContext(ctx, "cache read failed, falling back to store",
		slog.String("id", id.String()),
		slog.String("error", err.Error()))
	return c.inner.GetByID(ctx, id)
}

func (c *CachedCatalogService) LowStock(ctx context.Context) ([]*domain.CatalogRecord, error) {
	var (
		records  []*domain.CatalogRecord
		fetched  bool
		fetchErr error
	)
	err := c.cache.GetOrSet(ctx, cacheKeyLowStock, &records, func() (interface{}, error) {
		fetched = true
		r, err := c.inner.LowStock(ctx)
		fetchErr = err
		return r, err
	}, c.ttl)
	if err == nil {
		if records == nil {
			records = []*domain.CatalogRecord{}
		}
		return records, nil
	}
	if fetched && fetchErr != nil {
		return nil, fetchErr
	}

	c.logger.WarnContext(ctx, "cache read failed, falling back to store",
		slog.String("key", cacheKeyLowStock),
		slog.String("error", err.Error()))
	return c.inner.LowStock(ctx)
}

func (c *CachedCatalogService) Create(ctx context.Context, input domain.CatalogInput) (*domain.CatalogRecord, error) {
	record, err := c.inner.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, cacheKeyLowStock)
	return record, nil
}

func (c *CachedCatalogService) Update(ctx context.Context, id uuid.UUID, patch domain.CatalogPatch) (*domain.CatalogRecord, error) {
	record, err := c.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, recordKey(id), cacheKeyLowStock)
	return record, nil
}

func (c *CachedCatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, recordKey(id), cacheKeyLowStock)
	return nil
}

func (c *CachedCatalogService) evict(ctx context.Context, keys ...string) {
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "failed to evict cache keys",
			slog.Any("keys", keys),
			slog.String("error", err.Error()))
	}
}

