// internal/core/services/catalog.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// Pagination defaults applied when a caller passes out-of-range values
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// CatalogService handles catalog business logic
type CatalogService struct {
	store  ports.CatalogStore
	logger *slog.Logger
	now    func() time.Time
}

// Statically assert that *CatalogService implements the CatalogService interface.
var _ ports.CatalogService = (*CatalogService)(nil)

// Option configures a CatalogService
type Option func(*CatalogService)

// WithClock overrides the time source used for createdAt/updatedAt
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) {
		s.now = now
	}
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store ports.CatalogStore, logger *slog.Logger, opts ...Option) *CatalogService {
	s := &CatalogService{
		store:  store,
		logger: logger.With(slog.String("service", "catalog")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of records matching filter, most recently updated first
func (s *CatalogService) List(ctx context.Context, filter domain.CatalogFilter, page, limit int) (*ports.QueryPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog records: %w", err)
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	result := &ports.QueryPage{
		Records:    []*domain.CatalogRecord{},
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		TotalCount: total,
	}
	// Past the last page (page-1)*limit >= total, and the product may not fit in an int
	if page > totalPages {
		return result, nil
	}

	records, err := s.store.Find(ctx, filter, ports.FindOptions{
		Skip:  (page - 1) * limit,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog records: %w", err)
	}
	if records != nil {
		result.Records = records
	}
	return result, nil
}

// GetByID retrieves a catalog record by ID
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("catalog record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get catalog record: %w", err)
	}
	return record, nil
}

// Create validates and stores a new record.
//
// The sku lookup below only produces a friendlier early failure. Two
// concurrent creates can both pass it; the store's unique constraint decides
// the winner and the loser gets domain.ErrDuplicateKey from Insert.
func (s *CatalogService) Create(ctx context.Context, input domain.CatalogInput) (*domain.CatalogRecord, error) {
	record := input.ToRecord()
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.ensureSKUFree(ctx, record.SKU, uuid.Nil); err != nil {
		return nil, err
	}

	record.PrepareForStorage(s.now())

	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to create catalog record: %w", err)
	}

	s.logger.InfoContext(ctx, "created catalog record",
		slog.String("id", record.ID.String()),
		slog.String("sku", record.SKU))

	return record, nil
}

// Update applies a partial update and bumps updatedAt
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, patch domain.CatalogPatch) (*domain.CatalogRecord, error) {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSKU := record.SKU

	patch.Apply(record, s.now())
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if record.SKU != previousSKU {
		if err := s.ensureSKUFree(ctx, record.SKU, id); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateOne(ctx, record); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("catalog record %s: %w", id, domain.ErrNotFound)
		case errors.Is(err, domain.ErrDuplicateKey):
			return nil, fmt.Errorf("sku %q: %w", record.SKU, domain.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("failed to update catalog record: %w", err)
	}

	s.logger.InfoContext(ctx, "updated catalog record",
		slog.String("id", id.String()))

	return record, nil
}

// Delete permanently removes a record
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteOne(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("catalog record %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to delete catalog record: %w", err)
	}

	s.logger.InfoContext(ctx, "deleted catalog record",
		slog.String("id", id.String()))

	return nil
}

// LowStock returns every active record whose quantity is at or below its minimum
func (s *CatalogService) LowStock(ctx context.Context) ([]*domain.CatalogRecord, error) {
	records, err := s.store.FindLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock records: %w", err)
	}
	if records == nil {
		records = []*domain.CatalogRecord{}
	}
	return records, nil
}

func (s *CatalogService) ensureSKUFree(ctx context.Context, sku string, owner uuid.UUID) error {
	existing, err := s.store.FindBySKU(ctx, sku)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check sku: %w", err)
	case existing.ID != owner:
		return fmt.Errorf("sku %q: %w", sku, domain.ErrDuplicateKey)
	}
	return nil
}
