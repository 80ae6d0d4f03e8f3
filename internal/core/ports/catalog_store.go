// internal/core/ports/catalog_store.go
package ports

import (
	"context"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/google/uuid"
)

// FindOptions bounds a Find call. A zero Limit means no limit.
type FindOptions struct {
	Skip  int
	Limit int
}

// CatalogStore defines the persistence port for catalog records.
// Implementations order Find results by updatedAt descending, ties in
// insertion order, and enforce sku uniqueness themselves by returning
// domain.ErrDuplicateKey.
type CatalogStore interface {
	Find(ctx context.Context, filter domain.CatalogFilter, opts FindOptions) ([]*domain.CatalogRecord, error)
	Count(ctx context.Context, filter domain.CatalogFilter) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
	FindBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error)
	FindLowStock(ctx context.Context) ([]*domain.CatalogRecord, error)
	Insert(ctx context.Context, record *domain.CatalogRecord) error
	UpdateOne(ctx context.Context, record *domain.CatalogRecord) error
	DeleteOne(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}
