// internal/core/ports/catalog_service.go
package ports

import (
	"context"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/google/uuid"
)

// CatalogService defines the application service port for the catalog.
type CatalogService interface {
	List(ctx context.Context, filter domain.CatalogFilter, page, limit int) (*QueryPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
	Create(ctx context.Context, input domain.CatalogInput) (*domain.CatalogRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.CatalogPatch) (*domain.CatalogRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context) ([]*domain.CatalogRecord, error)
}

// QueryPage holds one page of a catalog listing
type QueryPage struct {
	Records    []*domain.CatalogRecord `json:"records"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"totalPages"`
	TotalCount int64                   `json:"totalCount"`
}
