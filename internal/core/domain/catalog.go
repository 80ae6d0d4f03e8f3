// internal/core/domain/catalog.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogRecord represents a product held in the warehouse catalog
type CatalogRecord struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	MinimumStock int             `json:"minimumStock"`
	Location     string          `json:"location,omitempty"`
	Supplier     string          `json:"supplier,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Validate performs domain validation on the catalog record
func (r *CatalogRecord) Validate() error {
	if r.Name == "" {
		return NewValidationError("name", "is required")
	}
	if r.SKU == "" {
		return NewValidationError("sku", "is required")
	}
	if r.Category == "" {
		return NewValidationError("category", "is required")
	}
	if r.Price.IsNegative() {
		return NewValidationError("price", "cannot be negative")
	}
	if r.Quantity < 0 {
		return NewValidationError("quantity", "cannot be negative")
	}
	if r.MinimumStock < 0 {
		return NewValidationError("minimumStock", "cannot be negative")
	}
	return nil
}

// Normalize trims surrounding whitespace from the text fields
func (r *CatalogRecord) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.SKU = strings.TrimSpace(r.SKU)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	r.Location = strings.TrimSpace(r.Location)
	r.Supplier = strings.TrimSpace(r.Supplier)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
}

// PrepareForStorage assigns an id and timestamps before the first insert
func (r *CatalogRecord) PrepareForStorage(now time.Time) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// IsLowStock reports whether the record needs reordering
func (r *CatalogRecord) IsLowStock() bool {
	return r.IsActive && r.Quantity <= r.MinimumStock
}

// CatalogInput carries the fields accepted when creating a record
type CatalogInput struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	MinimumStock int             `json:"minimumStock"`
	Location     string          `json:"location"`
	Supplier     string          `json:"supplier"`
	ImageURL     string          `json:"imageUrl"`
	IsActive     *bool           `json:"isActive,omitempty"`
}

// ToRecord builds an unsaved record, active unless the input says otherwise
func (in CatalogInput) ToRecord() *CatalogRecord {
	r := &CatalogRecord{
		Name:         in.Name,
		SKU:          in.SKU,
		Description:  in.Description,
		Category:     in.Category,
		Price:        in.Price,
		Quantity:     in.Quantity,
		MinimumStock: in.MinimumStock,
		Location:     in.Location,
		Supplier:     in.Supplier,
		ImageURL:     in.ImageURL,
		IsActive:     true,
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	r.Normalize()
	return r
}

// CatalogPatch is a partial update. A nil field is left untouched, so an
// explicit zero quantity or price still overwrites the stored value.
type CatalogPatch struct {
	Name         *string          `json:"name,omitempty"`
	SKU          *string          `json:"sku,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Quantity     *int             `json:"quantity,omitempty"`
	MinimumStock *int             `json:"minimumStock,omitempty"`
	Location     *string          `json:"location,omitempty"`
	Supplier     *string          `json:"supplier,omitempty"`
	ImageURL     *string          `json:"imageUrl,omitempty"`
	IsActive     *bool            `json:"isActive,omitempty"`
}

// Apply overwrites the fields present in the patch and stamps UpdatedAt
func (p CatalogPatch) Apply(r *CatalogRecord, now time.Time) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.SKU != nil {
		r.SKU = *p.SKU
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.MinimumStock != nil {
		r.MinimumStock = *p.MinimumStock
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.Supplier != nil {
		r.Supplier = *p.Supplier
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	r.Normalize()
	r.UpdatedAt = now
}

// CatalogFilter selects records for a listing. Nil or empty fields match everything.
type CatalogFilter struct {
	IsActive *bool  `json:"isActive,omitempty"`
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
}

// Matches evaluates the filter predicate against a record
func (f CatalogFilter) Matches(r *CatalogRecord) bool {
	if f.IsActive != nil && r.IsActive != *f.IsActive {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Keyword == "" {
		return true
	}
	kw := strings.ToLower(f.Keyword)
	return strings.Contains(strings.ToLower(r.Name), kw) ||
		strings.Contains(strings.ToLower(r.SKU), kw) ||
		strings.Contains(strings.ToLower(r.Description), kw)
}
