// Package storetest holds the behavioural contract every ports.CatalogStore
// implementation must satisfy. Adapters run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// Factory returns an empty store for one subtest
type Factory func(t *testing.T) ports.CatalogStore

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Record builds a valid record stamped at epoch plus offset seconds
func Record(sku string, offset int, opts ...func(*domain.CatalogRecord)) *domain.CatalogRecord {
	at := epoch.Add(time.Duration(offset) * time.Second)
	r := &domain.CatalogRecord{
		ID:           uuid.New(),
		Name:         "Item " + sku,
		SKU:          sku,
		Description:  "catalog entry " + sku,
		Category:     "general",
		Price:        decimal.RequireFromString("9.99"),
		Quantity:     10,
		MinimumStock: 2,
		IsActive:     true,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCatalogStoreContract exercises ordering, filtering, pagination,
// uniqueness and not-found semantics against a fresh store per subtest.
func RunCatalogStoreContract(t *testing.T, newStore Factory) {
	t.Run("insert_and_find", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := Record("SKU-1", 0, func(r *domain.CatalogRecord) { r.Price = decimal.RequireFromString("12.50") })
		require.NoError(t, s.Insert(ctx, r))

		byID, err := s.FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.SKU, byID.SKU)
		assert.True(t, r.Price.Equal(byID.Price))
		assert.True(t, r.UpdatedAt.Equal(byID.UpdatedAt))

		bySKU, err := s.FindBySKU(ctx, "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, r.ID, bySKU.ID)
	})

	t.Run("missing_records_are_not_found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.FindByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		_, err = s.FindBySKU(ctx, "NOPE")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		err = s.UpdateOne(ctx, Record("NOPE", 0))
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		err = s.DeleteOne(ctx, uuid.New())
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("duplicate_sku_rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, Record("DUP", 0)))

		err := s.Insert(ctx, Record("DUP", 1))
		assert.True(t, errors.Is(err, domain.ErrDuplicateKey), "got %v", err)

		n, err := s.Count(ctx, domain.CatalogFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("orders_by_updated_desc_then_insertion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, r := range []*domain.CatalogRecord{
			Record("OLD", 0),
			Record("TIE-1", 5),
			Record("NEW", 9),
			Record("TIE-2", 5),
		} {
			require.NoError(t, s.Insert(ctx, r))
		}

		got, err := s.Find(ctx, domain.CatalogFilter{}, ports.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"NEW", "TIE-1", "TIE-2", "OLD"}, skus(got))
	})

	t.Run("filters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, r := range []*domain.CatalogRecord{
			Record("A1", 1, func(r *domain.CatalogRecord) { r.Category = "X"; r.Name = "Shrink wrap" }),
			Record("A2", 2, func(r *domain.CatalogRecord) { r.Category = "X"; r.Name = "Pallet label" }),
			Record("B1", 3, func(r *domain.CatalogRecord) { r.Category = "Y"; r.IsActive = false }),
			Record("C1", 4, func(r *domain.CatalogRecord) { r.Description = "100% recycled" }),
		} {
			require.NoError(t, s.Insert(ctx, r))
		}

		tests := []struct {
			name   string
			filter domain.CatalogFilter
			want   []string
		}{
			{name: "all", filter: domain.CatalogFilter{}, want: []string{"C1", "B1", "A2", "A1"}},
			{name: "category", filter: domain.CatalogFilter{Category: "X"}, want: []string{"A2", "A1"}},
			{name: "inactive", filter: domain.CatalogFilter{IsActive: lo.ToPtr(false)}, want: []string{"B1"}},
			{name: "keyword_case_insensitive", filter: domain.CatalogFilter{Keyword: "PALLET"}, want: []string{"A2"}},
			{name: "keyword_matches_sku", filter: domain.CatalogFilter{Keyword: "b1"}, want: []string{"B1"}},
			{name: "keyword_is_literal", filter: domain.CatalogFilter{Keyword: "100%"}, want: []string{"C1"}},
			{name: "wildcard_matches_nothing", filter: domain.CatalogFilter{Keyword: "_%"}, want: []string{}},
			{name: "combined", filter: domain.CatalogFilter{Category: "X", Keyword: "wrap", IsActive: lo.ToPtr(true)}, want: []string{"A1"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.Find(ctx, tt.filter, ports.FindOptions{})
				require.NoError(t, err)
				assert.Equal(t, tt.want, skus(got))

				n, err := s.Count(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, int64(len(tt.want)), n)
			})
		}
	})

	t.Run("pagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Insert(ctx, Record(fmt.Sprintf("P%d", i), i)))
		}

		page, err := s.Find(ctx, domain.CatalogFilter{}, ports.FindOptions{Skip: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"P3", "P2"}, skus(page))

		past, err := s.Find(ctx, domain.CatalogFilter{}, ports.FindOptions{Skip: 10, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("update_overwrites_fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := Record("UPD", 0)
		require.NoError(t, s.Insert(ctx, r))

		r.Quantity = 0
		r.Price = decimal.Zero
		r.IsActive = false
		r.UpdatedAt = epoch.Add(time.Hour)
		require.NoError(t, s.UpdateOne(ctx, r))

		got, err := s.FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Quantity)
		assert.True(t, got.Price.IsZero())
		assert.False(t, got.IsActive)
		assert.True(t, got.UpdatedAt.Equal(r.UpdatedAt))
		assert.True(t, got.CreatedAt.Equal(epoch))
	})

	t.Run("update_to_taken_sku_rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a, b := Record("TAKEN", 0), Record("FREE", 1)
		require.NoError(t, s.Insert(ctx, a))
		require.NoError(t, s.Insert(ctx, b))

		b.SKU = "TAKEN"
		err := s.UpdateOne(ctx, b)
		assert.True(t, errors.Is(err, domain.ErrDuplicateKey), "got %v", err)

		got, err := s.FindBySKU(ctx, "FREE")
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	})

	t.Run("delete_frees_sku", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := Record("GONE", 0)
		require.NoError(t, s.Insert(ctx, r))
		require.NoError(t, s.DeleteOne(ctx, r.ID))

		_, err := s.FindByID(ctx, r.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		require.NoError(t, s.Insert(ctx, Record("GONE", 1)))
	})

	t.Run("low_stock", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, r := range []*domain.CatalogRecord{
			Record("LOW", 0, func(r *domain.CatalogRecord) { r.Quantity = 1; r.MinimumStock = 5 }),
			Record("EDGE", 1, func(r *domain.CatalogRecord) { r.Quantity = 5; r.MinimumStock = 5 }),
			Record("OK", 2, func(r *domain.CatalogRecord) { r.Quantity = 6; r.MinimumStock = 5 }),
			Record("RETIRED", 3, func(r *domain.CatalogRecord) { r.Quantity = 0; r.MinimumStock = 5; r.IsActive = false }),
		} {
			require.NoError(t, s.Insert(ctx, r))
		}

		got, err := s.FindLowStock(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"LOW", "EDGE"}, skus(got))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func skus(records []*domain.CatalogRecord) []string {
	return lo.Map(records, func(r *domain.CatalogRecord, _ int) string { return r.SKU })
}
