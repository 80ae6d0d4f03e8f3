package services_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/warehouse-crm/internal/adapters/memstore"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/core/services"
	"github.com/ammerola/warehouse-crm/test/helpers"
	"github.com/ammerola/warehouse-crm/test/mocks"
)

// tickingClock returns a time source that advances one second per call
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newMemService(t *testing.T) (*services.CatalogService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return services.NewCatalogService(store, helpers.TestLogger(), services.WithClock(tickingClock())), store
}

func mustCreate(t *testing.T, svc *services.CatalogService, overrides ...func(*domain.CatalogInput)) *domain.CatalogRecord {
	t.Helper()
	r, err := svc.Create(context.Background(), helpers.CreateTestCatalogInput(overrides...))
	require.NoError(t, err)
	return r
}

func skusOf(records []*domain.CatalogRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.SKU)
	}
	return out
}

func TestCatalogService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemService(t)

	mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A1"; in.Category = "X"; in.Name = "Shrink wrap" })
	mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A2"; in.Category = "X"; in.Name = "Pallet label" })
	mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "B1"; in.Category = "Y"; in.Name = "Forklift battery" })

	inactive := false

	tests := []struct {
		name      string
		filter    domain.CatalogFilter
		page      int
		limit     int
		wantSKUs  []string
		wantPage  int
		wantPages int
		wantTotal int64
	}{
		{
			name:      "category_filter_returns_matching_only",
			filter:    domain.CatalogFilter{Category: "X"},
			page:      1,
			limit:     10,
			wantSKUs:  []string{"A2", "A1"},
			wantPage:  1,
			wantPages: 1,
			wantTotal: 2,
		},
		{
			name:      "second_page_of_one",
			filter:    domain.CatalogFilter{},
			page:      2,
			limit:     1,
			wantSKUs:  []string{"A2"},
			wantPage:  2,
			wantPages: 3,
			wantTotal: 3,
		},
		{
			name:      "page_past_end_is_empty",
			filter:    domain.CatalogFilter{},
			page:      9,
			limit:     2,
			wantSKUs:  []string{},
			wantPage:  9,
			wantPages: 2,
			wantTotal: 3,
		},
		{
			name:      "page_whose_offset_overflows_is_empty",
			filter:    domain.CatalogFilter{},
			page:      math.MaxInt64/100 + 2,
			limit:     100,
			wantSKUs:  []string{},
			wantPage:  math.MaxInt64/100 + 2,
			wantPages: 1,
			wantTotal: 3,
		},
		{
			name:      "keyword_matches_name_case_insensitively",
			filter:    domain.CatalogFilter{Keyword: "PALLET"},
			page:      1,
			limit:     10,
			wantSKUs:  []string{"A2"},
			wantPage:  1,
			wantPages: 1,
			wantTotal: 1,
		},
		{
			name:      "inactive_filter_matches_nothing",
			filter:    domain.CatalogFilter{IsActive: &inactive},
			page:      1,
			limit:     10,
			wantSKUs:  []string{},
			wantPage:  1,
			wantPages: 0,
			wantTotal: 0,
		},
		{
			name:      "invalid_page_and_limit_fall_back_to_defaults",
			filter:    domain.CatalogFilter{},
			page:      0,
			limit:     -5,
			wantSKUs:  []string{"B1", "A2", "A1"},
			wantPage:  services.DefaultPage,
			wantPages: 1,
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.List(ctx, tt.filter, tt.page, tt.limit)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSKUs, skusOf(result.Records))
			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, tt.wantPages, result.TotalPages)
			assert.Equal(t, tt.wantTotal, result.TotalCount)
		})
	}
}

func TestCatalogService_List_UpdatedRecordMovesToFront(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemService(t)

	first := mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A1" })
	mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A2" })

	name := "Renamed"
	_, err := svc.Update(ctx, first.ID, domain.CatalogPatch{Name: &name})
	require.NoError(t, err)

	result, err := svc.List(ctx, domain.CatalogFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, skusOf(result.Records))
}

func TestCatalogService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("sets_timestamps_and_active", func(t *testing.T) {
		svc, _ := newMemService(t)
		r := mustCreate(t, svc)

		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.True(t, r.IsActive)
		assert.False(t, r.CreatedAt.IsZero())
		assert.Equal(t, r.CreatedAt, r.UpdatedAt)
	})

	t.Run("duplicate_sku_rejected_and_existing_untouched", func(t *testing.T) {
		svc, _ := newMemService(t)
		existing := mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A1"; in.Name = "Original" })

		_, err := svc.Create(ctx, helpers.CreateTestCatalogInput(func(in *domain.CatalogInput) {
			in.SKU = "A1"
			in.Name = "Impostor"
		}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDuplicateKey))

		got, err := svc.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Name)
		assert.Equal(t, existing.UpdatedAt, got.UpdatedAt)
	})

	t.Run("validation_error_for_negative_price", func(t *testing.T) {
		svc, _ := newMemService(t)
		_, err := svc.Create(ctx, helpers.CreateTestCatalogInput(func(in *domain.CatalogInput) {
			in.Price = decimal.NewFromInt(-1)
		}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "price", verr.Field)
	})

	t.Run("explicitly_inactive", func(t *testing.T) {
		svc, _ := newMemService(t)
		inactive := false
		r := mustCreate(t, svc, func(in *domain.CatalogInput) { in.IsActive = &inactive })
		assert.False(t, r.IsActive)
	})
}

func TestCatalogService_Create_LateDuplicateFromStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockCatalogStore(ctrl)
	svc := services.NewCatalogService(store, helpers.TestLogger())

	// Pre-check passes, then another writer wins the race.
	store.EXPECT().
		FindBySKU(gomock.Any(), "RACE-1").
		Return(nil, domain.ErrNotFound)
	store.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(domain.ErrDuplicateKey)

	_, err := svc.Create(context.Background(), helpers.CreateTestCatalogInput(func(in *domain.CatalogInput) {
		in.SKU = "RACE-1"
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateKey))
}

func TestCatalogService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit_zero_quantity_overwrites", func(t *testing.T) {
		svc, _ := newMemService(t)
		r := mustCreate(t, svc, func(in *domain.CatalogInput) { in.Quantity = 40 })

		zero := 0
		updated, err := svc.Update(ctx, r.ID, domain.CatalogPatch{Quantity: &zero})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Quantity)

		got, err := svc.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Quantity)
		assert.True(t, got.UpdatedAt.After(r.UpdatedAt))
		assert.Equal(t, r.CreatedAt, got.CreatedAt)
	})

	t.Run("empty_patch_still_bumps_updated_at", func(t *testing.T) {
		svc, _ := newMemService(t)
		r := mustCreate(t, svc)

		updated, err := svc.Update(ctx, r.ID, domain.CatalogPatch{})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(r.UpdatedAt))
	})

	t.Run("not_found", func(t *testing.T) {
		svc, _ := newMemService(t)
		q := 1
		_, err := svc.Update(ctx, uuid.New(), domain.CatalogPatch{Quantity: &q})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("negative_minimum_stock_rejected", func(t *testing.T) {
		svc, _ := newMemService(t)
		r := mustCreate(t, svc)
		neg := -1
		_, err := svc.Update(ctx, r.ID, domain.CatalogPatch{MinimumStock: &neg})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("sku_change_colliding_with_other_record", func(t *testing.T) {
		svc, _ := newMemService(t)
		mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A1" })
		b := mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "B1" })

		sku := "A1"
		_, err := svc.Update(ctx, b.ID, domain.CatalogPatch{SKU: &sku})
		assert.True(t, errors.Is(err, domain.ErrDuplicateKey))
	})

	t.Run("sku_unchanged_is_not_a_collision", func(t *testing.T) {
		svc, _ := newMemService(t)
		a := mustCreate(t, svc, func(in *domain.CatalogInput) { in.SKU = "A1" })

		sku := "A1"
		_, err := svc.Update(ctx, a.ID, domain.CatalogPatch{SKU: &sku})
		assert.NoError(t, err)
	})
}

func TestCatalogService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemService(t)
	r := mustCreate(t, svc)

	require.NoError(t, svc.Delete(ctx, r.ID))

	_, err := svc.GetByID(ctx, r.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, r.ID), domain.ErrNotFound))
}

func TestCatalogService_LowStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemService(t)

	low := mustCreate(t, svc, func(in *domain.CatalogInput) {
		in.SKU = "LOW"
		in.Quantity = 5
		in.MinimumStock = 5
	})
	mustCreate(t, svc, func(in *domain.CatalogInput) {
		in.SKU = "HEALTHY"
		in.Quantity = 50
		in.MinimumStock = 5
	})

	records, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"LOW"}, skusOf(records))

	inactive := false
	_, err = svc.Update(ctx, low.ID, domain.CatalogPatch{IsActive: &inactive})
	require.NoError(t, err)

	records, err = svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestCatalogService_List_PastEndSkipsFind(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCatalogStore(ctrl)
	store.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(3), nil)
	store.EXPECT().Find(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := services.NewCatalogService(store, helpers.TestLogger())
	result, err := svc.List(context.Background(), domain.CatalogFilter{}, math.MaxInt, 10)
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.NotNil(t, result.Records)
	assert.Equal(t, 1, result.TotalPages)
	assert.EqualValues(t, 3, result.TotalCount)
}

func TestCatalogService_StoreErrorsAreWrapped(t *testing.T) {
	storeErr := errors.New("connection reset by peer")

	tests := []struct {
		name       string
		setupMocks func(*mocks.MockCatalogStore)
		call       func(svc *services.CatalogService) error
		contains   string
	}{
		{
			name: "list_count_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), storeErr)
			},
			call: func(svc *services.CatalogService) error {
				_, err := svc.List(context.Background(), domain.CatalogFilter{}, 1, 10)
				return err
			},
			contains: "failed to count catalog records",
		},
		{
			name: "list_find_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(13), nil)
				m.EXPECT().
					Find(gomock.Any(), gomock.Any(), ports.FindOptions{Skip: 10, Limit: 10}).
					Return(nil, storeErr)
			},
			call: func(svc *services.CatalogService) error {
				_, err := svc.List(context.Background(), domain.CatalogFilter{}, 2, 10)
				return err
			},
			contains: "failed to list catalog records",
		},
		{
			name: "get_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, storeErr)
			},
			call: func(svc *services.CatalogService) error {
				_, err := svc.GetByID(context.Background(), uuid.New())
				return err
			},
			contains: "failed to get catalog record",
		},
		{
			name: "sku_check_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().FindBySKU(gomock.Any(), gomock.Any()).Return(nil, storeErr)
			},
			call: func(svc *services.CatalogService) error {
				_, err := svc.Create(context.Background(), helpers.CreateTestCatalogInput())
				return err
			},
			contains: "failed to check sku",
		},
		{
			name: "delete_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().DeleteOne(gomock.Any(), gomock.Any()).Return(storeErr)
			},
			call: func(svc *services.CatalogService) error {
				return svc.Delete(context.Background(), uuid.New())
			},
			contains: "failed to delete catalog record",
		},
		{
			name: "low_stock_failure",
			setupMocks: func(m *mocks.MockCatalogStore) {
				m.EXPECT().FindLowStock(gomock.Any()).Return(nil, storeErr)
			},
			call: func(svc *services.CatalogService) error {
				_, err := svc.LowStock(context.Background())
				return err
			},
			contains: "failed to list low stock records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockCatalogStore(ctrl)
			tt.setupMocks(store)

			err := tt.call(services.NewCatalogService(store, helpers.TestLogger()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.True(t, errors.Is(err, storeErr))
			assert.False(t, errors.Is(err, domain.ErrNotFound))
		})
	}
}
