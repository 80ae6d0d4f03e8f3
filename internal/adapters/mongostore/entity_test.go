package mongostore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
)

func TestEntityConversion(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &domain.CatalogRecord{
		ID:           uuid.New(),
		Name:         "Pallet Jack",
		SKU:          "PJ-100",
		Category:     "equipment",
		Price:        decimal.RequireFromString("349.99"),
		Quantity:     3,
		MinimumStock: 5,
		Location:     "A-01",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now.Add(time.Minute),
	}

	ent, err := entityFromModel(record)
	require.NoError(t, err)
	assert.Equal(t, record.ID.String(), ent.ID)
	assert.Equal(t, "349.99", ent.Price.String())

	back, err := entityToModel(ent)
	require.NoError(t, err)
	assert.Equal(t, record.ID, back.ID)
	assert.True(t, record.Price.Equal(back.Price))
	assert.Equal(t, record.UpdatedAt, back.UpdatedAt)
	assert.Equal(t, record.Location, back.Location)
}

func TestEntityToModel_RejectsBadID(t *testing.T) {
	_, err := entityToModel(&recordEntity{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.CatalogFilter
		want   bson.M
	}{
		{
			name:   "empty_matches_all",
			filter: domain.CatalogFilter{},
			want:   bson.M{},
		},
		{
			name:   "active_and_category",
			filter: domain.CatalogFilter{IsActive: lo.ToPtr(false), Category: "X"},
			want:   bson.M{"isActive": false, "category": "X"},
		},
		{
			name:   "keyword_is_quoted",
			filter: domain.CatalogFilter{Keyword: "a.b*"},
			want: bson.M{"$or": bson.A{
				bson.M{"name": bson.Regex{Pattern: `a\.b\*`, Options: "i"}},
				bson.M{"sku": bson.Regex{Pattern: `a\.b\*`, Options: "i"}},
				bson.M{"description": bson.Regex{Pattern: `a\.b\*`, Options: "i"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestListingSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "updatedAt", Value: -1}, {Key: "seq", Value: 1}}, listingSort())
}
