//go:build integration
// +build integration

package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ammerola/warehouse-crm/internal/adapters/mongostore"
	"github.com/ammerola/warehouse-crm/internal/adapters/storetest"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/test/helpers"
)

func TestCatalogStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tm := helpers.SetupTestMongo(t)
	coll := tm.Database.Collection("catalog_records")
	require.NoError(t, mongostore.EnsureIndexes(context.Background(), coll))

	store := mongostore.NewCatalogStore(coll, helpers.TestLogger())

	storetest.RunCatalogStoreContract(t, func(t *testing.T) ports.CatalogStore {
		_, err := coll.DeleteMany(context.Background(), bson.M{})
		require.NoError(t, err)
		return store
	})
}

func TestCatalogStore_TiesKeepInsertionOrderAcrossStores(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	tm := helpers.SetupTestMongo(t)
	coll := tm.Database.Collection("catalog_ties")
	require.NoError(t, mongostore.EnsureIndexes(ctx, coll))

	// Separate stores stand in for the api and worker processes
	api := mongostore.NewCatalogStore(coll, helpers.TestLogger())
	worker := mongostore.NewCatalogStore(coll, helpers.TestLogger())

	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	skus := []string{"TIE-1", "TIE-2", "TIE-3", "TIE-4"}
	for i, sku := range skus {
		target := api
		if i%2 == 1 {
			target = worker
		}
		require.NoError(t, target.Insert(ctx, helpers.CreateTestCatalogRecord(func(r *domain.CatalogRecord) {
			r.SKU = sku
			r.CreatedAt = stamp
			r.UpdatedAt = stamp
		})))
	}

	got, err := api.Find(ctx, domain.CatalogFilter{}, ports.FindOptions{})
	require.NoError(t, err)

	gotSKUs := make([]string, 0, len(got))
	for _, r := range got {
		gotSKUs = append(gotSKUs, r.SKU)
	}
	assert.Equal(t, skus, gotSKUs)
}
