// internal/adapters/mongostore/entity.go
package mongostore

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
)

// recordEntity is the stored shape of a catalog record. Seq is drawn from the
// shared counter at insert time and orders records that share an updatedAt.
type recordEntity struct {
	ID           string          `bson:"_id"`
	Seq          int64           `bson:"seq"`
	Name         string          `bson:"name"`
	SKU          string          `bson:"sku"`
	Description  string          `bson:"description"`
	Category     string          `bson:"category"`
	Price        bson.Decimal128 `bson:"price"`
	Quantity     int             `bson:"quantity"`
	MinimumStock int             `bson:"minimumStock"`
	Location     string          `bson:"location,omitempty"`
	Supplier     string          `bson:"supplier,omitempty"`
	ImageURL     string          `bson:"imageUrl,omitempty"`
	IsActive     bool            `bson:"isActive"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

func entityFromModel(r *domain.CatalogRecord) (*recordEntity, error) {
	price, err := bson.ParseDecimal128(r.Price.String())
	if err != nil {
		return nil, err
	}

	return &recordEntity{
		ID:           r.ID.String(),
		Name:         r.Name,
		SKU:          r.SKU,
		Description:  r.Description,
		Category:     r.Category,
		Price:        price,
		Quantity:     r.Quantity,
		MinimumStock: r.MinimumStock,
		Location:     r.Location,
		Supplier:     r.Supplier,
		ImageURL:     r.ImageURL,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}, nil
}

func entityToModel(e *recordEntity) (*domain.CatalogRecord, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(e.Price.String())
	if err != nil {
		return nil, err
	}

	return &domain.CatalogRecord{
		ID:           id,
		Name:         e.Name,
		SKU:          e.SKU,
		Description:  e.Description,
		Category:     e.Category,
		Price:        price,
		Quantity:     e.Quantity,
		MinimumStock: e.MinimumStock,
		Location:     e.Location,
		Supplier:     e.Supplier,
		ImageURL:     e.ImageURL,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}, nil
}

// buildFilter translates a catalog filter into a query document. The keyword
// is quoted so it matches literally.
func buildFilter(f domain.CatalogFilter) bson.M {
	q := bson.M{}

	if f.IsActive != nil {
		q["isActive"] = *f.IsActive
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Keyword != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(f.Keyword), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"sku": re},
			bson.M{"description": re},
		}
	}

	return q
}

func lowStockFilter() bson.M {
	return bson.M{
		"isActive": true,
		"$expr":    bson.M{"$lte": bson.A{"$quantity", "$minimumStock"}},
	}
}

// listingSort orders by updatedAt desc, ties in insertion order
func listingSort() bson.D {
	return bson.D{{Key: "updatedAt", Value: -1}, {Key: "seq", Value: 1}}
}
