// cmd/seeder/generate.go
package main

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
)

var seedCategories = []string{"packaging", "hardware", "electrical", "safety", "cleaning", "office"}

var seedAisles = []string{"A", "B", "C", "D", "E"}

// generateInputs builds count catalog inputs. A fixed seed yields the same catalog.
func generateInputs(count int, seed uint64) []domain.CatalogInput {
	f := gofakeit.New(seed)

	inputs := make([]domain.CatalogInput, 0, count)
	for i := 0; i < count; i++ {
		active := f.Number(1, 10) > 1
		minimum := f.Number(5, 50)
		inputs = append(inputs, domain.CatalogInput{
			Name:         f.ProductName(),
			SKU:          fmt.Sprintf("SEED-%05d", i+1),
			Description:  f.Sentence(10),
			Category:     f.RandomString(seedCategories),
			Price:        decimal.NewFromFloat(f.Price(1, 500)).Round(2),
			Quantity:     f.Number(0, minimum*4),
			MinimumStock: minimum,
			Location:     fmt.Sprintf("%s-%02d-%d", f.RandomString(seedAisles), f.Number(1, 20), f.Number(1, 5)),
			Supplier:     f.Company(),
			ImageURL:     f.URL(),
			IsActive:     &active,
		})
	}
	return inputs
}
