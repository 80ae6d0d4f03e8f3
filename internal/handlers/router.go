// internal/handlers/router.go
package handlers

import (
	"net/http"
)

// Routes groups the handlers mounted by NewRouter. A nil handler leaves
// its routes unregistered.
type Routes struct {
	Catalog *CatalogHandler
	Export  *ExportHandler
	Jobs    *JobHandler
	Layout  *LayoutHandler
	Health  *HealthHandler
}

// NewRouter registers every API route on a ServeMux
func NewRouter(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Health)
		mux.HandleFunc("GET /ready", rt.Health.Readiness)
	}

	if rt.Catalog != nil {
		mux.HandleFunc("GET /api/v1/catalog", rt.Catalog.ListCatalog)
		mux.HandleFunc("POST /api/v1/catalog", rt.Catalog.CreateCatalogRecord)
		mux.HandleFunc("GET /api/v1/catalog/low-stock", rt.Catalog.LowStock)
		mux.HandleFunc("GET /api/v1/catalog/{id}", rt.Catalog.GetCatalogRecord)
		mux.HandleFunc("PUT /api/v1/catalog/{id}", rt.Catalog.UpdateCatalogRecord)
		mux.HandleFunc("DELETE /api/v1/catalog/{id}", rt.Catalog.DeleteCatalogRecord)
	}

	if rt.Export != nil {
		mux.HandleFunc("GET /api/v1/catalog/export/excel", rt.Export.ExportExcel)
	}

	if rt.Jobs != nil {
		mux.HandleFunc("POST /api/v1/catalog/import/excel", rt.Jobs.ImportExcel)
		mux.HandleFunc("POST /api/v1/catalog/low-stock/report", rt.Jobs.RequestLowStockReport)
		mux.HandleFunc("GET /api/v1/catalog/jobs/{id}", rt.Jobs.GetJobStatus)
	}

	if rt.Layout != nil {
		mux.HandleFunc("GET /api/v1/layout", rt.Layout.GetLayout)
		mux.HandleFunc("POST /api/v1/layout/render", rt.Layout.RenderLayout)
	}

	return mux
}
