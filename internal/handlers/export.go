// internal/handlers/export.go
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ammerola/warehouse-crm/internal/adapters/spreadsheet"
	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
)

// ExportHandler streams the catalog as a spreadsheet
type ExportHandler struct {
	responder
	service  ports.CatalogService
	pageSize int
	now      func() time.Time
}

// NewExportHandler creates a new export handler. pageSize bounds each
// service read while the export walks the listing.
func NewExportHandler(service ports.CatalogService, pageSize int, logger *slog.Logger) *ExportHandler {
	if pageSize < 1 {
		pageSize = 100
	}
	return &ExportHandler{
		responder: responder{logger: logger.With(slog.String("handler", "export"))},
		service:   service,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

// ExportExcel handles GET /api/v1/catalog/export/excel. It accepts the
// same filters as the listing.
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := parseFilter(r)

	records, err := h.collect(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve catalog data",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	data, err := spreadsheet.WriteCatalog("Catalog", records)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate Excel file",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	filename := fmt.Sprintf("catalog_export_%s.xlsx", h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write Excel response",
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed",
		slog.Int("total_rows", len(records)),
		slog.String("filename", filename))
}

// collect walks every page of the filtered listing
func (h *ExportHandler) collect(ctx context.Context, filter domain.CatalogFilter) ([]*domain.CatalogRecord, error) {
	var records []*domain.CatalogRecord

	for page := 1; ; page++ {
		result, err := h.service.List(ctx, filter, page, h.pageSize)
		if err != nil {
			return nil, err
		}
		records = append(records, result.Records...)
		if page >= result.TotalPages || len(result.Records) == 0 {
			return records, nil
		}
	}
}
