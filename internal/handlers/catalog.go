// internal/handlers/catalog.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/core/services"
)

const maxBodyBytes = 1 << 20

// CatalogHandler handles catalog-related HTTP requests
type CatalogHandler struct {
	responder
	service     ports.CatalogService
	maxPageSize int
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service ports.CatalogService, maxPageSize int, logger *slog.Logger) *CatalogHandler {
	if maxPageSize < 1 {
		maxPageSize = 100
	}
	return &CatalogHandler{
		responder:   responder{logger: logger.With(slog.String("handler", "catalog"))},
		service:     service,
		maxPageSize: maxPageSize,
	}
}

// ListCatalog handles GET /api/v1/catalog
func (h *CatalogHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, page, limit := h.parseListParams(r)

	result, err := h.service.List(ctx, filter, page, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list catalog records",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to list catalog records")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetCatalogRecord handles GET /api/v1/catalog/{id}
func (h *CatalogHandler) GetCatalogRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.respondServiceError(w, r, "failed to get catalog record", err)
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// CreateCatalogRecord handles POST /api/v1/catalog
func (h *CatalogHandler) CreateCatalogRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input domain.CatalogInput
	if err := decodeBody(w, r, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.service.Create(ctx, input)
	if err != nil {
		h.respondServiceError(w, r, "failed to create catalog record", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, record)
}

// UpdateCatalogRecord handles PUT /api/v1/catalog/{id}. Only the fields
// present in the body are changed.
func (h *CatalogHandler) UpdateCatalogRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var patch domain.CatalogPatch
	if err := decodeBody(w, r, &patch); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.service.Update(ctx, id, patch)
	if err != nil {
		h.respondServiceError(w, r, "failed to update catalog record", err)
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// DeleteCatalogRecord handles DELETE /api/v1/catalog/{id}
func (h *CatalogHandler) DeleteCatalogRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.respondServiceError(w, r, "failed to delete catalog record", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Catalog record deleted successfully",
		"id":      id.String(),
	})
}

// LowStock handles GET /api/v1/catalog/low-stock
func (h *CatalogHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.LowStock(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list low stock records",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to list low stock records")
		return
	}

	h.respondJSON(w, http.StatusOK, records)
}

// parseListParams reads the filter and pagination query parameters.
// Malformed numbers fall back to the defaults; limit is capped.
func (h *CatalogHandler) parseListParams(r *http.Request) (domain.CatalogFilter, int, int) {
	q := r.URL.Query()

	filter := parseFilter(r)

	page := services.DefaultPage
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	limit := services.DefaultLimit
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		limit = min(l, h.maxPageSize)
	}

	return filter, page, limit
}

func parseFilter(r *http.Request) domain.CatalogFilter {
	q := r.URL.Query()
	filter := domain.CatalogFilter{
		Category: q.Get("category"),
		Keyword:  q.Get("keyword"),
	}
	if active := q.Get("isActive"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.IsActive = &val
		}
	}
	return filter
}

func (h *CatalogHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid catalog record ID format")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps the catalog error kinds to status codes.
// Unclassified errors are logged and reported without their detail.
func (h *CatalogHandler) respondServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Catalog record not found")
	case errors.Is(err, domain.ErrDuplicateKey):
		h.respondError(w, http.StatusBadRequest, domain.ErrDuplicateKey.Error())
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, verr.Error())
	default:
		h.logger.ErrorContext(r.Context(), msg,
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
