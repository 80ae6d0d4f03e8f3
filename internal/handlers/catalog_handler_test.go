// internal/handlers/catalog_handler_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"github.com/ammerola/warehouse-crm/internal/handlers"
	"github.com/ammerola/warehouse-crm/test/helpers"
	"github.com/ammerola/warehouse-crm/test/mocks"
)

func decodeMessage(t *testing.T, body []byte) string {
	t.Helper()
	var response handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return response.Message
}

func TestCatalogHandler_GetCatalogRecord(t *testing.T) {
	record := helpers.CreateTestCatalogRecord()

	tests := []struct {
		name           string
		id             string
		setupMocks     func(*mocks.MockCatalogService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_retrieves_record",
			id:   record.ID.String(),
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().GetByID(gomock.Any(), record.ID).Return(record, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.CatalogRecord
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, record.ID, response.ID)
				assert.Equal(t, record.SKU, response.SKU)
				assert.True(t, record.Price.Equal(response.Price))
			},
		},
		{
			name:           "invalid_uuid_format",
			id:             "not-a-uuid",
			setupMocks:     func(m *mocks.MockCatalogService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body []byte) {
				assert.Equal(t, "Invalid catalog record ID format", decodeMessage(t, body))
			},
		},
		{
			name: "record_not_found",
			id:   record.ID.String(),
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().GetByID(gomock.Any(), record.ID).
					Return(nil, fmt.Errorf("catalog record %s: %w", record.ID, domain.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			validateBody: func(t *testing.T, body []byte) {
				assert.Equal(t, "Catalog record not found", decodeMessage(t, body))
			},
		},
		{
			name: "service_error_hides_detail",
			id:   record.ID.String(),
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().GetByID(gomock.Any(), record.ID).
					Return(nil, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body []byte) {
				assert.Equal(t, "Internal server error", decodeMessage(t, body))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockCatalogService(ctrl)
			handler := handlers.NewCatalogHandler(mockService, 100, helpers.TestLogger())

			tt.setupMocks(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.GetCatalogRecord(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			tt.validateBody(t, w.Body.Bytes())
		})
	}
}

func TestCatalogHandler_ListCatalog_QueryParsing(t *testing.T) {
	active := true

	tests := []struct {
		name          string
		query         string
		expectFilter  domain.CatalogFilter
		expectedPage  int
		expectedLimit int
	}{
		{
			name:          "defaults",
			query:         "",
			expectedPage:  1,
			expectedLimit: 10,
		},
		{
			name:          "malformed_numbers_fall_back",
			query:         "?page=abc&limit=-4",
			expectedPage:  1,
			expectedLimit: 10,
		},
		{
			name:          "limit_is_capped",
			query:         "?page=3&limit=500",
			expectedPage:  3,
			expectedLimit: 100,
		},
		{
			name:          "filters",
			query:         "?isActive=true&category=tools&keyword=wrench",
			expectFilter:  domain.CatalogFilter{IsActive: &active, Category: "tools", Keyword: "wrench"},
			expectedPage:  1,
			expectedLimit: 10,
		},
		{
			name:          "malformed_active_flag_is_ignored",
			query:         "?isActive=maybe",
			expectedPage:  1,
			expectedLimit: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockCatalogService(ctrl)
			handler := handlers.NewCatalogHandler(mockService, 100, helpers.TestLogger())

			mockService.EXPECT().
				List(gomock.Any(), tt.expectFilter, tt.expectedPage, tt.expectedLimit).
				Return(&ports.QueryPage{
					Records: []*domain.CatalogRecord{},
					Page:    tt.expectedPage,
					Limit:   tt.expectedLimit,
				}, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.ListCatalog(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestCatalogHandler_CreateCatalogRecord(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockCatalogService)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "creates_record",
			body: `{"name":"Pallet Jack","sku":"PJ-1","category":"equipment","price":"349.00","quantity":2,"minimumStock":1}`,
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ any, in domain.CatalogInput) (*domain.CatalogRecord, error) {
						r := in.ToRecord()
						r.PrepareForStorage(time.Now())
						return r, nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed_body",
			body:           `{"name":`,
			setupMocks:     func(m *mocks.MockCatalogService) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid request body",
		},
		{
			name: "duplicate_sku",
			body: `{"name":"Pallet Jack","sku":"PJ-1","category":"equipment"}`,
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("sku %q: %w", "PJ-1", domain.ErrDuplicateKey))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    domain.ErrDuplicateKey.Error(),
		},
		{
			name: "validation_error",
			body: `{"name":"Pallet Jack","sku":"PJ-1","category":"equipment","quantity":-1}`,
			setupMocks: func(m *mocks.MockCatalogService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.NewValidationError("quantity", "cannot be negative"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "quantity cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockCatalogService(ctrl)
			handler := handlers.NewCatalogHandler(mockService, 100, helpers.TestLogger())

			tt.setupMocks(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreateCatalogRecord(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, decodeMessage(t, w.Body.Bytes()))
			}
		})
	}
}

func TestCatalogHandler_UpdateCatalogRecord_PassesExplicitZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockCatalogService(ctrl)
	handler := handlers.NewCatalogHandler(mockService, 100, helpers.TestLogger())

	id := uuid.New()
	mockService.EXPECT().
		Update(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ any, _ uuid.UUID, patch domain.CatalogPatch) (*domain.CatalogRecord, error) {
			require.NotNil(t, patch.Quantity)
			assert.Equal(t, 0, *patch.Quantity)
			require.NotNil(t, patch.Price)
			assert.True(t, patch.Price.Equal(decimal.Zero))
			assert.Nil(t, patch.Name)
			return helpers.CreateTestCatalogRecord(func(r *domain.CatalogRecord) {
				r.ID = id
				r.Quantity = 0
				r.Price = decimal.Zero
			}), nil
		})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/catalog/"+id.String(),
		bytes.NewBufferString(`{"quantity":0,"price":0}`))
	req.SetPathValue("id", id.String())
	w := httptest.NewRecorder()

	handler.UpdateCatalogRecord(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogHandler_DeleteCatalogRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockCatalogService(ctrl)
	handler := handlers.NewCatalogHandler(mockService, 100, helpers.TestLogger())

	id := uuid.New()
	missing := uuid.New()
	mockService.EXPECT().Delete(gomock.Any(), id).Return(nil)
	mockService.EXPECT().Delete(gomock.Any(), missing).
		Return(fmt.Errorf("catalog record %s: %w", missing, domain.ErrNotFound))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/"+id.String(), nil)
	req.SetPathValue("id", id.String())
	w := httptest.NewRecorder()
	handler.DeleteCatalogRecord(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id.String(), body["id"])
	assert.NotEmpty(t, body["message"])

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/"+missing.String(), nil)
	req.SetPathValue("id", missing.String())
	w = httptest.NewRecorder()
	handler.DeleteCatalogRecord(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// newCatalogServer serves the catalog routes over a real service and an
// in-memory store
func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := helpers.TestLogger()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	service := services.NewCatalogService(memstore.New(), logger, services.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	srv := httptest.NewServer(handlers.NewRouter(handlers.Routes{
		Catalog: handlers.NewCatalogHandler(service, 100, logger),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestCatalogRoutes_Workflow(t *testing.T) {
	srv := newCatalogServer(t)
	base := srv.URL + "/api/v1/catalog"

	var created domain.CatalogRecord
	status := doJSON(t, http.MethodPost, base,
		`{"name":"Widget","sku":"W-1","category":"parts","price":"2.50","quantity":10,"minimumStock":5}`, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, created.IsActive)

	var dup handlers.ErrorResponse
	status = doJSON(t, http.MethodPost, base,
		`{"name":"Widget copy","sku":"W-1","category":"parts"}`, &dup)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.ErrDuplicateKey.Error(), dup.Message)

	var updated domain.CatalogRecord
	status = doJSON(t, http.MethodPut, base+"/"+created.ID.String(), `{"quantity":0}`, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, "Widget", updated.Name)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	var low []domain.CatalogRecord
	status = doJSON(t, http.MethodGet, base+"/low-stock", "", &low)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, low, 1)
	assert.Equal(t, "W-1", low[0].SKU)

	var page ports.QueryPage
	status = doJSON(t, http.MethodGet, base+"?keyword=widg&limit=abc", "", &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Equal(t, 10, page.Limit)

	status = doJSON(t, http.MethodDelete, base+"/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, status)

	var notFound handlers.ErrorResponse
	status = doJSON(t, http.MethodGet, base+"/"+created.ID.String(), "", &notFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Catalog record not found", notFound.Message)

	status = doJSON(t, http.MethodPost, base,
		`{"name":"Widget again","sku":"W-1","category":"parts"}`, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestCatalogRoutes_PaginationOrder(t *testing.T) {
	srv := newCatalogServer(t)
	base := srv.URL + "/api/v1/catalog"

	for i := 1; i <= 5; i++ {
		status := doJSON(t, http.MethodPost, base,
			fmt.Sprintf(`{"name":"Item %d","sku":"SKU-%d","category":"bulk"}`, i, i), nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var page ports.QueryPage
	status := doJSON(t, http.MethodGet, base+"?page=2&limit=2", "", &page)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "SKU-3", page.Records[0].SKU)
	assert.Equal(t, "SKU-2", page.Records[1].SKU)
}
