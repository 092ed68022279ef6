package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type MockStockLevelService struct {
	mock.Mock
}

func (m *MockStockLevelService) List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*models.StockLevelPage, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevelPage), args.Error(1)
}

func (m *MockStockLevelService) Export(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*excelize.File, string, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*excelize.File), args.String(1), args.Error(2)
}

func TestListStockLevels_BuildsFilter(t *testing.T) {
	orgID, warehouseID := uuid.New(), uuid.New()
	service := new(MockStockLevelService)
	h := NewStockLevelHandlers(service)

	c, rec := newRequestContext(http.MethodGet,
		"/api/stock/levels?warehouseId="+warehouseID.String()+"&status=low_stock&search=rice%25&sortBy=quantity&sortOrder=asc&page=2&limit=5",
		"", orgID, uuid.New())
	service.On("List", mock.Anything, orgID, mock.MatchedBy(func(f *models.StockLevelFilter) bool {
		return f.WarehouseID != nil && *f.WarehouseID == warehouseID &&
			f.Status == "low_stock" && f.Search == "rice" &&
			f.SortBy == "quantity" && f.SortOrder == "asc" &&
			f.Page == 2 && f.Limit == 5
	})).Return(&models.StockLevelPage{Items: []*models.StockLevel{}, Page: 2, Limit: 5, Total: 7}, nil)

	require.NoError(t, h.ListStockLevels(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"page":2,"limit":5,"total":7}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestListStockLevels_InvalidWarehouse(t *testing.T) {
	h := NewStockLevelHandlers(new(MockStockLevelService))
	c, _ := newRequestContext(http.MethodGet, "/api/stock/levels?warehouseId=main", "", uuid.New(), uuid.New())

	assert.Equal(t, http.StatusBadRequest, httpStatus(t, h.ListStockLevels(c)))
}

func TestExportStockLevels_Workbook(t *testing.T) {
	orgID := uuid.New()
	service := new(MockStockLevelService)
	h := NewStockLevelHandlers(service)

	wb := excelize.NewFile()
	require.NoError(t, wb.SetCellValue("Sheet1", "A1", "Product"))
	service.On("Export", mock.Anything, orgID, mock.Anything).Return(wb, "stock-levels.xlsx", nil)

	c, rec := newRequestContext(http.MethodGet, "/api/stock/levels/export", "", orgID, uuid.New())
	require.NoError(t, h.ExportStockLevels(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stock-levels.xlsx")
	// xlsx is a zip archive
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestExportStockLevels_ServiceError(t *testing.T) {
	orgID := uuid.New()
	service := new(MockStockLevelService)
	h := NewStockLevelHandlers(service)
	service.On("Export", mock.Anything, orgID, mock.Anything).Return(nil, "", errors.New("db down"))

	c, _ := newRequestContext(http.MethodGet, "/api/stock/levels/export", "", orgID, uuid.New())
	assert.Equal(t, http.StatusInternalServerError, httpStatus(t, h.ExportStockLevels(c)))
}
