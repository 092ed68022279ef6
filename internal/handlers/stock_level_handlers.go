package handlers

import (
	"fmt"
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StockLevelHandlers struct {
	stockLevelService services.StockLevelService
}

func NewStockLevelHandlers(stockLevelService services.StockLevelService) *StockLevelHandlers {
	return &StockLevelHandlers{stockLevelService: stockLevelService}
}

func stockLevelFilter(c echo.Context) (*models.StockLevelFilter, error) {
	var err error
	f := &models.StockLevelFilter{
		Category:  c.QueryParam("category"),
		Status:    c.QueryParam("status"),
		Search:    common.SanitizeSearchQuery(c.QueryParam("search")),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	if f.WarehouseID, err = queryUUID(c, "warehouseId"); err != nil {
		return nil, err
	}
	if f.Page, err = queryInt(c, "page", 1); err != nil {
		return nil, err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return nil, err
	}
	return f, nil
}

// ListStockLevels handles GET /api/stock/levels
func (h *StockLevelHandlers) ListStockLevels(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := stockLevelFilter(c)
	if err != nil {
		return err
	}

	page, err := h.stockLevelService.List(c.Request().Context(), orgID, filter)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// ExportStockLevels handles GET /api/stock/levels/export as an XLSX download.
func (h *StockLevelHandlers) ExportStockLevels(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := stockLevelFilter(c)
	if err != nil {
		return err
	}

	f, filename, err := h.stockLevelService.Export(c.Request().Context(), orgID, filter)
	if err != nil {
		return common.HTTPError(err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render workbook")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
