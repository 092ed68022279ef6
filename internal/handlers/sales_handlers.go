package handlers

import (
	"fmt"
	"io"
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxCallbackBody bounds the Daraja callback payload.
const maxCallbackBody = 64 << 10

// SalesHandlers serves point-of-sale checkout, sale history and receipts.
type SalesHandlers struct {
	salesService services.SalesService
	log          *zap.Logger
}

func NewSalesHandlers(salesService services.SalesService, log *zap.Logger) *SalesHandlers {
	return &SalesHandlers{salesService: salesService, log: log}
}

// CreateSale handles POST /api/sales. Mobile money sales respond once the
// payment is confirmed, declined or times out.
func (h *SalesHandlers) CreateSale(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	var req models.CreateSaleRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	sale, err := h.salesService.CreateSale(c.Request().Context(), orgID, userID, &req)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sale)
}

// ListSales handles GET /api/sales?from&to&status&limit&offset
func (h *SalesHandlers) ListSales(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	filter := &models.SaleFilter{Status: c.QueryParam("status")}
	if filter.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		return err
	}
	if filter.Limit, err = queryInt(c, "limit", 0); err != nil {
		return err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return err
	}

	sales, err := h.salesService.ListSales(c.Request().Context(), orgID, filter)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sales":  sales,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetSale handles GET /api/sales/:id
func (h *SalesHandlers) GetSale(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	sale, err := h.salesService.GetSale(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sale)
}

// GetReceipt handles GET /api/sales/:id/receipt as a PDF.
func (h *SalesHandlers) GetReceipt(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	receipt, err := h.salesService.Receipt(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	pdf, err := renderReceiptPDF(receipt)
	if err != nil {
		h.log.Error("receipt render failed", zap.Stringer("sale_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render receipt")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", receipt.Sale.ReceiptNumber+".pdf"))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// MPesaCallback handles POST /api/payments/mpesa/callback from Daraja. It is
// unauthenticated; Daraja only needs a 200 with ResultCode 0 to stop retrying.
func (h *SalesHandlers) MPesaCallback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	if err := h.salesService.HandleMPesaCallback(c.Request().Context(), body); err != nil {
		h.log.Warn("mpesa callback rejected", zap.Error(err))
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}
