package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// InventoryHandlers serves stock batches: receipt, listing and moves.
type InventoryHandlers struct {
	inventoryService services.InventoryService
}

func NewInventoryHandlers(inventoryService services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{inventoryService: inventoryService}
}

// ReceiveStock handles POST /api/stock/batches
func (h *InventoryHandlers) ReceiveStock(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	var req models.ReceiveStockRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	batch, err := h.inventoryService.ReceiveStock(c.Request().Context(), orgID, userID, &req)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, batch)
}

// MoveBatch handles POST /api/stock/batches/:id/move
func (h *InventoryHandlers) MoveBatch(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	batchID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req models.MoveRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	req.OrganizationID = orgID
	req.ActorID = userID
	req.StockBatchID = batchID

	result, err := h.inventoryService.MoveBatch(c.Request().Context(), req)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetBatch handles GET /api/stock/batches/:id
func (h *InventoryHandlers) GetBatch(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	batch, err := h.inventoryService.GetBatch(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, batch)
}

// ListBatches handles GET /api/stock/batches?location_id&product_id&only_active
func (h *InventoryHandlers) ListBatches(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	filter := &models.BatchFilter{OnlyActive: c.QueryParam("only_active") == "true"}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return err
	}
	if filter.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return err
	}
	if filter.Limit, filter.Offset, err = pagination(c); err != nil {
		return err
	}

	batches, err := h.inventoryService.ListBatches(c.Request().Context(), orgID, filter)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"batches": batches,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}
