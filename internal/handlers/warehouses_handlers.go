package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// WarehouseHandlers serves the storage hierarchy: locations, zones, units and
// positions, plus the capacity report of a location.
type WarehouseHandlers struct {
	warehouseService services.WarehouseService
	capacityService  services.CapacityService
}

func NewWarehouseHandlers(warehouseService services.WarehouseService, capacityService services.CapacityService) *WarehouseHandlers {
	return &WarehouseHandlers{
		warehouseService: warehouseService,
		capacityService:  capacityService,
	}
}

type LocationRequest struct {
	Name          string  `json:"name"`
	Address       *string `json:"address"`
	TotalCapacity float64 `json:"total_capacity"`
	CapacityUnit  string  `json:"capacity_unit"`
}

// ListWarehouses handles GET /api/warehouses
func (h *WarehouseHandlers) ListWarehouses(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	locations, err := h.warehouseService.ListLocations(c.Request().Context(), orgID, limit, offset)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"warehouses": locations,
		"limit":      limit,
		"offset":     offset,
	})
}

// CreateWarehouse handles POST /api/warehouses
func (h *WarehouseHandlers) CreateWarehouse(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	var req LocationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateOptionalString(req.Address, "address", 500); err != nil {
		return common.SendValidationError(c, "address", err.Error())
	}

	loc := &models.InventoryLocation{
		Name:          req.Name,
		Address:       req.Address,
		TotalCapacity: req.TotalCapacity,
		CapacityUnit:  req.CapacityUnit,
	}
	if err := h.warehouseService.CreateLocation(c.Request().Context(), orgID, loc); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, loc)
}

// GetWarehouse handles GET /api/warehouses/:id
func (h *WarehouseHandlers) GetWarehouse(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	loc, err := h.warehouseService.GetLocation(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, loc)
}

// UpdateWarehouse handles PUT /api/warehouses/:id
func (h *WarehouseHandlers) UpdateWarehouse(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req LocationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	loc := &models.InventoryLocation{
		ID:            id,
		Name:          req.Name,
		Address:       req.Address,
		TotalCapacity: req.TotalCapacity,
		CapacityUnit:  req.CapacityUnit,
	}
	if err := h.warehouseService.UpdateLocation(c.Request().Context(), orgID, loc); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, loc)
}

// DeleteWarehouse handles DELETE /api/warehouses/:id
func (h *WarehouseHandlers) DeleteWarehouse(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.warehouseService.DeleteLocation(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetCapacity handles GET /api/warehouses/:id/capacity
func (h *WarehouseHandlers) GetCapacity(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.capacityService.LocationReport(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// ListZones handles GET /api/warehouses/:id/zones
func (h *WarehouseHandlers) ListZones(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	locationID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	zones, err := h.warehouseService.ListZones(c.Request().Context(), orgID, locationID)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"zones": zones})
}

// CreateZone handles POST /api/warehouses/:id/zones
func (h *WarehouseHandlers) CreateZone(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	locationID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var zone models.StorageZone
	if err := bindBody(c, &zone); err != nil {
		return err
	}

	if err := h.warehouseService.CreateZone(c.Request().Context(), orgID, locationID, &zone); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, zone)
}

// GetZone handles GET /api/zones/:id
func (h *WarehouseHandlers) GetZone(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	zone, err := h.warehouseService.GetZone(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, zone)
}

// UpdateZone handles PUT /api/zones/:id
func (h *WarehouseHandlers) UpdateZone(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var zone models.StorageZone
	if err := bindBody(c, &zone); err != nil {
		return err
	}
	zone.ID = id

	updated, err := h.warehouseService.UpdateZone(c.Request().Context(), orgID, &zone)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteZone handles DELETE /api/zones/:id
func (h *WarehouseHandlers) DeleteZone(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.warehouseService.DeleteZone(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUnits handles GET /api/warehouses/:id/units
func (h *WarehouseHandlers) ListUnits(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	locationID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	units, err := h.warehouseService.ListUnits(c.Request().Context(), orgID, locationID)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"units": units})
}

// CreateUnit handles POST /api/warehouses/:id/units
func (h *WarehouseHandlers) CreateUnit(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	locationID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var unit models.StorageUnit
	if err := bindBody(c, &unit); err != nil {
		return err
	}

	if err := h.warehouseService.CreateUnit(c.Request().Context(), orgID, locationID, &unit); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, unit)
}

// GetUnit handles GET /api/units/:id
func (h *WarehouseHandlers) GetUnit(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	unit, err := h.warehouseService.GetUnit(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, unit)
}

// UpdateUnit handles PUT /api/units/:id
func (h *WarehouseHandlers) UpdateUnit(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var unit models.StorageUnit
	if err := bindBody(c, &unit); err != nil {
		return err
	}
	unit.ID = id

	updated, err := h.warehouseService.UpdateUnit(c.Request().Context(), orgID, &unit)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteUnit handles DELETE /api/units/:id
func (h *WarehouseHandlers) DeleteUnit(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.warehouseService.DeleteUnit(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPositions handles GET /api/units/:id/positions
func (h *WarehouseHandlers) ListPositions(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	unitID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	positions, err := h.warehouseService.ListPositions(c.Request().Context(), orgID, unitID)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"positions": positions})
}

// CreatePosition handles POST /api/units/:id/positions
func (h *WarehouseHandlers) CreatePosition(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	unitID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var pos models.StoragePosition
	if err := bindBody(c, &pos); err != nil {
		return err
	}

	if err := h.warehouseService.CreatePosition(c.Request().Context(), orgID, unitID, &pos); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, pos)
}

// GetPosition handles GET /api/positions/:id
func (h *WarehouseHandlers) GetPosition(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	pos, err := h.warehouseService.GetPosition(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pos)
}

// UpdatePosition handles PUT /api/positions/:id. Only the name can change.
func (h *WarehouseHandlers) UpdatePosition(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := bindBody(c, &req); err != nil {
		return err
	}

	pos, err := h.warehouseService.RenamePosition(c.Request().Context(), orgID, id, req.Name)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pos)
}

// DeletePosition handles DELETE /api/positions/:id. Occupied positions are refused.
func (h *WarehouseHandlers) DeletePosition(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.warehouseService.DeletePosition(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
