package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// SupplierHandlers handles supplier-related HTTP requests
type SupplierHandlers struct {
	supplierService services.SupplierService
}

// NewSupplierHandlers creates a new supplier handlers instance
func NewSupplierHandlers(supplierService services.SupplierService) *SupplierHandlers {
	return &SupplierHandlers{supplierService: supplierService}
}

// SupplierRequest is the create and update payload
type SupplierRequest struct {
	Name         string  `json:"name"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Address      *string `json:"address"`
	TaxPIN       *string `json:"tax_pin"`
}

func (r *SupplierRequest) validate() (string, error) {
	fields := []struct {
		name  string
		value *string
		max   int
	}{
		{"contact_name", r.ContactName, 100},
		{"contact_email", r.ContactEmail, 255},
		{"contact_phone", r.ContactPhone, 20},
		{"address", r.Address, 500},
		{"tax_pin", r.TaxPIN, 20},
	}
	for _, f := range fields {
		if err := common.ValidateOptionalString(f.value, f.name, f.max); err != nil {
			return f.name, err
		}
	}
	return "", nil
}

func (r *SupplierRequest) supplier() *models.Supplier {
	return &models.Supplier{
		Name:         r.Name,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Address:      r.Address,
		TaxPIN:       r.TaxPIN,
	}
}

// ListSuppliers handles GET /api/suppliers
func (h *SupplierHandlers) ListSuppliers(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	suppliers, err := h.supplierService.List(c.Request().Context(), orgID, limit, offset)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"suppliers": suppliers,
		"limit":     limit,
		"offset":    offset,
	})
}

// CreateSupplier handles POST /api/suppliers
func (h *SupplierHandlers) CreateSupplier(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	var req SupplierRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if field, err := req.validate(); err != nil {
		return common.SendValidationError(c, field, err.Error())
	}

	supplier := req.supplier()
	if err := h.supplierService.Create(c.Request().Context(), orgID, supplier); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, supplier)
}

// GetSupplier handles GET /api/suppliers/:id
func (h *SupplierHandlers) GetSupplier(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	supplier, err := h.supplierService.GetByID(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// UpdateSupplier handles PUT /api/suppliers/:id
func (h *SupplierHandlers) UpdateSupplier(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req SupplierRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if field, err := req.validate(); err != nil {
		return common.SendValidationError(c, field, err.Error())
	}

	supplier := req.supplier()
	supplier.ID = id
	if err := h.supplierService.Update(c.Request().Context(), orgID, supplier); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier handles DELETE /api/suppliers/:id
func (h *SupplierHandlers) DeleteSupplier(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.supplierService.Delete(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
