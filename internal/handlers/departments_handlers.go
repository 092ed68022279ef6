package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type DepartmentHandlers struct {
	departmentService services.DepartmentService
}

func NewDepartmentHandlers(departmentService services.DepartmentService) *DepartmentHandlers {
	return &DepartmentHandlers{departmentService: departmentService}
}

type DepartmentRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	ManagerID   *uuid.UUID `json:"manager_id"`
}

// ListDepartments handles GET /api/departments
func (h *DepartmentHandlers) ListDepartments(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	departments, err := h.departmentService.List(c.Request().Context(), orgID, limit, offset)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"departments": departments,
		"limit":       limit,
		"offset":      offset,
	})
}

// CreateDepartment handles POST /api/departments
func (h *DepartmentHandlers) CreateDepartment(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	var req DepartmentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateOptionalString(req.Description, "description", 500); err != nil {
		return common.SendValidationError(c, "description", err.Error())
	}

	dept := &models.Department{Name: req.Name, Description: req.Description, ManagerID: req.ManagerID}
	if err := h.departmentService.Create(c.Request().Context(), orgID, dept); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, dept)
}

// GetDepartment handles GET /api/departments/:id
func (h *DepartmentHandlers) GetDepartment(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	dept, err := h.departmentService.GetByID(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, dept)
}

// UpdateDepartment handles PUT /api/departments/:id
func (h *DepartmentHandlers) UpdateDepartment(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req DepartmentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateOptionalString(req.Description, "description", 500); err != nil {
		return common.SendValidationError(c, "description", err.Error())
	}

	dept := &models.Department{ID: id, Name: req.Name, Description: req.Description, ManagerID: req.ManagerID}
	if err := h.departmentService.Update(c.Request().Context(), orgID, dept); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, dept)
}

// DeleteDepartment handles DELETE /api/departments/:id
func (h *DepartmentHandlers) DeleteDepartment(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.departmentService.Delete(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
