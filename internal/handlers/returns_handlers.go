package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

type ReturnsHandlers struct {
	returnsService services.ReturnsService
}

func NewReturnsHandlers(returnsService services.ReturnsService) *ReturnsHandlers {
	return &ReturnsHandlers{returnsService: returnsService}
}

type DecisionRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// CreateReturn handles POST /api/sales/returns
func (h *ReturnsHandlers) CreateReturn(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	var req models.CreateReturnRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ret, err := h.returnsService.CreateReturn(c.Request().Context(), orgID, userID, &req)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, ret)
}

// ListReturns handles GET /api/sales/returns?status&page&limit
func (h *ReturnsHandlers) ListReturns(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	filter := &models.ReturnFilter{Status: c.QueryParam("status")}
	if filter.Page, err = queryInt(c, "page", 1); err != nil {
		return err
	}
	if filter.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}

	returns, total, err := h.returnsService.ListReturns(c.Request().Context(), orgID, filter)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": returns,
		"page":  filter.Page,
		"limit": filter.Limit,
		"total": total,
	})
}

// GetReturn handles GET /api/returns/:id
func (h *ReturnsHandlers) GetReturn(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ret, err := h.returnsService.GetReturn(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ret)
}

// ApproveReturn handles POST /api/returns/:id/approve
func (h *ReturnsHandlers) ApproveReturn(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req DecisionRequest
	if c.Request().ContentLength != 0 {
		if err := bindBody(c, &req); err != nil {
			return err
		}
	}

	ret, err := h.returnsService.ApproveReturn(c.Request().Context(), orgID, userID, id, req.Note)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ret)
}

// RejectReturn handles POST /api/returns/:id/reject
func (h *ReturnsHandlers) RejectReturn(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req DecisionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ret, err := h.returnsService.RejectReturn(c.Request().Context(), orgID, userID, id, req.Reason)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ret)
}
