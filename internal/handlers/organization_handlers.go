package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// OrganizationHandlers serves the settings of the caller's organization.
type OrganizationHandlers struct {
	organizationService services.OrganizationService
}

func NewOrganizationHandlers(organizationService services.OrganizationService) *OrganizationHandlers {
	return &OrganizationHandlers{organizationService: organizationService}
}

// GetSettings handles GET /api/organization/settings. The effective checkout
// rates are included so the till can show them before a sale.
func (h *OrganizationHandlers) GetSettings(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	settings, err := h.organizationService.GetSettings(ctx, orgID)
	if err != nil {
		return common.HTTPError(err)
	}
	rates, err := h.organizationService.Rates(ctx, orgID)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"settings":        settings,
		"effective_rates": rates,
	})
}

// UpdateSettings handles PUT /api/organization/settings
func (h *OrganizationHandlers) UpdateSettings(c echo.Context) error {
	orgID, userID, err := identity(c)
	if err != nil {
		return err
	}
	var settings models.OrganizationSettings
	if err := bindBody(c, &settings); err != nil {
		return err
	}

	updated, err := h.organizationService.UpdateSettings(c.Request().Context(), orgID, userID, settings)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
