package handlers

import (
	"net/http"
	"strings"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit log HTTP requests
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService}
}

// ListAuditLogs handles GET /api/audit-logs?table_name&record_id&changed_by&limit&offset
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}

	filters := &models.AuditLogFilters{}
	if table := strings.TrimSpace(c.QueryParam("table_name")); table != "" {
		filters.TableName = &table
	}
	if record := strings.TrimSpace(c.QueryParam("record_id")); record != "" {
		filters.RecordID = &record
	}
	if filters.ChangedBy, err = queryUUID(c, "changed_by"); err != nil {
		return err
	}
	if filters.Limit, filters.Offset, err = pagination(c); err != nil {
		return err
	}

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), orgID, filters)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"limit":      filters.Limit,
		"offset":     filters.Offset,
	})
}

// GetEntityHistory handles GET /api/audit-logs/:table/:id
func (h *AuditLogsHandlers) GetEntityHistory(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	table := c.Param("table")
	if err := common.ValidateRequiredString(table, "table"); err != nil {
		return common.SendValidationError(c, "table", err.Error())
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	record := id.String()

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), orgID, &models.AuditLogFilters{
		TableName: &table,
		RecordID:  &record,
		Limit:     200,
	})
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": logs})
}
