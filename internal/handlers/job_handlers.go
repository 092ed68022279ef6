package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// JobStatusProvider reports the state of scheduled jobs.
type JobStatusProvider interface {
	GetJobStatus() map[string]interface{}
}

// JobHandlers exposes the alert snapshots the background job produces and the
// scheduler state.
type JobHandlers struct {
	alertsService services.AlertsService
	scheduler     JobStatusProvider
}

func NewJobHandlers(alertsService services.AlertsService, scheduler JobStatusProvider) *JobHandlers {
	return &JobHandlers{
		alertsService: alertsService,
		scheduler:     scheduler,
	}
}

// GetAlerts handles GET /api/alerts. refresh=true recomputes instead of
// serving the last snapshot.
func (h *JobHandlers) GetAlerts(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var set *services.AlertSet
	if c.QueryParam("refresh") == "true" {
		set, err = h.alertsService.Refresh(ctx, orgID)
	} else {
		set, err = h.alertsService.Get(ctx, orgID)
	}
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": set,
		"count":  set.Count(),
	})
}

// GetJobStatus handles GET /api/jobs/status
func (h *JobHandlers) GetJobStatus(c echo.Context) error {
	if h.scheduler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Scheduler not running")
	}
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}
