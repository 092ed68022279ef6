package common

import (
	"context"
	"errors"
	"net/http"

	"dukapos/internal/models"

	"github.com/labstack/echo/v4"
)

// HTTPError maps a service error to an echo.HTTPError. Unknown errors become a
// generic 500 so internal details do not leak.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrPositionOccupied),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInsufficientQuantity),
		errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrPaymentFailed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrPaymentTimeout), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// ErrorCode is the machine-readable code written in ErrorResponse for a status.
func ErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE"
	case http.StatusGatewayTimeout:
		return "TIMEOUT"
	default:
		if status >= 500 {
			return "SERVER_ERROR"
		}
		return "CLIENT_ERROR"
	}
}
