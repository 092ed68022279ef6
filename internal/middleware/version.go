package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware stamps API responses with the version they were served by.
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
	build             string
}

func NewVersionMiddleware(build string) *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
		defaultVersion: "v1",
		build:          build,
	}
}

// VersionHeader resolves the requested version from the Accept-Version header,
// rejects unknown ones and sets X-API-Version on the response.
func (vm *VersionMiddleware) VersionHeader() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := strings.TrimSpace(c.Request().Header.Get("Accept-Version"))
			if version == "" {
				version = vm.defaultVersion
			}
			ver, ok := vm.supportedVersions[version]
			if !ok {
				return echo.NewHTTPError(http.StatusNotFound, "Unsupported API version "+version)
			}

			h := c.Response().Header()
			h.Set("X-API-Version", ver.Version)
			h.Set("X-Build-Version", vm.build)
			if ver.Status == "deprecated" && ver.SunsetDate != nil {
				h.Set("X-API-Deprecated", "true")
				h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
			}
			c.Set("api_version", ver.Version)
			return next(c)
		}
	}
}

// Deprecate marks a version deprecated from now on.
func (vm *VersionMiddleware) Deprecate(version, message string, sunset time.Time) {
	vm.supportedVersions[version] = APIVersion{Version: version, Status: "deprecated", SunsetDate: &sunset, Message: message}
}

func (vm *VersionMiddleware) SupportedVersions() map[string]APIVersion {
	return vm.supportedVersions
}
