package handlers

import (
	"fmt"
	"io"
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/services"

	"github.com/labstack/echo/v4"
)

// sniffLen is how much of the file http.DetectContentType inspects.
const sniffLen = 512

type UploadHandlers struct {
	uploadService services.UploadService
}

func NewUploadHandlers(uploadService services.UploadService) *UploadHandlers {
	return &UploadHandlers{uploadService: uploadService}
}

// Upload handles POST /api/upload with a multipart "file" field. The stored
// content type is sniffed from the bytes, not taken from the client.
func (h *UploadHandlers) Upload(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, services.MaxUploadSize+(1<<20))

	header, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "a file is required")
	}
	if header.Size > services.MaxUploadSize {
		return common.SendValidationError(c, "file", fmt.Sprintf("file exceeds %d MiB", services.MaxUploadSize>>20))
	}

	file, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read file")
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
	}
	contentType := http.DetectContentType(head[:n])

	result, err := h.uploadService.Upload(c.Request().Context(), orgID, header.Filename, contentType, file, header.Size)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// DeleteUpload handles DELETE /api/upload/* where the wildcard is the object key.
func (h *UploadHandlers) DeleteUpload(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	key := c.Param("*")
	if err := common.ValidateRequiredString(key, "key"); err != nil {
		return common.SendValidationError(c, "key", err.Error())
	}

	if err := h.uploadService.Delete(c.Request().Context(), orgID, key); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
