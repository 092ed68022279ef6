package handlers

import (
	"net/http"

	"dukapos/internal/common"
	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ProductHandlers serves the catalog: products, variants and categories.
type ProductHandlers struct {
	productService services.ProductService
}

func NewProductHandlers(productService services.ProductService) *ProductHandlers {
	return &ProductHandlers{productService: productService}
}

type ProductRequest struct {
	Name         string          `json:"name"`
	SKU          *string         `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   *uuid.UUID      `json:"category_id"`
	DepartmentID *uuid.UUID      `json:"department_id"`
	ReorderLevel *int            `json:"reorder_level"`
	ImageURL     *string         `json:"image_url"`
}

func (r *ProductRequest) product() *models.Product {
	return &models.Product{
		Name:         r.Name,
		SKU:          r.SKU,
		Price:        r.Price,
		CategoryID:   r.CategoryID,
		DepartmentID: r.DepartmentID,
		ReorderLevel: r.ReorderLevel,
		ImageURL:     r.ImageURL,
	}
}

// CreateProduct handles POST /api/products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	var req ProductRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateOptionalString(req.SKU, "sku", 64); err != nil {
		return common.SendValidationError(c, "sku", err.Error())
	}

	product := req.product()
	if err := h.productService.Create(c.Request().Context(), orgID, product); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, product)
}

// ListProducts handles GET /api/products?search&category_id&limit&offset
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	query := common.SanitizeSearchQuery(c.QueryParam("search"))

	products, err := h.productService.Search(c.Request().Context(), orgID, query, categoryID, limit, offset)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProduct handles GET /api/products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.productService.GetByID(c.Request().Context(), orgID, id)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PUT /api/products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ProductRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	product := req.product()
	product.ID = id
	if err := h.productService.Update(c.Request().Context(), orgID, product); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.productService.Delete(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateVariant handles POST /api/products/:id/variants
func (h *ProductHandlers) CreateVariant(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var variant models.ProductVariant
	if err := bindBody(c, &variant); err != nil {
		return err
	}

	if err := h.productService.CreateVariant(c.Request().Context(), orgID, productID, &variant); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, variant)
}

// ListCategories handles GET /api/categories
func (h *ProductHandlers) ListCategories(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}

	categories, err := h.productService.ListCategories(c.Request().Context(), orgID)
	if err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": categories})
}

// CreateCategory handles POST /api/categories
func (h *ProductHandlers) CreateCategory(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	var category models.Category
	if err := bindBody(c, &category); err != nil {
		return err
	}

	if err := h.productService.CreateCategory(c.Request().Context(), orgID, &category); err != nil {
		return common.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/categories/:id
func (h *ProductHandlers) DeleteCategory(c echo.Context) error {
	orgID, _, err := identity(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.productService.DeleteCategory(c.Request().Context(), orgID, id); err != nil {
		return common.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
