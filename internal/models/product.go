package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is catalog identity referenced by batches and sale items.
type Product struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	CategoryID     *uuid.UUID      `json:"category_id" db:"category_id"`
	DepartmentID   *uuid.UUID      `json:"department_id" db:"department_id"`
	Name           string          `json:"name" db:"name"`
	SKU            *string         `json:"sku" db:"sku"`
	Price          decimal.Decimal `json:"price" db:"price"`
	ReorderLevel   *int            `json:"reorder_level" db:"reorder_level"`
	ImageURL       *string         `json:"image_url" db:"image_url"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductVariant overrides the product price when PriceOverride is set.
type ProductVariant struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	ProductID     uuid.UUID        `json:"product_id" db:"product_id"`
	Name          string           `json:"name" db:"name"`
	SKU           *string          `json:"sku" db:"sku"`
	PriceOverride *decimal.Decimal `json:"price_override" db:"price_override"`
}

// UnitPrice returns the selling price for the product or one of its variants.
func (p *Product) UnitPrice(variant *ProductVariant) decimal.Decimal {
	if variant != nil && variant.PriceOverride != nil {
		return *variant.PriceOverride
	}
	return p.Price
}
