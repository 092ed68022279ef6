package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StockInStock    = "in_stock"
	StockLowStock   = "low_stock"
	StockOutOfStock = "out_of_stock"
)

// StockLevelFilter holds the query parameters of the stock level listing.
type StockLevelFilter struct {
	WarehouseID *uuid.UUID `query:"warehouseId"`
	Category    string     `query:"category"`
	Status      string     `query:"status"`
	Search      string     `query:"search"`
	SortBy      string     `query:"sortBy"`    // name, quantity, status, expiry
	SortOrder   string     `query:"sortOrder"` // asc, desc
	Page        int        `query:"page"`
	Limit       int        `query:"limit"`
}

// Normalize applies defaults and bounds.
func (f *StockLevelFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	switch f.SortBy {
	case "name", "quantity", "status", "expiry":
	default:
		f.SortBy = "name"
	}
	if f.SortOrder != "desc" {
		f.SortOrder = "asc"
	}
	switch f.Status {
	case StockInStock, StockLowStock, StockOutOfStock:
	default:
		f.Status = ""
	}
}

// StatusFor classifies a quantity against a reorder level.
func StatusFor(quantity, reorderLevel int) string {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity <= reorderLevel:
		return StockLowStock
	default:
		return StockInStock
	}
}

// Offset returns the row offset of the current page.
func (f *StockLevelFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type StockLevel struct {
	ProductID     uuid.UUID  `json:"product_id"`
	VariantID     *uuid.UUID `json:"variant_id,omitempty"`
	ProductName   string     `json:"product_name"`
	SKU           *string    `json:"sku,omitempty"`
	Category      *string    `json:"category,omitempty"`
	LocationID    *uuid.UUID `json:"location_id,omitempty"`
	Quantity      int        `json:"quantity"`
	ReorderLevel  int        `json:"reorder_level"`
	Status        string     `json:"status"`
	Batches       int        `json:"batches"`
	NearestExpiry *time.Time `json:"nearest_expiry,omitempty"`
}

type StockLevelPage struct {
	Items []*StockLevel `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}
