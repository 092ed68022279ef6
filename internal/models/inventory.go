package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types recorded in stock_movements.
const (
	MovementReceipt    = "receipt"
	MovementMove       = "move"
	MovementSale       = "sale"
	MovementReturn     = "return"
	MovementAdjustment = "adjustment"
)

// StockBatch is a received lot of a product. It is created on receipt and only
// mutated afterwards; CurrentQuantity reaches 0 when the lot is exhausted.
type StockBatch struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrganizationID  uuid.UUID       `json:"organization_id" db:"organization_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id" db:"variant_id"`
	BatchNumber     string          `json:"batch_number" db:"batch_number"`
	LocationID      uuid.UUID       `json:"location_id" db:"location_id"`
	PositionID      *uuid.UUID      `json:"position_id" db:"position_id"`
	SupplierID      *uuid.UUID      `json:"supplier_id" db:"supplier_id"`
	InitialQuantity int             `json:"initial_quantity" db:"initial_quantity"`
	CurrentQuantity int             `json:"current_quantity" db:"current_quantity"`
	PurchasePrice   decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	ExpiryDate      *time.Time      `json:"expiry_date" db:"expiry_date"`
	ReceivedDate    time.Time       `json:"received_date" db:"received_date"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// SameLot reports whether other is this batch or a split of the same lot.
func (b *StockBatch) SameLot(other *StockBatch) bool {
	if other == nil {
		return false
	}
	if b.ID == other.ID {
		return true
	}
	if b.ProductID != other.ProductID || b.BatchNumber != other.BatchNumber {
		return false
	}
	switch {
	case b.VariantID == nil && other.VariantID == nil:
		return true
	case b.VariantID != nil && other.VariantID != nil:
		return *b.VariantID == *other.VariantID
	default:
		return false
	}
}

// Split returns a new batch of the same lot holding quantity units at positionID.
func (b *StockBatch) Split(quantity int, positionID uuid.UUID) *StockBatch {
	pos := positionID
	return &StockBatch{
		ID:              uuid.New(),
		OrganizationID:  b.OrganizationID,
		ProductID:       b.ProductID,
		VariantID:       b.VariantID,
		BatchNumber:     b.BatchNumber,
		LocationID:      b.LocationID,
		PositionID:      &pos,
		SupplierID:      b.SupplierID,
		InitialQuantity: quantity,
		CurrentQuantity: quantity,
		PurchasePrice:   b.PurchasePrice,
		ExpiryDate:      b.ExpiryDate,
		ReceivedDate:    b.ReceivedDate,
	}
}

// Expired reports whether the batch is past its expiry date at now.
func (b *StockBatch) Expired(now time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

type StockMovement struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	BatchID        uuid.UUID  `json:"batch_id" db:"batch_id"`
	FromPositionID *uuid.UUID `json:"from_position_id" db:"from_position_id"`
	ToPositionID   *uuid.UUID `json:"to_position_id" db:"to_position_id"`
	Quantity       int        `json:"quantity" db:"quantity"`
	MovementType   string     `json:"movement_type" db:"movement_type"`
	ReferenceID    *uuid.UUID `json:"reference_id" db:"reference_id"`
	ActorID        uuid.UUID  `json:"actor_id" db:"actor_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// MoveRequest moves Quantity units of a batch to NewPositionID.
type MoveRequest struct {
	OrganizationID uuid.UUID `json:"-"`
	ActorID        uuid.UUID `json:"-"`
	StockBatchID   uuid.UUID `json:"stock_batch_id"`
	NewPositionID  uuid.UUID `json:"new_position_id"`
	Quantity       int       `json:"quantity"`
}

// MoveResult describes what a move changed.
type MoveResult struct {
	Source      *StockBatch `json:"source"`
	Destination *StockBatch `json:"destination"`
	Outcome     string      `json:"outcome"` // relocated, split, merged, unchanged
}

const (
	MoveRelocated = "relocated"
	MoveSplit     = "split"
	MoveMerged    = "merged"
	MoveUnchanged = "unchanged"
)

// ReceiveStockRequest records a new batch arriving at a location.
type ReceiveStockRequest struct {
	ProductID     uuid.UUID       `json:"product_id"`
	VariantID     *uuid.UUID      `json:"variant_id,omitempty"`
	BatchNumber   string          `json:"batch_number"`
	LocationID    uuid.UUID       `json:"location_id"`
	PositionID    *uuid.UUID      `json:"position_id,omitempty"`
	SupplierID    *uuid.UUID      `json:"supplier_id,omitempty"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
}

// BatchFilter narrows batch listings.
type BatchFilter struct {
	LocationID *uuid.UUID `query:"location_id"`
	ProductID  *uuid.UUID `query:"product_id"`
	OnlyActive bool       `query:"only_active"`
	Limit      int        `query:"limit"`
	Offset     int        `query:"offset"`
}
