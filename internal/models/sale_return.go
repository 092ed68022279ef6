package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReturnPending  = "pending"
	ReturnApproved = "approved"
	ReturnRejected = "rejected"
)

type SaleReturn struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	SaleID         uuid.UUID       `json:"sale_id" db:"sale_id"`
	SaleItemID     uuid.UUID       `json:"sale_item_id" db:"sale_item_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	Reason         string          `json:"reason" db:"reason"`
	Restock        bool            `json:"restock" db:"restock"`
	Status         string          `json:"status" db:"status"`
	RefundAmount   decimal.Decimal `json:"refund_amount" db:"refund_amount"`
	RequestedBy    uuid.UUID       `json:"requested_by" db:"requested_by"`
	DecidedBy      *uuid.UUID      `json:"decided_by" db:"decided_by"`
	DecidedAt      *time.Time      `json:"decided_at" db:"decided_at"`
	DecisionNote   *string         `json:"decision_note" db:"decision_note"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

type CreateReturnRequest struct {
	SaleID     uuid.UUID `json:"sale_id"`
	SaleItemID uuid.UUID `json:"sale_item_id"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	Restock    bool      `json:"restock"`
}

type ReturnFilter struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}
