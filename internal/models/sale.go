package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentMPesa = "mpesa"
)

const (
	SaleCompleted      = "completed"
	SalePendingPayment = "pending_payment"
	SaleFailed         = "failed"
)

type Sale struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	OrganizationID         uuid.UUID       `json:"organization_id" db:"organization_id"`
	ReceiptNumber          string          `json:"receipt_number" db:"receipt_number"`
	LocationID             uuid.UUID       `json:"location_id" db:"location_id"`
	CashierID              uuid.UUID       `json:"cashier_id" db:"cashier_id"`
	PaymentMethod          string          `json:"payment_method" db:"payment_method"`
	Status                 string          `json:"status" db:"status"`
	Subtotal               decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount               decimal.Decimal `json:"discount" db:"discount"`
	Tax                    decimal.Decimal `json:"tax" db:"tax"`
	Total                  decimal.Decimal `json:"total" db:"total"`
	AmountPaid             decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	ChangeDue              decimal.Decimal `json:"change_due" db:"change_due"`
	CustomerPhone          *string         `json:"customer_phone,omitempty" db:"customer_phone"`
	MPesaCheckoutRequestID *string         `json:"mpesa_checkout_request_id,omitempty" db:"mpesa_checkout_request_id"`
	MPesaReceiptNumber     *string         `json:"mpesa_receipt_number,omitempty" db:"mpesa_receipt_number"`
	FailureReason          *string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
	Items                  []*SaleItem     `json:"items,omitempty" db:"-"`
}

type SaleItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SaleID    uuid.UUID       `json:"sale_id" db:"sale_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id" db:"variant_id"`
	Name      string          `json:"name" db:"name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// SaleAllocation records how many units of a sale item came from which batch.
type SaleAllocation struct {
	ID               uuid.UUID `json:"id" db:"id"`
	SaleItemID       uuid.UUID `json:"sale_item_id" db:"sale_item_id"`
	BatchID          uuid.UUID `json:"batch_id" db:"batch_id"`
	Quantity         int       `json:"quantity" db:"quantity"`
	ReturnedQuantity int       `json:"returned_quantity" db:"returned_quantity"`
	Seq              int       `json:"seq" db:"seq"`
}

// CreateSaleRequest is the POS submission payload.
type CreateSaleRequest struct {
	LocationID    uuid.UUID         `json:"location_id"`
	PaymentMethod string            `json:"payment_method"`
	AmountPaid    *decimal.Decimal  `json:"amount_paid,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Items         []SaleItemRequest `json:"items"`
}

type SaleItemRequest struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	From   *time.Time `query:"from"`
	To     *time.Time `query:"to"`
	Status string     `query:"status"`
	Limit  int        `query:"limit"`
	Offset int        `query:"offset"`
}

// MPesaResult is the outcome of an STK push as reported by the callback.
type MPesaResult struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	ResultCode        int             `json:"result_code"`
	ResultDesc        string          `json:"result_desc"`
	ReceiptNumber     string          `json:"receipt_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Phone             string          `json:"phone,omitempty"`
}

// Succeeded reports a zero result code.
func (r MPesaResult) Succeeded() bool {
	return r.ResultCode == 0
}
