package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Consumption policies decide which batches a sale draws from first.
const (
	PolicyFEFO = "FEFO"
	PolicyFIFO = "FIFO"
	PolicyLIFO = "LIFO"
)

type Organization struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	Name      string               `json:"name" db:"name"`
	Status    string               `json:"status" db:"status"`
	Settings  OrganizationSettings `json:"settings" db:"settings"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt time.Time            `json:"updated_at" db:"updated_at"`
}

// OrganizationSettings is stored as JSONB. Nil rates mean "use the configured defaults".
type OrganizationSettings struct {
	Currency          string           `json:"currency"`
	DiscountRate      *decimal.Decimal `json:"discount_rate,omitempty"`
	TaxRate           *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxLabel          string           `json:"tax_label,omitempty"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	ConsumptionPolicy string           `json:"consumption_policy"`
	ExpiryAlertDays   int              `json:"expiry_alert_days"`
}

// DefaultOrganizationSettings returns the settings a new organization starts with.
func DefaultOrganizationSettings() OrganizationSettings {
	return OrganizationSettings{
		Currency:          "KES",
		LowStockThreshold: 10,
		ConsumptionPolicy: PolicyFEFO,
		ExpiryAlertDays:   14,
	}
}

// Policy returns the consumption policy, defaulting to FEFO.
func (s OrganizationSettings) Policy() string {
	switch s.ConsumptionPolicy {
	case PolicyFEFO, PolicyFIFO, PolicyLIFO:
		return s.ConsumptionPolicy
	default:
		return PolicyFEFO
	}
}
