package models

import (
	"time"

	"github.com/google/uuid"
)

type Supplier struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	ContactName    *string   `json:"contact_name" db:"contact_name"`
	ContactEmail   *string   `json:"contact_email" db:"contact_email"`
	ContactPhone   *string   `json:"contact_phone" db:"contact_phone"`
	Address        *string   `json:"address" db:"address"`
	TaxPIN         *string   `json:"tax_pin" db:"tax_pin"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
