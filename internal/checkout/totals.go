// Package checkout holds the point-of-sale cart arithmetic and the checkout state machine.
package checkout

import (
	"fmt"

	"dukapos/internal/config"
	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places amounts are rounded to.
const MoneyPlaces = 2

// LineItem is one cart line.
type LineItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Key identifies the line by product and variant.
func (l LineItem) Key() string {
	if l.VariantID == nil {
		return l.ProductID.String()
	}
	return l.ProductID.String() + "/" + l.VariantID.String()
}

// Amount is price times quantity, unrounded.
func (l LineItem) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Rates struct {
	Discount decimal.Decimal `json:"discount_rate"`
	Tax      decimal.Decimal `json:"tax_rate"`
	TaxLabel string          `json:"tax_label"`
}

// DefaultRates returns the configured pricing defaults.
func DefaultRates(cfg config.PricingConfig) Rates {
	return Rates{Discount: cfg.DiscountRate, Tax: cfg.TaxRate, TaxLabel: cfg.TaxLabel}
}

// RatesFromSettings overlays organization settings on the defaults.
func RatesFromSettings(s models.OrganizationSettings, defaults Rates) Rates {
	r := defaults
	if s.DiscountRate != nil {
		r.Discount = *s.DiscountRate
	}
	if s.TaxRate != nil {
		r.Tax = *s.TaxRate
	}
	if s.TaxLabel != "" {
		r.TaxLabel = s.TaxLabel
	}
	return r
}

// Summary is the priced cart. Total == Subtotal - Discount + Tax always holds.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	TaxLabel string          `json:"tax_label"`
	Total    decimal.Decimal `json:"total"`
}

// Totals prices a cart. Discount and tax are both computed on the subtotal.
func Totals(items []LineItem, rates Rates) (Summary, error) {
	if rates.Discount.IsNegative() || rates.Tax.IsNegative() {
		return Summary{}, fmt.Errorf("negative rate: %w", models.ErrValidation)
	}
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Price.IsNegative() {
			return Summary{}, fmt.Errorf("negative price for %s: %w", it.Key(), models.ErrValidation)
		}
		if it.Quantity < 0 {
			return Summary{}, fmt.Errorf("negative quantity for %s: %w", it.Key(), models.ErrValidation)
		}
		subtotal = subtotal.Add(it.Amount())
	}
	subtotal = subtotal.Round(MoneyPlaces)
	discount := subtotal.Mul(rates.Discount).Round(MoneyPlaces)
	tax := subtotal.Mul(rates.Tax).Round(MoneyPlaces)

	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		TaxLabel: rates.TaxLabel,
		Total:    subtotal.Sub(discount).Add(tax),
	}, nil
}

// Change returns max(0, paid - total).
func Change(amountPaid, total decimal.Decimal) decimal.Decimal {
	c := amountPaid.Sub(total)
	if c.IsNegative() {
		return decimal.Zero
	}
	return c.Round(MoneyPlaces)
}
