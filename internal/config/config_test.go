package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dukapos_test")
	t.Setenv("REDIS_ADDR", "redis://cache:6379")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Pricing.DiscountRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.025")))
	assert.Equal(t, 90*time.Second, cfg.MPesa.ConfirmationTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.AlertInterval)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_RejectsRateOutOfRange(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dukapos_test")
	t.Setenv("PRICING_TAX_RATE", "1.5")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PRICING_TAX_RATE")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dukapos_test")
	t.Setenv("PORT", "9090")
	t.Setenv("PRICING_TAX_RATE", "0.16")
	t.Setenv("PRICING_TAX_LABEL", "VAT")
	t.Setenv("MPESA_CONFIRMATION_TIMEOUT", "45s")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.16")))
	assert.Equal(t, "VAT", cfg.Pricing.TaxLabel)
	assert.Equal(t, 45*time.Second, cfg.MPesa.ConfirmationTimeout)
}

func TestLoad_MPesaRequiresCallbackToken(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dukapos_test")
	t.Setenv("MPESA_CONSUMER_KEY", "key")
	t.Setenv("MPESA_CONSUMER_SECRET", "secret")
	t.Setenv("MPESA_CALLBACK_TOKEN", "")

	_, err := Load("does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MPESA_CALLBACK_TOKEN")

	t.Setenv("MPESA_CALLBACK_TOKEN", "cb-secret")
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.True(t, cfg.MPesa.Enabled())
	assert.Equal(t, "cb-secret", cfg.MPesa.CallbackToken)
}
