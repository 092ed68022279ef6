package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStockBatch_SameLot(t *testing.T) {
	variant := uuid.New()
	a := &StockBatch{ID: uuid.New(), ProductID: uuid.New(), VariantID: &variant, BatchNumber: "B-1"}

	split := a.Split(5, uuid.New())
	assert.True(t, a.SameLot(split))
	assert.True(t, a.SameLot(a))
	assert.False(t, a.SameLot(nil))

	other := *split
	other.ID = uuid.New()
	other.BatchNumber = "B-2"
	assert.False(t, a.SameLot(&other))

	noVariant := *split
	noVariant.ID = uuid.New()
	noVariant.VariantID = nil
	assert.False(t, a.SameLot(&noVariant))
}

func TestStockBatch_Split(t *testing.T) {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := uuid.New()
	a := &StockBatch{ID: uuid.New(), ProductID: uuid.New(), BatchNumber: "B-1", CurrentQuantity: 45, InitialQuantity: 45, ExpiryDate: &expiry}

	s := a.Split(20, pos)
	assert.NotEqual(t, a.ID, s.ID)
	assert.Equal(t, 20, s.InitialQuantity)
	assert.Equal(t, 20, s.CurrentQuantity)
	assert.Equal(t, pos, *s.PositionID)
	assert.Equal(t, a.ExpiryDate, s.ExpiryDate)
	assert.Equal(t, 45, a.CurrentQuantity)
}

func TestStockBatch_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	b := &StockBatch{ExpiryDate: &past}
	assert.True(t, b.Expired(now))
	assert.False(t, (&StockBatch{}).Expired(now))
}
