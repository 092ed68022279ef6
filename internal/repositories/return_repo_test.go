package repositories

import (
	"context"
	"testing"
	"time"

	"dukapos/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDecision_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	by := uuid.New()
	now := time.Now()
	ret := &models.SaleReturn{ID: uuid.New(), OrganizationID: uuid.New(), Status: models.ReturnApproved, DecidedBy: &by, DecidedAt: &now}
	mock.ExpectExec(`UPDATE sale_returns SET status = \$1 (.+) AND status = 'pending'`).
		WithArgs(ret.Status, ret.DecidedBy, ret.DecidedAt, ret.DecisionNote, ret.OrganizationID, ret.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewReturnRepo(mock).UpdateDecision(context.Background(), ret)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenQuantity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	orgID, itemID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM sale_returns`).
		WithArgs(orgID, itemID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(3))

	qty, err := NewReturnRepo(mock).OpenQuantity(context.Background(), orgID, itemID)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
