package repositories

import (
	"context"
	"testing"
	"time"

	"dukapos/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var batchColumnNames = []string{"id", "organization_id", "product_id", "variant_id", "batch_number", "location_id", "position_id", "supplier_id",
	"initial_quantity", "current_quantity", "purchase_price", "expiry_date", "received_date", "updated_at"}

type StockBatchRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    StockBatchRepository
	orgID   uuid.UUID
	context context.Context
}

func (suite *StockBatchRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewStockBatchRepo(mock)
	suite.orgID = uuid.New()
	suite.context = context.Background()
}

func (suite *StockBatchRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestStockBatchRepoTestSuite(t *testing.T) {
	suite.Run(t, new(StockBatchRepoTestSuite))
}

func (suite *StockBatchRepoTestSuite) batchRow(id uuid.UUID, qty int, pos *uuid.UUID) []interface{} {
	now := time.Now()
	return []interface{}{id, suite.orgID, uuid.New(), (*uuid.UUID)(nil), "B-001", uuid.New(), pos, (*uuid.UUID)(nil),
		qty, qty, decimal.NewFromInt(150), (*time.Time)(nil), now, now}
}

func (suite *StockBatchRepoTestSuite) TestGetForUpdate_Success() {
	id := uuid.New()
	pos := uuid.New()
	suite.mock.ExpectQuery(`SELECT (.+) FROM stock_batches WHERE organization_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs(suite.orgID, id).
		WillReturnRows(pgxmock.NewRows(batchColumnNames).AddRow(suite.batchRow(id, 45, &pos)...))

	b, err := suite.repo.GetForUpdate(suite.context, suite.orgID, id)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, b.ID)
	assert.Equal(suite.T(), 45, b.CurrentQuantity)
	assert.Equal(suite.T(), pos, *b.PositionID)
}

func (suite *StockBatchRepoTestSuite) TestGetForUpdate_NotFound() {
	id := uuid.New()
	suite.mock.ExpectQuery(`FROM stock_batches WHERE organization_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs(suite.orgID, id).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetForUpdate(suite.context, suite.orgID, id)
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *StockBatchRepoTestSuite) TestFindAtPosition_Empty() {
	pos := uuid.New()
	suite.mock.ExpectQuery(`FROM stock_batches WHERE organization_id = \$1 AND position_id = \$2`).
		WithArgs(suite.orgID, pos).
		WillReturnError(pgx.ErrNoRows)

	b, err := suite.repo.FindAtPositionForUpdate(suite.context, suite.orgID, pos)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), b)
}

func (suite *StockBatchRepoTestSuite) TestUpdatePlacement_NoRows() {
	pos := uuid.New()
	b := &models.StockBatch{ID: uuid.New(), OrganizationID: suite.orgID, PositionID: &pos, CurrentQuantity: 10}
	suite.mock.ExpectExec(`UPDATE stock_batches SET position_id = \$1, current_quantity = \$2`).
		WithArgs(b.PositionID, 10, suite.orgID, b.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.UpdatePlacement(suite.context, b)
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *StockBatchRepoTestSuite) TestListForAllocation_FEFOOrdering() {
	loc, product := uuid.New(), uuid.New()
	now := time.Now()
	suite.mock.ExpectQuery(`ORDER BY expiry_date ASC NULLS LAST, received_date ASC, id ASC FOR UPDATE`).
		WithArgs(suite.orgID, loc, product, (*uuid.UUID)(nil), now).
		WillReturnRows(pgxmock.NewRows(batchColumnNames).
			AddRow(suite.batchRow(uuid.New(), 5, nil)...).
			AddRow(suite.batchRow(uuid.New(), 7, nil)...))

	batches, err := suite.repo.ListForAllocation(suite.context, suite.orgID, loc, product, nil, models.PolicyFEFO, now)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), batches, 2)
}

func (suite *StockBatchRepoTestSuite) TestCreateMovement_AssignsID() {
	m := &models.StockMovement{OrganizationID: suite.orgID, BatchID: uuid.New(), Quantity: 3, MovementType: models.MovementMove, ActorID: uuid.New()}
	suite.mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), suite.orgID, m.BatchID, m.FromPositionID, m.ToPositionID, 3, models.MovementMove, m.ReferenceID, m.ActorID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(suite.T(), suite.repo.CreateMovement(suite.context, m))
	assert.NotEqual(suite.T(), uuid.Nil, m.ID)
}

func TestAllocationOrder(t *testing.T) {
	assert.Equal(t, `received_date ASC, id ASC`, allocationOrder(models.PolicyFIFO))
	assert.Equal(t, `received_date DESC, id ASC`, allocationOrder(models.PolicyLIFO))
	assert.Contains(t, allocationOrder("unknown"), "expiry_date ASC NULLS LAST")
}
