package services

import (
	"context"
	"testing"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/capacity"
	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type MockStockLevelRepository struct {
	mock.Mock
}

func (m *MockStockLevelRepository) List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) (*models.StockLevelPage, error) {
	args := m.Called(ctx, orgID, filter, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevelPage), args.Error(1)
}

func (m *MockStockLevelRepository) ListAll(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) ([]*models.StockLevel, error) {
	args := m.Called(ctx, orgID, filter, threshold)
	return args.Get(0).([]*models.StockLevel), args.Error(1)
}

type AlertsServiceTestSuite struct {
	suite.Suite
	f          *fixture
	cache      *memCache
	levels     *MockStockLevelRepository
	orgRepo    *MockOrganizationRepository
	capacity   CapacityService
	service    AlertsService
	ctx        context.Context
	settings   models.OrganizationSettings
	storageRep *memStorage
}

func (suite *AlertsServiceTestSuite) SetupTest() {
	suite.f = newFixture()
	suite.cache = newMemCache()
	suite.levels = new(MockStockLevelRepository)
	suite.orgRepo = new(MockOrganizationRepository)
	suite.ctx = context.Background()
	suite.settings = models.DefaultOrganizationSettings()
	suite.storageRep = &memStorage{suite.f.db}
	suite.capacity = NewCapacityService(suite.storageRep, suite.cache, zap.NewNop())
	suite.service = NewAlertsService(suite.storageRep, &memBatches{suite.f.db}, suite.levels, suite.orgRepo, suite.capacity, suite.cache, 14, zap.NewNop())

	suite.orgRepo.On("GetByID", mock.Anything, suite.f.orgID).Return(&models.Organization{ID: suite.f.orgID, Settings: suite.settings}, nil).Maybe()
}

func TestAlertsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AlertsServiceTestSuite))
}

func (suite *AlertsServiceTestSuite) TestRefresh_CollectsAllKinds() {
	f := suite.f
	now := time.Now()
	// shelf A at 95% of 100
	f.seedBatch("LOT-1", 95, ptr(f.posA1), ptr(now.AddDate(0, 0, 3)), now)
	f.seedBatch("LOT-2", 20, nil, ptr(now.AddDate(0, 2, 0)), now)
	suite.levels.On("ListAll", mock.Anything, f.orgID, mock.Anything, 10).Return([]*models.StockLevel{
		{ProductName: "Maziwa", Quantity: 115, Status: models.StockInStock},
		{ProductName: "Unga", Quantity: 4, Status: models.StockLowStock},
		{ProductName: "Sukari", Quantity: 0, Status: models.StockOutOfStock},
	}, nil)

	set, err := suite.service.Refresh(suite.ctx, f.orgID)

	suite.Require().NoError(err)
	suite.Require().Len(set.Capacity, 1)
	suite.Equal("unit", set.Capacity[0].Level)
	suite.Equal("Shelf A", set.Capacity[0].Name)
	suite.Equal(capacity.StatusAlert, set.Capacity[0].Status)
	suite.Len(set.LowStock, 2)
	suite.Require().Len(set.Expiring, 1)
	suite.Equal("LOT-1", set.Expiring[0].BatchNumber)
	suite.Equal(4, set.Count())

	var cached AlertSet
	hit, _ := suite.cache.GetJSON(suite.ctx, caching.AlertsKey(f.orgID), &cached)
	suite.True(hit)
}

func (suite *AlertsServiceTestSuite) TestGet_ServesCachedSnapshot() {
	orgID := suite.f.orgID
	snapshot := &AlertSet{OrganizationID: orgID, LowStock: []*models.StockLevel{{ProductName: "Unga", Status: models.StockLowStock}}}
	suite.Require().NoError(suite.cache.SetJSON(suite.ctx, caching.AlertsKey(orgID), snapshot, time.Minute))

	set, err := suite.service.Get(suite.ctx, orgID)

	suite.Require().NoError(err)
	suite.Len(set.LowStock, 1)
	suite.levels.AssertNotCalled(suite.T(), "ListAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AlertsServiceTestSuite) TestCapacityReport_CachedUntilInvalidated() {
	f := suite.f
	first, err := suite.capacity.LocationReport(suite.ctx, f.orgID, f.locationID)
	suite.Require().NoError(err)
	suite.Equal(0.0, first.Location.Percentage)

	// a direct write that bypasses the services is not visible while cached
	f.db.locations[f.locationID].CapacityUsed = 800
	second, err := suite.capacity.LocationReport(suite.ctx, f.orgID, f.locationID)
	suite.Require().NoError(err)
	suite.Equal(0.0, second.Location.Percentage)

	suite.Require().NoError(suite.cache.Delete(suite.ctx, caching.CapacityKey(f.orgID, f.locationID)))
	third, err := suite.capacity.LocationReport(suite.ctx, f.orgID, f.locationID)
	suite.Require().NoError(err)
	suite.Equal(80.0, third.Location.Percentage)
	suite.Equal(capacity.StatusWarning, third.Location.Status)
}
