package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWarehouseService struct {
	mock.Mock
}

func (m *MockWarehouseService) CreateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error {
	return m.Called(ctx, orgID, loc).Error(0)
}

func (m *MockWarehouseService) GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryLocation), args.Error(1)
}

func (m *MockWarehouseService) ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error) {
	args := m.Called(ctx, orgID, limit, offset)
	return args.Get(0).([]*models.InventoryLocation), args.Error(1)
}

func (m *MockWarehouseService) UpdateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error {
	return m.Called(ctx, orgID, loc).Error(0)
}

func (m *MockWarehouseService) DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *MockWarehouseService) CreateZone(ctx context.Context, orgID, locationID uuid.UUID, zone *models.StorageZone) error {
	return m.Called(ctx, orgID, locationID, zone).Error(0)
}

func (m *MockWarehouseService) GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageZone), args.Error(1)
}

func (m *MockWarehouseService) ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error) {
	args := m.Called(ctx, orgID, locationID)
	return args.Get(0).([]*models.StorageZone), args.Error(1)
}

func (m *MockWarehouseService) UpdateZone(ctx context.Context, orgID uuid.UUID, zone *models.StorageZone) (*models.StorageZone, error) {
	args := m.Called(ctx, orgID, zone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageZone), args.Error(1)
}

func (m *MockWarehouseService) DeleteZone(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *MockWarehouseService) CreateUnit(ctx context.Context, orgID, locationID uuid.UUID, unit *models.StorageUnit) error {
	return m.Called(ctx, orgID, locationID, unit).Error(0)
}

func (m *MockWarehouseService) GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageUnit), args.Error(1)
}

func (m *MockWarehouseService) ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error) {
	args := m.Called(ctx, orgID, locationID)
	return args.Get(0).([]*models.StorageUnit), args.Error(1)
}

func (m *MockWarehouseService) UpdateUnit(ctx context.Context, orgID uuid.UUID, unit *models.StorageUnit) (*models.StorageUnit, error) {
	args := m.Called(ctx, orgID, unit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageUnit), args.Error(1)
}

func (m *MockWarehouseService) DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *MockWarehouseService) CreatePosition(ctx context.Context, orgID, unitID uuid.UUID, pos *models.StoragePosition) error {
	return m.Called(ctx, orgID, unitID, pos).Error(0)
}

func (m *MockWarehouseService) GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoragePosition), args.Error(1)
}

func (m *MockWarehouseService) ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error) {
	args := m.Called(ctx, orgID, unitID)
	return args.Get(0).([]*models.StoragePosition), args.Error(1)
}

func (m *MockWarehouseService) RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) (*models.StoragePosition, error) {
	args := m.Called(ctx, orgID, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoragePosition), args.Error(1)
}

func (m *MockWarehouseService) DeletePosition(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func TestUpdateZone_Handler(t *testing.T) {
	orgID, zoneID := uuid.New(), uuid.New()
	service := new(MockWarehouseService)
	h := NewWarehouseHandlers(service, nil)

	service.On("UpdateZone", mock.Anything, orgID, mock.MatchedBy(func(z *models.StorageZone) bool {
		return z.ID == zoneID && z.Name == "Cold Room" && z.Capacity == 300
	})).Return(&models.StorageZone{ID: zoneID, Name: "Cold Room", Capacity: 300}, nil)

	c, rec := newRequestContext(http.MethodPut, "/api/zones/"+zoneID.String(), `{"name":"Cold Room","capacity":300}`, orgID, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(zoneID.String())

	require.NoError(t, h.UpdateZone(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	var zone models.StorageZone
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zone))
	assert.Equal(t, 300.0, zone.Capacity)
	service.AssertExpectations(t)
}

func TestUpdateUnit_Handler_ValidationError(t *testing.T) {
	orgID, unitID := uuid.New(), uuid.New()
	service := new(MockWarehouseService)
	h := NewWarehouseHandlers(service, nil)
	service.On("UpdateUnit", mock.Anything, orgID, mock.Anything).
		Return(nil, fmt.Errorf("capacity must not be negative: %w", models.ErrValidation))

	c, _ := newRequestContext(http.MethodPut, "/api/units/"+unitID.String(), `{"name":"Shelf A","capacity":-1}`, orgID, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(unitID.String())

	assert.Equal(t, http.StatusBadRequest, httpStatus(t, h.UpdateUnit(c)))
}

func TestGetPosition_Handler(t *testing.T) {
	orgID, posID := uuid.New(), uuid.New()
	service := new(MockWarehouseService)
	h := NewWarehouseHandlers(service, nil)

	t.Run("found", func(t *testing.T) {
		service.On("GetPosition", mock.Anything, orgID, posID).Return(&models.StoragePosition{ID: posID, Name: "A1"}, nil).Once()
		c, rec := newRequestContext(http.MethodGet, "/api/positions/"+posID.String(), "", orgID, uuid.New())
		c.SetParamNames("id")
		c.SetParamValues(posID.String())

		require.NoError(t, h.GetPosition(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		service.On("GetPosition", mock.Anything, orgID, posID).Return(nil, fmt.Errorf("get position: %w", models.ErrNotFound)).Once()
		c, _ := newRequestContext(http.MethodGet, "/api/positions/"+posID.String(), "", orgID, uuid.New())
		c.SetParamNames("id")
		c.SetParamValues(posID.String())

		assert.Equal(t, http.StatusNotFound, httpStatus(t, h.GetPosition(c)))
	})
}

func TestUpdatePosition_Handler(t *testing.T) {
	orgID, posID := uuid.New(), uuid.New()
	service := new(MockWarehouseService)
	h := NewWarehouseHandlers(service, nil)
	service.On("RenamePosition", mock.Anything, orgID, posID, "A1-top").Return(&models.StoragePosition{ID: posID, Name: "A1-top"}, nil)

	c, rec := newRequestContext(http.MethodPut, "/api/positions/"+posID.String(), `{"name":"A1-top"}`, orgID, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(posID.String())

	require.NoError(t, h.UpdatePosition(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}
