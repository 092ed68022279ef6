package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReturnsService struct {
	mock.Mock
}

func (m *MockReturnsService) CreateReturn(ctx context.Context, orgID, actorID uuid.UUID, req *models.CreateReturnRequest) (*models.SaleReturn, error) {
	args := m.Called(ctx, orgID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaleReturn), args.Error(1)
}

func (m *MockReturnsService) GetReturn(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaleReturn), args.Error(1)
}

func (m *MockReturnsService) ListReturns(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.SaleReturn), args.Int(1), args.Error(2)
}

func (m *MockReturnsService) ApproveReturn(ctx context.Context, orgID, actorID, id uuid.UUID, note string) (*models.SaleReturn, error) {
	args := m.Called(ctx, orgID, actorID, id, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaleReturn), args.Error(1)
}

func (m *MockReturnsService) RejectReturn(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.SaleReturn, error) {
	args := m.Called(ctx, orgID, actorID, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaleReturn), args.Error(1)
}

func TestCreateReturn_PassesRequest(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	saleID, itemID := uuid.New(), uuid.New()
	service := new(MockReturnsService)
	h := NewReturnsHandlers(service)

	body := `{"sale_id":"` + saleID.String() + `","sale_item_id":"` + itemID.String() + `","quantity":1,"reason":"damaged","restock":false}`
	c, rec := newRequestContext(http.MethodPost, "/api/sales/returns", body, orgID, userID)
	service.On("CreateReturn", mock.Anything, orgID, userID, &models.CreateReturnRequest{
		SaleID: saleID, SaleItemID: itemID, Quantity: 1, Reason: "damaged",
	}).Return(&models.SaleReturn{ID: uuid.New()}, nil)

	require.NoError(t, h.CreateReturn(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	service.AssertExpectations(t)
}

func TestListReturns_DefaultPaging(t *testing.T) {
	orgID := uuid.New()
	service := new(MockReturnsService)
	h := NewReturnsHandlers(service)

	c, rec := newRequestContext(http.MethodGet, "/api/sales/returns?status=pending", "", orgID, uuid.New())
	service.On("ListReturns", mock.Anything, orgID, &models.ReturnFilter{Status: "pending", Page: 1, Limit: 20}).
		Return([]*models.SaleReturn{{ID: uuid.New()}}, 41, nil)

	require.NoError(t, h.ListReturns(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []json.RawMessage `json:"items"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 1)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 20, body.Limit)
	assert.Equal(t, 41, body.Total)
}

func TestApproveReturn_EmptyBody(t *testing.T) {
	orgID, userID, id := uuid.New(), uuid.New(), uuid.New()
	service := new(MockReturnsService)
	h := NewReturnsHandlers(service)

	c, rec := newRequestContext(http.MethodPost, "/", "", orgID, userID)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	service.On("ApproveReturn", mock.Anything, orgID, userID, id, "").Return(&models.SaleReturn{ID: id}, nil)

	require.NoError(t, h.ApproveReturn(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestApproveReturn_AlreadyDecided(t *testing.T) {
	orgID, userID, id := uuid.New(), uuid.New(), uuid.New()
	service := new(MockReturnsService)
	h := NewReturnsHandlers(service)

	c, _ := newRequestContext(http.MethodPost, "/", `{"note":"ok"}`, orgID, userID)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	service.On("ApproveReturn", mock.Anything, orgID, userID, id, "ok").Return(nil, models.ErrInvalidTransition)

	assert.Equal(t, http.StatusConflict, httpStatus(t, h.ApproveReturn(c)))
}

func TestRejectReturn_PassesReason(t *testing.T) {
	orgID, userID, id := uuid.New(), uuid.New(), uuid.New()
	service := new(MockReturnsService)
	h := NewReturnsHandlers(service)

	c, rec := newRequestContext(http.MethodPost, "/", `{"reason":"outside return window"}`, orgID, userID)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	service.On("RejectReturn", mock.Anything, orgID, userID, id, "outside return window").
		Return(&models.SaleReturn{ID: id}, nil)

	require.NoError(t, h.RejectReturn(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestGetReturn_InvalidID(t *testing.T) {
	h := NewReturnsHandlers(new(MockReturnsService))
	c, _ := newRequestContext(http.MethodGet, "/", "", uuid.New(), uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, httpStatus(t, h.GetReturn(c)))
}
