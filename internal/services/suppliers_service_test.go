package services

import (
	"context"
	"testing"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) GetByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Supplier, error) {
	args := m.Called(ctx, orgID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *MockSupplierRepository) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Supplier, error) {
	args := m.Called(ctx, orgID, limit, offset)
	return args.Get(0).([]*models.Supplier), args.Error(1)
}

func TestSupplierCreate_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repo := new(MockSupplierRepository)
	repo.On("GetByName", ctx, orgID, "Brookside Dairy").Return(nil, models.ErrNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Supplier")).Return(nil)

	supplier := &models.Supplier{Name: " Brookside Dairy "}
	err := NewSupplierService(repo).Create(ctx, orgID, supplier)

	assert.NoError(t, err)
	assert.Equal(t, orgID, supplier.OrganizationID)
	assert.NotEqual(t, uuid.Nil, supplier.ID)
	repo.AssertExpectations(t)
}

func TestSupplierCreate_DuplicateName(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repo := new(MockSupplierRepository)
	repo.On("GetByName", ctx, orgID, "Bidco").Return(&models.Supplier{ID: uuid.New(), Name: "Bidco"}, nil)

	err := NewSupplierService(repo).Create(ctx, orgID, &models.Supplier{Name: "Bidco"})

	assert.ErrorIs(t, err, models.ErrConflict)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSupplierUpdate_KeepsOwnName(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()
	repo := new(MockSupplierRepository)
	repo.On("GetByName", ctx, orgID, "Bidco").Return(&models.Supplier{ID: id, Name: "Bidco"}, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*models.Supplier")).Return(nil)

	err := NewSupplierService(repo).Update(ctx, orgID, &models.Supplier{ID: id, Name: "Bidco"})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSupplierCreate_InvalidEmail(t *testing.T) {
	email := "sales.bidco.co.ke"

	err := NewSupplierService(new(MockSupplierRepository)).Create(context.Background(), uuid.New(), &models.Supplier{Name: "Bidco", ContactEmail: &email})

	assert.ErrorIs(t, err, models.ErrValidation)
}
