package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
)

type SupplierService interface {
	Create(ctx context.Context, orgID uuid.UUID, supplier *models.Supplier) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error)
	Update(ctx context.Context, orgID uuid.UUID, supplier *models.Supplier) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Supplier, error)
}

type supplierService struct {
	supplierRepo repositories.SupplierRepository
}

func NewSupplierService(supplierRepo repositories.SupplierRepository) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
	}
}

// ensureUniqueName returns ErrConflict when another record already uses name.
// lookup must return ErrNotFound for an unused name.
func ensureUniqueName(ctx context.Context, name string, self uuid.UUID, lookup func(context.Context, string) (uuid.UUID, error)) error {
	id, err := lookup(ctx, name)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	case id != self:
		return fmt.Errorf("name %q: %w", name, models.ErrConflict)
	}
	return nil
}

func (s *supplierService) nameLookup(orgID uuid.UUID) func(context.Context, string) (uuid.UUID, error) {
	return func(ctx context.Context, name string) (uuid.UUID, error) {
		existing, err := s.supplierRepo.GetByName(ctx, orgID, name)
		if err != nil {
			return uuid.Nil, err
		}
		return existing.ID, nil
	}
}

func validateSupplier(supplier *models.Supplier) error {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return fmt.Errorf("supplier name is required: %w", models.ErrValidation)
	}
	if supplier.ContactEmail != nil && *supplier.ContactEmail != "" && !strings.Contains(*supplier.ContactEmail, "@") {
		return fmt.Errorf("contact_email is not a valid address: %w", models.ErrValidation)
	}
	return nil
}

func (s *supplierService) Create(ctx context.Context, orgID uuid.UUID, supplier *models.Supplier) error {
	if err := validateSupplier(supplier); err != nil {
		return err
	}
	if err := ensureUniqueName(ctx, supplier.Name, uuid.Nil, s.nameLookup(orgID)); err != nil {
		return err
	}

	supplier.OrganizationID = orgID
	supplier.ID = uuid.New()
	return s.supplierRepo.Create(ctx, supplier)
}

func (s *supplierService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error) {
	return s.supplierRepo.GetByID(ctx, orgID, id)
}

func (s *supplierService) Update(ctx context.Context, orgID uuid.UUID, supplier *models.Supplier) error {
	if err := validateSupplier(supplier); err != nil {
		return err
	}
	if err := ensureUniqueName(ctx, supplier.Name, supplier.ID, s.nameLookup(orgID)); err != nil {
		return err
	}

	supplier.OrganizationID = orgID
	return s.supplierRepo.Update(ctx, supplier)
}

func (s *supplierService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.supplierRepo.Delete(ctx, orgID, id)
}

func (s *supplierService) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Supplier, error) {
	return s.supplierRepo.List(ctx, orgID, limit, offset)
}
