package services

import (
	"context"
	"fmt"
	"strings"

	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
)

type DepartmentService interface {
	Create(ctx context.Context, orgID uuid.UUID, department *models.Department) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Department, error)
	Update(ctx context.Context, orgID uuid.UUID, department *models.Department) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Department, error)
}

type departmentService struct {
	departmentRepo repositories.DepartmentRepository
}

func NewDepartmentService(departmentRepo repositories.DepartmentRepository) DepartmentService {
	return &departmentService{
		departmentRepo: departmentRepo,
	}
}

func (s *departmentService) nameLookup(orgID uuid.UUID) func(context.Context, string) (uuid.UUID, error) {
	return func(ctx context.Context, name string) (uuid.UUID, error) {
		existing, err := s.departmentRepo.GetByName(ctx, orgID, name)
		if err != nil {
			return uuid.Nil, err
		}
		return existing.ID, nil
	}
}

func validateDepartment(department *models.Department) error {
	department.Name = strings.TrimSpace(department.Name)
	if department.Name == "" {
		return fmt.Errorf("department name is required: %w", models.ErrValidation)
	}
	if len(department.Name) > 100 {
		return fmt.Errorf("department name must be at most 100 characters: %w", models.ErrValidation)
	}
	return nil
}

func (s *departmentService) Create(ctx context.Context, orgID uuid.UUID, department *models.Department) error {
	if err := validateDepartment(department); err != nil {
		return err
	}
	if err := ensureUniqueName(ctx, department.Name, uuid.Nil, s.nameLookup(orgID)); err != nil {
		return err
	}

	department.OrganizationID = orgID
	department.ID = uuid.New()
	return s.departmentRepo.Create(ctx, department)
}

func (s *departmentService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Department, error) {
	return s.departmentRepo.GetByID(ctx, orgID, id)
}

func (s *departmentService) Update(ctx context.Context, orgID uuid.UUID, department *models.Department) error {
	if err := validateDepartment(department); err != nil {
		return err
	}
	if err := ensureUniqueName(ctx, department.Name, department.ID, s.nameLookup(orgID)); err != nil {
		return err
	}

	department.OrganizationID = orgID
	return s.departmentRepo.Update(ctx, department)
}

func (s *departmentService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.departmentRepo.Delete(ctx, orgID, id)
}

func (s *departmentService) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Department, error) {
	return s.departmentRepo.List(ctx, orgID, limit, offset)
}
