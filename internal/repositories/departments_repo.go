package repositories

import (
	"context"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type DepartmentRepository interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Department, error)
	GetByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Department, error)
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Department, error)
}

type departmentRepo struct {
	db DBTX
}

func NewDepartmentRepository(db DBTX) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, d *models.Department) error {
	query := `
		INSERT INTO departments (id, organization_id, name, description, manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.OrganizationID, d.Name, d.Description, d.ManagerID)
	return wrapErr("create department", err)
}

func (r *departmentRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Department, error) {
	d := &models.Department{}
	query := `
		SELECT id, organization_id, name, description, manager_id, created_at, updated_at
		FROM departments
		WHERE organization_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Description, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get department", err)
	}
	return d, nil
}

func (r *departmentRepo) GetByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Department, error) {
	d := &models.Department{}
	query := `
		SELECT id, organization_id, name, description, manager_id, created_at, updated_at
		FROM departments
		WHERE organization_id = $1 AND lower(name) = lower($2)
	`
	err := r.db.QueryRow(ctx, query, orgID, name).Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Description, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get department by name", err)
	}
	return d, nil
}

func (r *departmentRepo) Update(ctx context.Context, d *models.Department) error {
	query := `
		UPDATE departments
		SET name = $1, description = $2, manager_id = $3, updated_at = NOW()
		WHERE organization_id = $4 AND id = $5
	`
	tag, err := r.db.Exec(ctx, query, d.Name, d.Description, d.ManagerID, d.OrganizationID, d.ID)
	return affectedOne("update department", tag, err)
}

func (r *departmentRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete department", tag, err)
}

func (r *departmentRepo) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Department, error) {
	query := `
		SELECT id, organization_id, name, description, manager_id, created_at, updated_at
		FROM departments
		WHERE organization_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, wrapErr("list departments", err)
	}
	defer rows.Close()

	var departments []*models.Department
	for rows.Next() {
		d := &models.Department{}
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Description, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, wrapErr("list departments", err)
		}
		departments = append(departments, d)
	}
	return departments, wrapErr("list departments", rows.Err())
}
