package repositories

import (
	"context"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error)
	GetByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Supplier, error)
	Update(ctx context.Context, supplier *models.Supplier) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Supplier, error)
}

type supplierRepo struct {
	db DBTX
}

func NewSupplierRepository(db DBTX) SupplierRepository {
	return &supplierRepo{db: db}
}

const supplierColumns = `id, organization_id, name, contact_name, contact_email, contact_phone, address, tax_pin, created_at, updated_at`

func (r *supplierRepo) Create(ctx context.Context, s *models.Supplier) error {
	query := `
		INSERT INTO suppliers (id, organization_id, name, contact_name, contact_email, contact_phone, address, tax_pin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, s.ID, s.OrganizationID, s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.TaxPIN)
	return wrapErr("create supplier", err)
}

func (r *supplierRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error) {
	s := &models.Supplier{}
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE organization_id = $1 AND id = $2`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&s.ID, &s.OrganizationID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.TaxPIN, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get supplier", err)
	}
	return s, nil
}

func (r *supplierRepo) GetByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Supplier, error) {
	s := &models.Supplier{}
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE organization_id = $1 AND lower(name) = lower($2)`
	err := r.db.QueryRow(ctx, query, orgID, name).Scan(&s.ID, &s.OrganizationID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.TaxPIN, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get supplier by name", err)
	}
	return s, nil
}

func (r *supplierRepo) Update(ctx context.Context, s *models.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $1, contact_name = $2, contact_email = $3, contact_phone = $4, address = $5, tax_pin = $6, updated_at = NOW()
		WHERE organization_id = $7 AND id = $8
	`
	tag, err := r.db.Exec(ctx, query, s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.TaxPIN, s.OrganizationID, s.ID)
	return affectedOne("update supplier", tag, err)
}

func (r *supplierRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete supplier", tag, err)
}

func (r *supplierRepo) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE organization_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, wrapErr("list suppliers", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		s := &models.Supplier{}
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.TaxPIN, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, wrapErr("list suppliers", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, wrapErr("list suppliers", rows.Err())
}
