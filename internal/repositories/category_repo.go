package repositories

import (
	"context"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Category, error)
}

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (id, organization_id, name, parent_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.OrganizationID, c.Name, c.ParentID)
	return wrapErr("create category", err)
}

func (r *categoryRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error) {
	c := &models.Category{}
	query := `SELECT id, organization_id, name, parent_id, created_at FROM categories WHERE organization_id = $1 AND id = $2`
	if err := r.db.QueryRow(ctx, query, orgID, id).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
		return nil, wrapErr("get category", err)
	}
	return c, nil
}

func (r *categoryRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete category", tag, err)
}

func (r *categoryRepo) List(ctx context.Context, orgID uuid.UUID) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, organization_id, name, parent_id, created_at FROM categories WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, wrapErr("list categories", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, wrapErr("list categories", err)
		}
		categories = append(categories, c)
	}
	return categories, wrapErr("list categories", rows.Err())
}
