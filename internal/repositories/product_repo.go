package repositories

import (
	"context"
	"fmt"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	GetVariant(ctx context.Context, orgID, productID, variantID uuid.UUID) (*models.ProductVariant, error)
	CreateVariant(ctx context.Context, orgID uuid.UUID, variant *models.ProductVariant) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Search(ctx context.Context, orgID uuid.UUID, query string, categoryID *uuid.UUID, limit, offset int) ([]*models.Product, error)
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, organization_id, category_id, department_id, name, sku, price, reorder_level, image_url, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.OrganizationID, &p.CategoryID, &p.DepartmentID, &p.Name, &p.SKU, &p.Price, &p.ReorderLevel, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, organization_id, category_id, department_id, name, sku, price, reorder_level, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.OrganizationID, p.CategoryID, p.DepartmentID, p.Name, p.SKU, p.Price, p.ReorderLevel, p.ImageURL)
	return wrapErr("create product", err)
}

func (r *productRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		return nil, wrapErr("get product", err)
	}
	return p, nil
}

func (r *productRepo) GetVariant(ctx context.Context, orgID, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	v := &models.ProductVariant{}
	query := `
		SELECT v.id, v.product_id, v.name, v.sku, v.price_override
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.organization_id = $1 AND v.product_id = $2 AND v.id = $3
	`
	err := r.db.QueryRow(ctx, query, orgID, productID, variantID).Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.PriceOverride)
	if err != nil {
		return nil, wrapErr("get product variant", err)
	}
	return v, nil
}

func (r *productRepo) CreateVariant(ctx context.Context, orgID uuid.UUID, v *models.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, name, sku, price_override)
		SELECT $1, p.id, $3, $4, $5 FROM products p WHERE p.organization_id = $6 AND p.id = $2
	`
	tag, err := r.db.Exec(ctx, query, v.ID, v.ProductID, v.Name, v.SKU, v.PriceOverride, orgID)
	return affectedOne("create product variant", tag, err)
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET category_id = $1, department_id = $2, name = $3, sku = $4, price = $5, reorder_level = $6, image_url = $7, updated_at = NOW()
		WHERE organization_id = $8 AND id = $9
	`
	tag, err := r.db.Exec(ctx, query, p.CategoryID, p.DepartmentID, p.Name, p.SKU, p.Price, p.ReorderLevel, p.ImageURL, p.OrganizationID, p.ID)
	return affectedOne("update product", tag, err)
}

func (r *productRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete product", tag, err)
}

func (r *productRepo) Search(ctx context.Context, orgID uuid.UUID, search string, categoryID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE organization_id = $1`
	args := []interface{}{orgID}
	conditionCount := 1

	if search != "" {
		conditionCount++
		query += fmt.Sprintf(` AND (name ILIKE $%d OR COALESCE(sku, '') ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+search+"%")
	}
	if categoryID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND category_id = $%d`, conditionCount)
		args = append(args, *categoryID)
	}
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("search products", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("search products", err)
		}
		products = append(products, p)
	}
	return products, wrapErr("search products", rows.Err())
}
