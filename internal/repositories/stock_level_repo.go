package repositories

import (
	"context"
	"fmt"
	"strings"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type StockLevelRepository interface {
	// List returns one page of stock levels. threshold is the organization's
	// low-stock level for products without a reorder level.
	List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) (*models.StockLevelPage, error)
	// ListAll returns every matching row, ignoring pagination.
	ListAll(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) ([]*models.StockLevel, error)
}

type stockLevelRepo struct {
	db DBTX
}

func NewStockLevelRepo(db DBTX) StockLevelRepository {
	return &stockLevelRepo{db: db}
}

var stockLevelSortColumns = map[string]string{
	"name":     "product_name",
	"quantity": "quantity",
	"status":   "CASE status WHEN 'out_of_stock' THEN 0 WHEN 'low_stock' THEN 1 ELSE 2 END",
	"expiry":   "nearest_expiry",
}

// buildStockLevelQuery builds the aggregation over batches. The filter must be normalized.
// Each variant gets its own row, so a variant with no live batches reports out_of_stock.
// The product-level row only appears for products without variants or with unassigned stock.
func buildStockLevelQuery(orgID uuid.UUID, filter *models.StockLevelFilter, threshold int, paginate bool) (string, []interface{}) {
	args := []interface{}{orgID, threshold}
	conditionCount := 2

	batchJoin := `LEFT JOIN stock_batches b ON b.product_id = p.id AND b.organization_id = p.organization_id
				AND b.variant_id IS NOT DISTINCT FROM pv.variant_id AND b.current_quantity > 0`
	if filter.WarehouseID != nil {
		conditionCount++
		batchJoin += fmt.Sprintf(` AND b.location_id = $%d`, conditionCount)
		args = append(args, *filter.WarehouseID)
	}

	where := `p.organization_id = $1`
	if filter.Category != "" {
		conditionCount++
		where += fmt.Sprintf(` AND c.name = $%d`, conditionCount)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conditionCount++
		where += fmt.Sprintf(` AND (p.name ILIKE $%d OR COALESCE(p.sku, '') ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+filter.Search+"%")
	}

	outer := ``
	if filter.Status != "" {
		conditionCount++
		outer = fmt.Sprintf(` WHERE status = $%d`, conditionCount)
		args = append(args, filter.Status)
	}

	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}
	sortCol, ok := stockLevelSortColumns[filter.SortBy]
	if !ok {
		sortCol = stockLevelSortColumns["name"]
	}

	query := `
		WITH levels AS (
			SELECT p.id AS product_id, pv.variant_id, p.name || COALESCE(' ' || pv.variant_name, '') AS product_name,
				COALESCE(pv.variant_sku, p.sku) AS sku, c.name AS category,
				COALESCE(SUM(b.current_quantity), 0) AS quantity,
				COALESCE(p.reorder_level, $2) AS reorder_level,
				COUNT(b.id) AS batches,
				MIN(b.expiry_date) AS nearest_expiry
			FROM products p
			LEFT JOIN categories c ON c.id = p.category_id
			CROSS JOIN LATERAL (
				SELECT v.id AS variant_id, v.name AS variant_name, v.sku AS variant_sku
				FROM product_variants v WHERE v.product_id = p.id
				UNION ALL
				SELECT NULL::uuid, NULL, NULL
				WHERE NOT EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id)
					OR EXISTS (SELECT 1 FROM stock_batches nb WHERE nb.product_id = p.id AND nb.variant_id IS NULL AND nb.current_quantity > 0)
			) pv
			` + batchJoin + `
			WHERE ` + where + `
			GROUP BY p.id, pv.variant_id, pv.variant_name, pv.variant_sku, p.name, p.sku, c.name, p.reorder_level
		), classified AS (
			SELECT levels.*,
				CASE WHEN quantity = 0 THEN 'out_of_stock'
					WHEN quantity <= reorder_level THEN 'low_stock'
					ELSE 'in_stock' END AS status
			FROM levels
		)
		SELECT product_id, variant_id, product_name, sku, category, quantity, reorder_level, batches, nearest_expiry, status,
			COUNT(*) OVER() AS total
		FROM classified` + outer + `
		ORDER BY ` + sortCol + ` ` + direction + ` NULLS LAST, product_name ASC, product_id ASC, variant_id ASC NULLS FIRST`

	if paginate {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
		args = append(args, filter.Limit, filter.Offset())
	}
	return query, args
}

func (r *stockLevelRepo) query(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int, paginate bool) ([]*models.StockLevel, int, error) {
	query, args := buildStockLevelQuery(orgID, filter, threshold, paginate)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list stock levels", err)
	}
	defer rows.Close()

	levels := make([]*models.StockLevel, 0)
	total := 0
	for rows.Next() {
		l := &models.StockLevel{}
		if err := rows.Scan(&l.ProductID, &l.VariantID, &l.ProductName, &l.SKU, &l.Category, &l.Quantity, &l.ReorderLevel,
			&l.Batches, &l.NearestExpiry, &l.Status, &total); err != nil {
			return nil, 0, wrapErr("list stock levels", err)
		}
		l.LocationID = filter.WarehouseID
		levels = append(levels, l)
	}
	return levels, total, wrapErr("list stock levels", rows.Err())
}

func (r *stockLevelRepo) List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) (*models.StockLevelPage, error) {
	filter.Normalize()
	levels, total, err := r.query(ctx, orgID, filter, threshold, true)
	if err != nil {
		return nil, err
	}
	return &models.StockLevelPage{Items: levels, Page: filter.Page, Limit: filter.Limit, Total: total}, nil
}

func (r *stockLevelRepo) ListAll(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter, threshold int) ([]*models.StockLevel, error) {
	filter.Normalize()
	levels, _, err := r.query(ctx, orgID, filter, threshold, false)
	return levels, err
}
