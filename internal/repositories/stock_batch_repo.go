package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type StockBatchRepository interface {
	Create(ctx context.Context, batch *models.StockBatch) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error)
	GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error)
	// FindAtPositionForUpdate returns the batch held at a position, or nil when it is empty.
	FindAtPositionForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.StockBatch, error)
	UpdatePlacement(ctx context.Context, batch *models.StockBatch) error
	List(ctx context.Context, orgID uuid.UUID, filter *models.BatchFilter) ([]*models.StockBatch, error)
	ListForAllocation(ctx context.Context, orgID, locationID, productID uuid.UUID, variantID *uuid.UUID, policy string, now time.Time) ([]*models.StockBatch, error)
	ListExpiring(ctx context.Context, orgID uuid.UUID, before time.Time) ([]*models.StockBatch, error)
	CreateMovement(ctx context.Context, m *models.StockMovement) error
}

type stockBatchRepo struct {
	db DBTX
}

func NewStockBatchRepo(db DBTX) StockBatchRepository {
	return &stockBatchRepo{db: db}
}

const batchColumns = `id, organization_id, product_id, variant_id, batch_number, location_id, position_id, supplier_id,
	initial_quantity, current_quantity, purchase_price, expiry_date, received_date, updated_at`

func scanBatch(row pgx.Row) (*models.StockBatch, error) {
	b := &models.StockBatch{}
	err := row.Scan(&b.ID, &b.OrganizationID, &b.ProductID, &b.VariantID, &b.BatchNumber, &b.LocationID, &b.PositionID, &b.SupplierID,
		&b.InitialQuantity, &b.CurrentQuantity, &b.PurchasePrice, &b.ExpiryDate, &b.ReceivedDate, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func collectBatches(rows pgx.Rows) ([]*models.StockBatch, error) {
	defer rows.Close()
	var batches []*models.StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *stockBatchRepo) Create(ctx context.Context, b *models.StockBatch) error {
	query := `
		INSERT INTO stock_batches (id, organization_id, product_id, variant_id, batch_number, location_id, position_id, supplier_id,
			initial_quantity, current_quantity, purchase_price, expiry_date, received_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	`
	_, err := r.db.Exec(ctx, query, b.ID, b.OrganizationID, b.ProductID, b.VariantID, b.BatchNumber, b.LocationID, b.PositionID, b.SupplierID,
		b.InitialQuantity, b.CurrentQuantity, b.PurchasePrice, b.ExpiryDate, b.ReceivedDate)
	return wrapErr("create stock batch", err)
}

func (r *stockBatchRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM stock_batches WHERE organization_id = $1 AND id = $2`
	b, err := scanBatch(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		return nil, wrapErr("get stock batch", err)
	}
	return b, nil
}

func (r *stockBatchRepo) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM stock_batches WHERE organization_id = $1 AND id = $2 FOR UPDATE`
	b, err := scanBatch(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		return nil, wrapErr("lock stock batch", err)
	}
	return b, nil
}

func (r *stockBatchRepo) FindAtPositionForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.StockBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM stock_batches
		WHERE organization_id = $1 AND position_id = $2 AND current_quantity > 0
		FOR UPDATE
	`
	b, err := scanBatch(r.db.QueryRow(ctx, query, orgID, positionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find batch at position", err)
	}
	return b, nil
}

func (r *stockBatchRepo) UpdatePlacement(ctx context.Context, b *models.StockBatch) error {
	query := `
		UPDATE stock_batches
		SET position_id = $1, current_quantity = $2, updated_at = NOW()
		WHERE organization_id = $3 AND id = $4
	`
	tag, err := r.db.Exec(ctx, query, b.PositionID, b.CurrentQuantity, b.OrganizationID, b.ID)
	return affectedOne("update stock batch", tag, err)
}

func (r *stockBatchRepo) List(ctx context.Context, orgID uuid.UUID, filter *models.BatchFilter) ([]*models.StockBatch, error) {
	if filter == nil {
		filter = &models.BatchFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	query := `SELECT ` + batchColumns + ` FROM stock_batches WHERE organization_id = $1`
	args := []interface{}{orgID}
	conditionCount := 1

	if filter.LocationID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND location_id = $%d`, conditionCount)
		args = append(args, *filter.LocationID)
	}
	if filter.ProductID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND product_id = $%d`, conditionCount)
		args = append(args, *filter.ProductID)
	}
	if filter.OnlyActive {
		query += ` AND current_quantity > 0`
	}
	query += fmt.Sprintf(` ORDER BY received_date DESC, id LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list stock batches", err)
	}
	batches, err := collectBatches(rows)
	return batches, wrapErr("list stock batches", err)
}

// allocationOrder is the ORDER BY clause for a consumption policy.
func allocationOrder(policy string) string {
	switch policy {
	case models.PolicyFIFO:
		return `received_date ASC, id ASC`
	case models.PolicyLIFO:
		return `received_date DESC, id ASC`
	default:
		return `expiry_date ASC NULLS LAST, received_date ASC, id ASC`
	}
}

func (r *stockBatchRepo) ListForAllocation(ctx context.Context, orgID, locationID, productID uuid.UUID, variantID *uuid.UUID, policy string, now time.Time) ([]*models.StockBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM stock_batches
		WHERE organization_id = $1 AND location_id = $2 AND product_id = $3
			AND variant_id IS NOT DISTINCT FROM $4
			AND current_quantity > 0
			AND (expiry_date IS NULL OR expiry_date >= $5)
		ORDER BY ` + allocationOrder(policy) + `
		FOR UPDATE
	`
	rows, err := r.db.Query(ctx, query, orgID, locationID, productID, variantID, now)
	if err != nil {
		return nil, wrapErr("list batches for allocation", err)
	}
	batches, err := collectBatches(rows)
	return batches, wrapErr("list batches for allocation", err)
}

func (r *stockBatchRepo) ListExpiring(ctx context.Context, orgID uuid.UUID, before time.Time) ([]*models.StockBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM stock_batches
		WHERE organization_id = $1 AND current_quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $2
		ORDER BY expiry_date ASC
	`
	rows, err := r.db.Query(ctx, query, orgID, before)
	if err != nil {
		return nil, wrapErr("list expiring batches", err)
	}
	batches, err := collectBatches(rows)
	return batches, wrapErr("list expiring batches", err)
}

func (r *stockBatchRepo) CreateMovement(ctx context.Context, m *models.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, organization_id, batch_id, from_position_id, to_position_id, quantity, movement_type, reference_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, query, m.ID, m.OrganizationID, m.BatchID, m.FromPositionID, m.ToPositionID, m.Quantity, m.MovementType, m.ReferenceID, m.ActorID)
	return wrapErr("record stock movement", err)
}
