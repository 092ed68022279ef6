package repositories

import (
	"context"
	"fmt"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReturnRepository interface {
	Create(ctx context.Context, ret *models.SaleReturn) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error)
	GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error)
	// OpenQuantity sums pending and approved returns against a sale item.
	OpenQuantity(ctx context.Context, orgID, saleItemID uuid.UUID) (int, error)
	UpdateDecision(ctx context.Context, ret *models.SaleReturn) error
	List(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error)
}

type returnRepo struct {
	db DBTX
}

func NewReturnRepo(db DBTX) ReturnRepository {
	return &returnRepo{db: db}
}

const returnColumns = `id, organization_id, sale_id, sale_item_id, quantity, reason, restock, status, refund_amount,
	requested_by, decided_by, decided_at, decision_note, created_at`

func scanReturn(row pgx.Row) (*models.SaleReturn, error) {
	r := &models.SaleReturn{}
	err := row.Scan(&r.ID, &r.OrganizationID, &r.SaleID, &r.SaleItemID, &r.Quantity, &r.Reason, &r.Restock, &r.Status, &r.RefundAmount,
		&r.RequestedBy, &r.DecidedBy, &r.DecidedAt, &r.DecisionNote, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *returnRepo) Create(ctx context.Context, ret *models.SaleReturn) error {
	query := `
		INSERT INTO sale_returns (id, organization_id, sale_id, sale_item_id, quantity, reason, restock, status, refund_amount, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err := r.db.Exec(ctx, query, ret.ID, ret.OrganizationID, ret.SaleID, ret.SaleItemID, ret.Quantity, ret.Reason, ret.Restock, ret.Status, ret.RefundAmount, ret.RequestedBy)
	return wrapErr("create sale return", err)
}

func (r *returnRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	ret, err := scanReturn(r.db.QueryRow(ctx, `SELECT `+returnColumns+` FROM sale_returns WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		return nil, wrapErr("get sale return", err)
	}
	return ret, nil
}

func (r *returnRepo) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	ret, err := scanReturn(r.db.QueryRow(ctx, `SELECT `+returnColumns+` FROM sale_returns WHERE organization_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
	if err != nil {
		return nil, wrapErr("lock sale return", err)
	}
	return ret, nil
}

func (r *returnRepo) OpenQuantity(ctx context.Context, orgID, saleItemID uuid.UUID) (int, error) {
	var qty int
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM sale_returns
		WHERE organization_id = $1 AND sale_item_id = $2 AND status IN ('pending', 'approved')
	`
	if err := r.db.QueryRow(ctx, query, orgID, saleItemID).Scan(&qty); err != nil {
		return 0, wrapErr("sum open returns", err)
	}
	return qty, nil
}

func (r *returnRepo) UpdateDecision(ctx context.Context, ret *models.SaleReturn) error {
	query := `
		UPDATE sale_returns
		SET status = $1, decided_by = $2, decided_at = $3, decision_note = $4
		WHERE organization_id = $5 AND id = $6 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, ret.Status, ret.DecidedBy, ret.DecidedAt, ret.DecisionNote, ret.OrganizationID, ret.ID)
	if err != nil {
		return wrapErr("decide sale return", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decide sale return: %w", models.ErrInvalidTransition)
	}
	return nil
}

func (r *returnRepo) List(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error) {
	where := ` WHERE organization_id = $1`
	args := []interface{}{orgID}
	if filter.Status != "" {
		where += ` AND status = $2`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sale_returns`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count sale returns", err)
	}

	n := len(args)
	query := `SELECT ` + returnColumns + ` FROM sale_returns` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list sale returns", err)
	}
	defer rows.Close()

	var returns []*models.SaleReturn
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, 0, wrapErr("list sale returns", err)
		}
		returns = append(returns, ret)
	}
	return returns, total, wrapErr("list sale returns", rows.Err())
}
