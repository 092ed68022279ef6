package repositories

import (
	"context"
	"fmt"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *models.Sale) error
	CreateAllocations(ctx context.Context, orgID uuid.UUID, allocations []*models.SaleAllocation) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error)
	GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error)
	// GetByCheckoutRequestIDForUpdate resolves a payment callback, which carries no organization.
	GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*models.Sale, error)
	SetCheckoutRequestID(ctx context.Context, orgID, saleID uuid.UUID, checkoutRequestID string) error
	// UpdateStatus applies the sale's status and payment fields only if the stored
	// status is still from. It reports whether the row changed.
	UpdateStatus(ctx context.Context, sale *models.Sale, from string) (bool, error)
	GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error)
	// GetItemForUpdate locks the item row so return requests against it serialize.
	GetItemForUpdate(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error)
	ListAllocationsForUpdate(ctx context.Context, orgID, saleItemID uuid.UUID) ([]*models.SaleAllocation, error)
	// AddReturnedQuantity records units put back into an allocation's batch. It
	// fails with ErrInvalidQuantity rather than exceed what the allocation took.
	AddReturnedQuantity(ctx context.Context, orgID, allocationID uuid.UUID, quantity int) error
	ListAllocationsBySale(ctx context.Context, orgID, saleID uuid.UUID) ([]*models.SaleAllocation, error)
	List(ctx context.Context, orgID uuid.UUID, filter *models.SaleFilter) ([]*models.Sale, error)
}

type saleRepo struct {
	db DBTX
}

func NewSaleRepo(db DBTX) SaleRepository {
	return &saleRepo{db: db}
}

const saleColumns = `id, organization_id, receipt_number, location_id, cashier_id, payment_method, status,
	subtotal, discount, tax, total, amount_paid, change_due, customer_phone,
	mpesa_checkout_request_id, mpesa_receipt_number, failure_reason, created_at, updated_at`

func scanSale(row pgx.Row) (*models.Sale, error) {
	s := &models.Sale{}
	err := row.Scan(&s.ID, &s.OrganizationID, &s.ReceiptNumber, &s.LocationID, &s.CashierID, &s.PaymentMethod, &s.Status,
		&s.Subtotal, &s.Discount, &s.Tax, &s.Total, &s.AmountPaid, &s.ChangeDue, &s.CustomerPhone,
		&s.MPesaCheckoutRequestID, &s.MPesaReceiptNumber, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *saleRepo) Create(ctx context.Context, s *models.Sale) error {
	query := `
		INSERT INTO sales (id, organization_id, receipt_number, location_id, cashier_id, payment_method, status,
			subtotal, discount, tax, total, amount_paid, change_due, customer_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, s.ID, s.OrganizationID, s.ReceiptNumber, s.LocationID, s.CashierID, s.PaymentMethod, s.Status,
		s.Subtotal, s.Discount, s.Tax, s.Total, s.AmountPaid, s.ChangeDue, s.CustomerPhone)
	if err != nil {
		return wrapErr("create sale", err)
	}

	itemQuery := `
		INSERT INTO sale_items (id, organization_id, sale_id, product_id, variant_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, it := range s.Items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.SaleID = s.ID
		if _, err := r.db.Exec(ctx, itemQuery, it.ID, s.OrganizationID, s.ID, it.ProductID, it.VariantID, it.Name, it.Quantity, it.UnitPrice); err != nil {
			return wrapErr("create sale item", err)
		}
	}
	return nil
}

func (r *saleRepo) CreateAllocations(ctx context.Context, orgID uuid.UUID, allocations []*models.SaleAllocation) error {
	query := `
		INSERT INTO sale_allocations (id, organization_id, sale_item_id, batch_id, quantity, seq)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, a := range allocations {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if _, err := r.db.Exec(ctx, query, a.ID, orgID, a.SaleItemID, a.BatchID, a.Quantity, a.Seq); err != nil {
			return wrapErr("create sale allocation", err)
		}
	}
	return nil
}

func (r *saleRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		return nil, wrapErr("get sale", err)
	}
	items, err := r.listItems(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

func (r *saleRepo) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE organization_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
	if err != nil {
		return nil, wrapErr("lock sale", err)
	}
	return s, nil
}

func (r *saleRepo) GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE mpesa_checkout_request_id = $1 FOR UPDATE`, checkoutRequestID))
	if err != nil {
		return nil, wrapErr("lock sale by checkout request", err)
	}
	return s, nil
}

func (r *saleRepo) SetCheckoutRequestID(ctx context.Context, orgID, saleID uuid.UUID, checkoutRequestID string) error {
	query := `UPDATE sales SET mpesa_checkout_request_id = $1, updated_at = NOW() WHERE organization_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, checkoutRequestID, orgID, saleID)
	return affectedOne("set checkout request id", tag, err)
}

func (r *saleRepo) UpdateStatus(ctx context.Context, s *models.Sale, from string) (bool, error) {
	query := `
		UPDATE sales
		SET status = $1, amount_paid = $2, change_due = $3, mpesa_receipt_number = $4, failure_reason = $5, updated_at = NOW()
		WHERE organization_id = $6 AND id = $7 AND status = $8
	`
	tag, err := r.db.Exec(ctx, query, s.Status, s.AmountPaid, s.ChangeDue, s.MPesaReceiptNumber, s.FailureReason, s.OrganizationID, s.ID, from)
	if err != nil {
		return false, wrapErr("update sale status", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *saleRepo) listItems(ctx context.Context, orgID, saleID uuid.UUID) ([]*models.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, variant_id, name, quantity, unit_price
		FROM sale_items
		WHERE organization_id = $1 AND sale_id = $2
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, orgID, saleID)
	if err != nil {
		return nil, wrapErr("list sale items", err)
	}
	defer rows.Close()

	var items []*models.SaleItem
	for rows.Next() {
		it := &models.SaleItem{}
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.VariantID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, wrapErr("list sale items", err)
		}
		items = append(items, it)
	}
	return items, wrapErr("list sale items", rows.Err())
}

const saleItemQuery = `
	SELECT id, sale_id, product_id, variant_id, name, quantity, unit_price
	FROM sale_items
	WHERE organization_id = $1 AND id = $2
`

func (r *saleRepo) getItem(ctx context.Context, op, query string, orgID, itemID uuid.UUID) (*models.SaleItem, error) {
	it := &models.SaleItem{}
	err := r.db.QueryRow(ctx, query, orgID, itemID).Scan(&it.ID, &it.SaleID, &it.ProductID, &it.VariantID, &it.Name, &it.Quantity, &it.UnitPrice)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return it, nil
}

func (r *saleRepo) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error) {
	return r.getItem(ctx, "get sale item", saleItemQuery, orgID, itemID)
}

func (r *saleRepo) GetItemForUpdate(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error) {
	return r.getItem(ctx, "lock sale item", saleItemQuery+` FOR UPDATE`, orgID, itemID)
}

func (r *saleRepo) scanAllocations(rows pgx.Rows) ([]*models.SaleAllocation, error) {
	defer rows.Close()
	var out []*models.SaleAllocation
	for rows.Next() {
		a := &models.SaleAllocation{}
		if err := rows.Scan(&a.ID, &a.SaleItemID, &a.BatchID, &a.Quantity, &a.ReturnedQuantity, &a.Seq); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *saleRepo) ListAllocationsForUpdate(ctx context.Context, orgID, saleItemID uuid.UUID) ([]*models.SaleAllocation, error) {
	query := `
		SELECT id, sale_item_id, batch_id, quantity, returned_quantity, seq
		FROM sale_allocations
		WHERE organization_id = $1 AND sale_item_id = $2
		ORDER BY seq
		FOR UPDATE
	`
	rows, err := r.db.Query(ctx, query, orgID, saleItemID)
	if err != nil {
		return nil, wrapErr("lock sale allocations", err)
	}
	out, err := r.scanAllocations(rows)
	return out, wrapErr("lock sale allocations", err)
}

func (r *saleRepo) AddReturnedQuantity(ctx context.Context, orgID, allocationID uuid.UUID, quantity int) error {
	query := `
		UPDATE sale_allocations
		SET returned_quantity = returned_quantity + $1
		WHERE organization_id = $2 AND id = $3 AND returned_quantity + $1 <= quantity
	`
	tag, err := r.db.Exec(ctx, query, quantity, orgID, allocationID)
	if err != nil {
		return wrapErr("record returned quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record returned quantity: allocation %s: %w", allocationID, models.ErrInvalidQuantity)
	}
	return nil
}

func (r *saleRepo) ListAllocationsBySale(ctx context.Context, orgID, saleID uuid.UUID) ([]*models.SaleAllocation, error) {
	query := `
		SELECT a.id, a.sale_item_id, a.batch_id, a.quantity, a.returned_quantity, a.seq
		FROM sale_allocations a
		JOIN sale_items i ON i.id = a.sale_item_id
		WHERE a.organization_id = $1 AND i.sale_id = $2
		ORDER BY a.sale_item_id, a.seq
	`
	rows, err := r.db.Query(ctx, query, orgID, saleID)
	if err != nil {
		return nil, wrapErr("list sale allocations", err)
	}
	out, err := r.scanAllocations(rows)
	return out, wrapErr("list sale allocations", err)
}

func (r *saleRepo) List(ctx context.Context, orgID uuid.UUID, filter *models.SaleFilter) ([]*models.Sale, error) {
	if filter == nil {
		filter = &models.SaleFilter{}
	}
	query := `SELECT ` + saleColumns + ` FROM sales WHERE organization_id = $1`
	args := []interface{}{orgID}
	conditionCount := 1

	if filter.From != nil {
		conditionCount++
		query += fmt.Sprintf(` AND created_at >= $%d`, conditionCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditionCount++
		query += fmt.Sprintf(` AND created_at < $%d`, conditionCount)
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		conditionCount++
		query += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list sales", err)
	}
	defer rows.Close()

	var sales []*models.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, wrapErr("list sales", err)
		}
		sales = append(sales, s)
	}
	return sales, wrapErr("list sales", rows.Err())
}
