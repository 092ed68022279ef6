package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/checkout"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReturnsService interface {
	CreateReturn(ctx context.Context, orgID, actorID uuid.UUID, req *models.CreateReturnRequest) (*models.SaleReturn, error)
	GetReturn(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error)
	ListReturns(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error)
	// ApproveReturn accepts a pending return and, when requested, puts the goods
	// back into the batches they were sold from.
	ApproveReturn(ctx context.Context, orgID, actorID, id uuid.UUID, note string) (*models.SaleReturn, error)
	RejectReturn(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.SaleReturn, error)
}

type returnsService struct {
	tx           repositories.TxManager
	returnRepo   repositories.ReturnRepository
	saleRepo     repositories.SaleRepository
	cacheService caching.CacheService
	audit        AuditLogsService
	log          *zap.Logger
	now          func() time.Time
}

func NewReturnsService(tx repositories.TxManager, returnRepo repositories.ReturnRepository, saleRepo repositories.SaleRepository,
	cacheService caching.CacheService, audit AuditLogsService, log *zap.Logger) ReturnsService {
	return &returnsService{
		tx:           tx,
		returnRepo:   returnRepo,
		saleRepo:     saleRepo,
		cacheService: cacheService,
		audit:        audit,
		log:          log,
		now:          time.Now,
	}
}

// refundFor is the item's share of what the customer actually paid, so
// discount and tax are refunded in proportion.
func refundFor(sale *models.Sale, item *models.SaleItem, quantity int) decimal.Decimal {
	gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if sale.Subtotal.IsZero() {
		return decimal.Zero
	}
	return gross.Mul(sale.Total).Div(sale.Subtotal).Round(checkout.MoneyPlaces)
}

func (s *returnsService) CreateReturn(ctx context.Context, orgID, actorID uuid.UUID, req *models.CreateReturnRequest) (*models.SaleReturn, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", models.ErrInvalidQuantity)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required: %w", models.ErrValidation)
	}

	sale, err := s.saleRepo.GetByID(ctx, orgID, req.SaleID)
	if err != nil {
		return nil, err
	}
	if sale.Status != models.SaleCompleted {
		return nil, fmt.Errorf("sale %s is %s: %w", sale.ReceiptNumber, sale.Status, models.ErrInvalidTransition)
	}

	ret := &models.SaleReturn{
		ID:             uuid.New(),
		OrganizationID: orgID,
		SaleID:         sale.ID,
		SaleItemID:     req.SaleItemID,
		Quantity:       req.Quantity,
		Reason:         reason,
		Restock:        req.Restock,
		Status:         models.ReturnPending,
		RequestedBy:    actorID,
		CreatedAt:      s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
		item, err := r.Sales.GetItemForUpdate(ctx, orgID, req.SaleItemID)
		if err != nil {
			return err
		}
		if item.SaleID != sale.ID {
			return fmt.Errorf("item does not belong to sale %s: %w", sale.ReceiptNumber, models.ErrValidation)
		}
		open, err := r.Returns.OpenQuantity(ctx, orgID, item.ID)
		if err != nil {
			return err
		}
		if returnable := item.Quantity - open; req.Quantity > returnable {
			return fmt.Errorf("%d requested, %d returnable: %w", req.Quantity, returnable, models.ErrInvalidQuantity)
		}
		ret.RefundAmount = refundFor(sale, item, req.Quantity)
		return r.Returns.Create(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("return requested",
		zap.String("return_id", ret.ID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.Int("quantity", ret.Quantity))
	recordAudit(ctx, s.audit, s.log, orgID, "sale_returns", ret.ID.String(), models.ActionInsert, actorID, nil, returnValues(ret))
	return ret, nil
}

func (s *returnsService) GetReturn(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	return s.returnRepo.GetByID(ctx, orgID, id)
}

func (s *returnsService) ListReturns(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error) {
	if filter == nil {
		filter = &models.ReturnFilter{}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	switch filter.Status {
	case "", models.ReturnPending, models.ReturnApproved, models.ReturnRejected:
	default:
		return nil, 0, fmt.Errorf("unknown status %q: %w", filter.Status, models.ErrValidation)
	}
	return s.returnRepo.List(ctx, orgID, filter)
}

func (s *returnsService) ApproveReturn(ctx context.Context, orgID, actorID, id uuid.UUID, note string) (*models.SaleReturn, error) {
	return s.decide(ctx, orgID, actorID, id, models.ReturnApproved, note)
}

func (s *returnsService) RejectReturn(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.SaleReturn, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("a rejection reason is required: %w", models.ErrValidation)
	}
	return s.decide(ctx, orgID, actorID, id, models.ReturnRejected, reason)
}

func (s *returnsService) decide(ctx context.Context, orgID, actorID, id uuid.UUID, status, note string) (*models.SaleReturn, error) {
	var ret *models.SaleReturn
	var before models.JSONB
	restocked := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
		var err error
		if ret, err = r.Returns.GetForUpdate(ctx, orgID, id); err != nil {
			return err
		}
		if ret.Status != models.ReturnPending {
			return fmt.Errorf("return is already %s: %w", ret.Status, models.ErrInvalidTransition)
		}
		before = returnValues(ret)

		now := s.now()
		ret.Status = status
		ret.DecidedBy = &actorID
		ret.DecidedAt = &now
		if note = strings.TrimSpace(note); note != "" {
			ret.DecisionNote = &note
		}
		if err := r.Returns.UpdateDecision(ctx, ret); err != nil {
			return err
		}

		if status != models.ReturnApproved || !ret.Restock {
			return nil
		}
		if err := restockReturn(ctx, r, ret, actorID); err != nil {
			return err
		}
		restocked = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := models.ActionReject
	if status == models.ReturnApproved {
		action = models.ActionApprove
	}
	s.log.Info("return decided",
		zap.String("return_id", ret.ID.String()),
		zap.String("status", ret.Status),
		zap.Bool("restocked", restocked))
	recordAudit(ctx, s.audit, s.log, orgID, "sale_returns", ret.ID.String(), action, actorID, before, returnValues(ret))
	if restocked {
		invalidateOrganization(ctx, s.cacheService, s.log, orgID)
	}
	return ret, nil
}

// restockReturn walks the item's allocations newest first, giving each batch
// back at most what it supplied less what earlier returns already put back.
func restockReturn(ctx context.Context, r repositories.TxRepos, ret *models.SaleReturn, actorID uuid.UUID) error {
	allocations, err := r.Sales.ListAllocationsForUpdate(ctx, ret.OrganizationID, ret.SaleItemID)
	if err != nil {
		return err
	}
	remaining := ret.Quantity
	for i := len(allocations) - 1; i >= 0 && remaining > 0; i-- {
		a := allocations[i]
		qty := a.Quantity - a.ReturnedQuantity
		if qty <= 0 {
			continue
		}
		if qty > remaining {
			qty = remaining
		}
		if err := restockBatch(ctx, r, ret.OrganizationID, a.BatchID, qty, models.MovementReturn, ret.ID, actorID); err != nil {
			return err
		}
		if err := r.Sales.AddReturnedQuantity(ctx, ret.OrganizationID, a.ID, qty); err != nil {
			return err
		}
		remaining -= qty
	}
	if remaining > 0 {
		return fmt.Errorf("%d units have no allocation to return to: %w", remaining, models.ErrInvalidQuantity)
	}
	return nil
}

func returnValues(ret *models.SaleReturn) models.JSONB {
	return models.JSONB{
		"sale_id":       ret.SaleID.String(),
		"sale_item_id":  ret.SaleItemID.String(),
		"quantity":      ret.Quantity,
		"status":        ret.Status,
		"restock":       ret.Restock,
		"refund_amount": ret.RefundAmount.String(),
	}
}
