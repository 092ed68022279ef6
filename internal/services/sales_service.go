package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/checkout"
	"dukapos/internal/models"
	"dukapos/internal/payments"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SalesService interface {
	// CreateSale prices, allocates and settles a point-of-sale checkout. Mobile
	// money sales block until the payment is confirmed, fails or times out.
	CreateSale(ctx context.Context, orgID, cashierID uuid.UUID, req *models.CreateSaleRequest) (*models.Sale, error)
	GetSale(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, orgID uuid.UUID, filter *models.SaleFilter) ([]*models.Sale, error)
	Receipt(ctx context.Context, orgID, id uuid.UUID) (*SaleReceipt, error)
	// HandleMPesaCallback publishes a payment result and settles the sale it belongs to.
	HandleMPesaCallback(ctx context.Context, raw []byte) error
}

// SaleReceipt is what a printed receipt needs.
type SaleReceipt struct {
	Sale             *models.Sale
	OrganizationName string
	Currency         string
	TaxLabel         string
}

type salesService struct {
	tx           repositories.TxManager
	saleRepo     repositories.SaleRepository
	productRepo  repositories.ProductRepository
	orgRepo      repositories.OrganizationRepository
	defaults     checkout.Rates
	mpesa        payments.Client
	notifier     payments.Notifier
	awaiter      *payments.Awaiter
	mpesaTimeout time.Duration
	cacheService caching.CacheService
	audit        AuditLogsService
	log          *zap.Logger
	now          func() time.Time
}

type SalesDeps struct {
	Tx           repositories.TxManager
	SaleRepo     repositories.SaleRepository
	ProductRepo  repositories.ProductRepository
	OrgRepo      repositories.OrganizationRepository
	Defaults     checkout.Rates
	MPesa        payments.Client
	Notifier     payments.Notifier
	MPesaTimeout time.Duration
	Cache        caching.CacheService
	Audit        AuditLogsService
	Log          *zap.Logger
}

func NewSalesService(d SalesDeps) SalesService {
	return &salesService{
		tx:           d.Tx,
		saleRepo:     d.SaleRepo,
		productRepo:  d.ProductRepo,
		orgRepo:      d.OrgRepo,
		defaults:     d.Defaults,
		mpesa:        d.MPesa,
		notifier:     d.Notifier,
		awaiter:      payments.NewAwaiter(d.Notifier, d.Log),
		mpesaTimeout: d.MPesaTimeout,
		cacheService: d.Cache,
		audit:        d.Audit,
		log:          d.Log,
		now:          time.Now,
	}
}

// receiptNumber formats RCP-YYYYMMDD-XXXXXX.
func receiptNumber(now time.Time) string {
	return fmt.Sprintf("RCP-%s-%s", now.Format("20060102"), random.String(6, random.Uppercase, random.Numeric))
}

func (s *salesService) GetSale(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error) {
	return s.saleRepo.GetByID(ctx, orgID, id)
}

func (s *salesService) ListSales(ctx context.Context, orgID uuid.UUID, filter *models.SaleFilter) ([]*models.Sale, error) {
	if filter == nil {
		filter = &models.SaleFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("from must be before to: %w", models.ErrValidation)
	}
	return s.saleRepo.List(ctx, orgID, filter)
}

func (s *salesService) Receipt(ctx context.Context, orgID, id uuid.UUID) (*SaleReceipt, error) {
	sale, err := s.saleRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rates := checkout.RatesFromSettings(org.Settings, s.defaults)
	return &SaleReceipt{Sale: sale, OrganizationName: org.Name, Currency: org.Settings.Currency, TaxLabel: rates.TaxLabel}, nil
}

// priceCart loads catalog prices into a checkout session.
func (s *salesService) priceCart(ctx context.Context, orgID uuid.UUID, items []models.SaleItemRequest) (*checkout.Session, error) {
	session := checkout.NewSession()
	for _, it := range items {
		product, err := s.productRepo.GetByID(ctx, orgID, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		var variant *models.ProductVariant
		name := product.Name
		if it.VariantID != nil {
			if variant, err = s.productRepo.GetVariant(ctx, orgID, it.ProductID, *it.VariantID); err != nil {
				return nil, fmt.Errorf("variant %s: %w", *it.VariantID, err)
			}
			name = product.Name + " - " + variant.Name
		}
		if err := session.Add(checkout.LineItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      name,
			Price:     product.UnitPrice(variant),
			Quantity:  it.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return session, nil
}

func (s *salesService) CreateSale(ctx context.Context, orgID, cashierID uuid.UUID, req *models.CreateSaleRequest) (*models.Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("a sale needs at least one item: %w", models.ErrValidation)
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	var phone string
	if method == models.PaymentMPesa {
		if s.mpesa == nil {
			return nil, fmt.Errorf("mpesa payments are not configured: %w", models.ErrValidation)
		}
		if req.Phone == nil {
			return nil, fmt.Errorf("phone is required for mpesa: %w", models.ErrValidation)
		}
		var err error
		if phone, err = payments.NormalizePhone(*req.Phone); err != nil {
			return nil, fmt.Errorf("%v: %w", err, models.ErrValidation)
		}
	}

	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	rates := checkout.RatesFromSettings(org.Settings, s.defaults)

	session, err := s.priceCart(ctx, orgID, req.Items)
	if err != nil {
		return nil, err
	}
	if err := session.SelectMethod(method); err != nil {
		return nil, fmt.Errorf("payment method %q: %w", req.PaymentMethod, models.ErrValidation)
	}
	summary, err := session.Summary(rates)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sale := &models.Sale{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ReceiptNumber:  receiptNumber(now),
		LocationID:     req.LocationID,
		CashierID:      cashierID,
		PaymentMethod:  method,
		Subtotal:       summary.Subtotal,
		Discount:       summary.Discount,
		Tax:            summary.Tax,
		Total:          summary.Total,
		CreatedAt:      now,
	}
	for _, line := range session.Items() {
		sale.Items = append(sale.Items, &models.SaleItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
	}

	switch method {
	case models.PaymentCash:
		if req.AmountPaid == nil || req.AmountPaid.LessThan(summary.Total) {
			return nil, fmt.Errorf("amount paid is less than the total %s: %w", summary.Total.StringFixed(checkout.MoneyPlaces), models.ErrPaymentFailed)
		}
		sale.AmountPaid = *req.AmountPaid
		sale.ChangeDue = checkout.Change(*req.AmountPaid, summary.Total)
		sale.Status = models.SaleCompleted
	case models.PaymentCard:
		// the terminal settles the exact total
		sale.AmountPaid = summary.Total
		sale.ChangeDue = decimal.Zero
		sale.Status = models.SaleCompleted
	case models.PaymentMPesa:
		sale.AmountPaid = decimal.Zero
		sale.ChangeDue = decimal.Zero
		sale.CustomerPhone = &phone
		sale.Status = models.SalePendingPayment
	}

	if err := session.Begin(); err != nil {
		return nil, err
	}
	policy := org.Settings.Policy()
	err = s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
		if err := r.Sales.Create(ctx, sale); err != nil {
			return err
		}
		for _, item := range sale.Items {
			allocations, err := allocateItem(ctx, r, sale, item, policy, now)
			if err != nil {
				return err
			}
			if err := r.Sales.CreateAllocations(ctx, orgID, allocations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = session.Fail(err.Error())
		return nil, err
	}
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)

	if method == models.PaymentMPesa {
		if err := s.collectMPesa(ctx, sale); err != nil {
			_ = session.Fail(err.Error())
			return sale, err
		}
	}
	if err := session.Succeed(sale.ReceiptNumber); err != nil {
		return nil, err
	}

	s.log.Info("sale completed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.String("payment_method", method),
		zap.String("total", sale.Total.String()))
	recordAudit(ctx, s.audit, s.log, orgID, "sales", sale.ID.String(), models.ActionInsert, cashierID, nil, models.JSONB{
		"receipt_number": sale.ReceiptNumber,
		"payment_method": method,
		"status":         sale.Status,
		"total":          sale.Total.String(),
	})
	return sale, nil
}

// collectMPesa sends the STK prompt and waits for the confirmation. The sale is
// settled by whichever of this wait and the callback gets there first.
func (s *salesService) collectMPesa(ctx context.Context, sale *models.Sale) error {
	resp, err := s.mpesa.STKPush(ctx, payments.STKPushRequest{
		Phone:     *sale.CustomerPhone,
		Amount:    sale.Total,
		Reference: sale.ReceiptNumber,
	})
	if err != nil {
		s.log.Error("stk push failed", zap.String("sale_id", sale.ID.String()), zap.Error(err))
		s.settleByID(ctx, sale, models.MPesaResult{ResultCode: resultLocalFailure, ResultDesc: "payment prompt could not be sent"})
		return fmt.Errorf("stk push: %v: %w", err, models.ErrPaymentFailed)
	}

	checkoutID := resp.CheckoutRequestID
	sale.MPesaCheckoutRequestID = &checkoutID
	pending, err := s.awaiter.Open(ctx, checkoutID)
	if err != nil {
		s.settleByID(ctx, sale, models.MPesaResult{CheckoutRequestID: checkoutID, ResultCode: resultLocalFailure, ResultDesc: "payment confirmation unavailable"})
		return fmt.Errorf("subscribe for payment result: %w", err)
	}
	defer pending.Close()

	if err := s.saleRepo.SetCheckoutRequestID(ctx, sale.OrganizationID, sale.ID, checkoutID); err != nil {
		s.settleByID(ctx, sale, models.MPesaResult{CheckoutRequestID: checkoutID, ResultCode: resultLocalFailure, ResultDesc: "payment could not be tracked"})
		return err
	}

	result, err := pending.Wait(ctx, s.mpesaTimeout)
	switch {
	case errors.Is(err, models.ErrPaymentTimeout):
		s.settleByID(ctx, sale, models.MPesaResult{CheckoutRequestID: checkoutID, ResultCode: resultLocalFailure, ResultDesc: "payment confirmation timed out"})
		return err
	case err != nil:
		// the client went away; the callback can still settle the sale
		return err
	}

	s.settleByID(ctx, sale, result)
	if sale.Status == models.SaleFailed {
		reason := result.ResultDesc
		if sale.FailureReason != nil {
			reason = *sale.FailureReason
		}
		return fmt.Errorf("%s: %w", reason, models.ErrPaymentFailed)
	}
	if !result.Succeeded() {
		return fmt.Errorf("%s: %w", result.ResultDesc, models.ErrPaymentFailed)
	}
	return nil
}

// Result codes for outcomes decided here rather than by Daraja.
const (
	resultLocalFailure   = -1
	resultAmountMismatch = -2
)

func (s *salesService) settleByID(ctx context.Context, sale *models.Sale, result models.MPesaResult) {
	settled, err := s.settle(context.WithoutCancel(ctx), func(ctx context.Context, r repositories.TxRepos) (*models.Sale, error) {
		return r.Sales.GetForUpdate(ctx, sale.OrganizationID, sale.ID)
	}, result)
	if err != nil {
		s.log.Error("failed to settle sale", zap.String("sale_id", sale.ID.String()), zap.Error(err))
		return
	}
	items := sale.Items
	*sale = *settled
	sale.Items = items
}

// settle applies a payment result to a pending sale. A sale that is no longer
// pending is returned unchanged, so repeated results are harmless. A failed
// payment puts the allocated stock back.
func (s *salesService) settle(ctx context.Context, lookup func(context.Context, repositories.TxRepos) (*models.Sale, error), result models.MPesaResult) (*models.Sale, error) {
	var sale *models.Sale
	released := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
		var err error
		if sale, err = lookup(ctx, r); err != nil {
			return err
		}
		if sale.Status != models.SalePendingPayment {
			return nil
		}

		charged := payments.ChargeAmount(sale.Total)
		if result.Succeeded() && !result.Amount.Equal(charged) {
			s.log.Error("mpesa amount does not match sale",
				zap.String("sale_id", sale.ID.String()),
				zap.String("checkout_request_id", result.CheckoutRequestID),
				zap.String("expected", charged.String()),
				zap.String("paid", result.Amount.String()),
				zap.String("mpesa_receipt", result.ReceiptNumber))
			result.ResultCode = resultAmountMismatch
			result.ResultDesc = fmt.Sprintf("paid %s, expected %s", result.Amount.StringFixed(2), charged.StringFixed(2))
		}

		if result.Succeeded() {
			sale.Status = models.SaleCompleted
			sale.AmountPaid = sale.Total
			if result.ReceiptNumber != "" {
				receipt := result.ReceiptNumber
				sale.MPesaReceiptNumber = &receipt
			}
		} else {
			sale.Status = models.SaleFailed
			reason := result.ResultDesc
			sale.FailureReason = &reason
		}
		changed, err := r.Sales.UpdateStatus(ctx, sale, models.SalePendingPayment)
		if err != nil || !changed || sale.Status != models.SaleFailed {
			return err
		}

		allocations, err := r.Sales.ListAllocationsBySale(ctx, sale.OrganizationID, sale.ID)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			if err := restockBatch(ctx, r, sale.OrganizationID, a.BatchID, a.Quantity, models.MovementAdjustment, sale.ID, sale.CashierID); err != nil {
				return err
			}
		}
		released = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale settled",
		zap.String("sale_id", sale.ID.String()),
		zap.String("status", sale.Status),
		zap.Bool("stock_released", released))
	if released {
		invalidateOrganization(ctx, s.cacheService, s.log, sale.OrganizationID)
	}
	return sale, nil
}

func (s *salesService) HandleMPesaCallback(ctx context.Context, raw []byte) error {
	result, err := payments.ParseCallback(raw)
	if err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrValidation)
	}
	s.log.Info("mpesa callback received",
		zap.String("checkout_request_id", result.CheckoutRequestID),
		zap.Int("result_code", result.ResultCode))

	if err := s.notifier.Publish(ctx, result); err != nil {
		// the sale is still settled below; a waiting request falls back to its timeout
		s.log.Warn("failed to publish mpesa result", zap.String("checkout_request_id", result.CheckoutRequestID), zap.Error(err))
	}

	_, err = s.settle(ctx, func(ctx context.Context, r repositories.TxRepos) (*models.Sale, error) {
		return r.Sales.GetByCheckoutRequestIDForUpdate(ctx, result.CheckoutRequestID)
	}, result)
	if errors.Is(err, models.ErrNotFound) {
		// the push response has not been recorded yet; the waiting request settles it
		s.log.Warn("mpesa callback for unknown checkout request", zap.String("checkout_request_id", result.CheckoutRequestID))
		return nil
	}
	return err
}
