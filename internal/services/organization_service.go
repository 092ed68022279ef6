package services

import (
	"context"
	"fmt"
	"strings"

	"dukapos/internal/checkout"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrganizationService interface {
	GetSettings(ctx context.Context, orgID uuid.UUID) (*models.OrganizationSettings, error)
	UpdateSettings(ctx context.Context, orgID, actorID uuid.UUID, settings models.OrganizationSettings) (*models.OrganizationSettings, error)
	// Rates resolves the checkout rates of an organization over the configured defaults.
	Rates(ctx context.Context, orgID uuid.UUID) (checkout.Rates, error)
	ListActive(ctx context.Context) ([]*models.Organization, error)
}

type organizationService struct {
	orgRepo  repositories.OrganizationRepository
	defaults checkout.Rates
	audit    AuditLogsService
	log      *zap.Logger
}

func NewOrganizationService(orgRepo repositories.OrganizationRepository, defaults checkout.Rates, audit AuditLogsService, log *zap.Logger) OrganizationService {
	return &organizationService{
		orgRepo:  orgRepo,
		defaults: defaults,
		audit:    audit,
		log:      log,
	}
}

func (s *organizationService) GetSettings(ctx context.Context, orgID uuid.UUID) (*models.OrganizationSettings, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &org.Settings, nil
}

func (s *organizationService) ListActive(ctx context.Context) ([]*models.Organization, error) {
	return s.orgRepo.ListActive(ctx)
}

func (s *organizationService) Rates(ctx context.Context, orgID uuid.UUID) (checkout.Rates, error) {
	settings, err := s.GetSettings(ctx, orgID)
	if err != nil {
		return checkout.Rates{}, err
	}
	return checkout.RatesFromSettings(*settings, s.defaults), nil
}

func (s *organizationService) UpdateSettings(ctx context.Context, orgID, actorID uuid.UUID, settings models.OrganizationSettings) (*models.OrganizationSettings, error) {
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	current, err := s.GetSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.orgRepo.UpdateSettings(ctx, orgID, settings); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, orgID, "organizations", orgID.String(), models.ActionUpdate, actorID,
		settingsValues(*current), settingsValues(settings))
	return &settings, nil
}

func validateSettings(s *models.OrganizationSettings) error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]*decimal.Decimal{"discount_rate": s.DiscountRate, "tax_rate": s.TaxRate} {
		if rate != nil && (rate.IsNegative() || !rate.LessThan(one)) {
			return fmt.Errorf("%s must be in [0,1): %w", name, models.ErrValidation)
		}
	}

	s.ConsumptionPolicy = strings.ToUpper(strings.TrimSpace(s.ConsumptionPolicy))
	switch s.ConsumptionPolicy {
	case models.PolicyFEFO, models.PolicyFIFO, models.PolicyLIFO:
	case "":
		s.ConsumptionPolicy = models.PolicyFEFO
	default:
		return fmt.Errorf("consumption_policy must be FEFO, FIFO or LIFO: %w", models.ErrValidation)
	}

	if s.LowStockThreshold < 0 {
		return fmt.Errorf("low_stock_threshold must not be negative: %w", models.ErrValidation)
	}
	if s.ExpiryAlertDays < 0 {
		return fmt.Errorf("expiry_alert_days must not be negative: %w", models.ErrValidation)
	}
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.Currency == "" {
		s.Currency = models.DefaultOrganizationSettings().Currency
	}
	if len(s.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code: %w", models.ErrValidation)
	}
	if len(s.TaxLabel) > 32 {
		return fmt.Errorf("tax_label must be at most 32 characters: %w", models.ErrValidation)
	}
	return nil
}

func settingsValues(s models.OrganizationSettings) models.JSONB {
	values := models.JSONB{
		"currency":            s.Currency,
		"tax_label":           s.TaxLabel,
		"low_stock_threshold": s.LowStockThreshold,
		"consumption_policy":  s.ConsumptionPolicy,
		"expiry_alert_days":   s.ExpiryAlertDays,
	}
	if s.DiscountRate != nil {
		values["discount_rate"] = s.DiscountRate.String()
	}
	if s.TaxRate != nil {
		values["tax_rate"] = s.TaxRate.String()
	}
	return values
}
