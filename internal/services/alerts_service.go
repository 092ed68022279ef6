package services

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/capacity"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// alertsTTL outlives the job interval so the API keeps serving the last run.
const alertsTTL = 2 * time.Hour

type CapacityAlert struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name"`
	Level        string    `json:"level"` // location, zone, unit
	capacity.EntityUsage
}

// AlertSet is the latest alert snapshot of one organization.
type AlertSet struct {
	OrganizationID uuid.UUID            `json:"organization_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Capacity       []CapacityAlert      `json:"capacity"`
	LowStock       []*models.StockLevel `json:"low_stock"`
	Expiring       []*models.StockBatch `json:"expiring"`
}

func (a *AlertSet) Count() int {
	return len(a.Capacity) + len(a.LowStock) + len(a.Expiring)
}

type AlertsService interface {
	// Get returns the cached snapshot, computing it on a miss.
	Get(ctx context.Context, orgID uuid.UUID) (*AlertSet, error)
	// Refresh recomputes the snapshot and caches it.
	Refresh(ctx context.Context, orgID uuid.UUID) (*AlertSet, error)
}

type alertsService struct {
	storageRepo    repositories.StorageRepository
	batchRepo      repositories.StockBatchRepository
	stockLevelRepo repositories.StockLevelRepository
	orgRepo        repositories.OrganizationRepository
	capacity       CapacityService
	cacheService   caching.CacheService
	expiryDays     int
	log            *zap.Logger
	now            func() time.Time
}

func NewAlertsService(storageRepo repositories.StorageRepository, batchRepo repositories.StockBatchRepository,
	stockLevelRepo repositories.StockLevelRepository, orgRepo repositories.OrganizationRepository,
	capacityService CapacityService, cacheService caching.CacheService, expiryDays int, log *zap.Logger) AlertsService {
	return &alertsService{
		storageRepo:    storageRepo,
		batchRepo:      batchRepo,
		stockLevelRepo: stockLevelRepo,
		orgRepo:        orgRepo,
		capacity:       capacityService,
		cacheService:   cacheService,
		expiryDays:     expiryDays,
		log:            log,
		now:            time.Now,
	}
}

func (s *alertsService) Get(ctx context.Context, orgID uuid.UUID) (*AlertSet, error) {
	key := caching.AlertsKey(orgID)
	var cached AlertSet
	hit, err := s.cacheService.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn("alerts cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}
	return s.Refresh(ctx, orgID)
}

func (s *alertsService) Refresh(ctx context.Context, orgID uuid.UUID) (*AlertSet, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	now := s.now()
	set := &AlertSet{
		OrganizationID: orgID,
		GeneratedAt:    now,
		Capacity:       []CapacityAlert{},
		LowStock:       []*models.StockLevel{},
		Expiring:       []*models.StockBatch{},
	}

	if set.Capacity, err = s.capacityAlerts(ctx, orgID); err != nil {
		return nil, err
	}
	if set.LowStock, err = s.lowStock(ctx, orgID, org.Settings.LowStockThreshold); err != nil {
		return nil, err
	}
	days := org.Settings.ExpiryAlertDays
	if days <= 0 {
		days = s.expiryDays
	}
	expiring, err := s.batchRepo.ListExpiring(ctx, orgID, now.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("expiring batches: %w", err)
	}
	if expiring != nil {
		set.Expiring = expiring
	}

	key := caching.AlertsKey(orgID)
	if err := s.cacheService.SetJSON(ctx, key, set, alertsTTL); err != nil {
		s.log.Warn("alerts cache write failed", zap.String("key", key), zap.Error(err))
	}
	return set, nil
}

const locationPageSize = 100

func (s *alertsService) capacityAlerts(ctx context.Context, orgID uuid.UUID) ([]CapacityAlert, error) {
	alerts := []CapacityAlert{}
	for offset := 0; ; offset += locationPageSize {
		locations, err := s.storageRepo.ListLocations(ctx, orgID, locationPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("locations: %w", err)
		}
		for _, loc := range locations {
			report, err := s.capacity.LocationReport(ctx, orgID, loc.ID)
			if err != nil {
				return nil, fmt.Errorf("capacity of %s: %w", loc.Name, err)
			}
			alerts = append(alerts, reportAlerts(report)...)
		}
		if len(locations) < locationPageSize {
			return alerts, nil
		}
	}
}

func reportAlerts(r *capacity.LocationReport) []CapacityAlert {
	var out []CapacityAlert
	add := func(level string, e capacity.EntityUsage) {
		if e.Status == capacity.StatusNormal {
			return
		}
		out = append(out, CapacityAlert{LocationID: r.LocationID, LocationName: r.Name, Level: level, EntityUsage: e})
	}
	add("location", capacity.EntityUsage{ID: r.LocationID, Name: r.Name, Usage: r.Location})
	for _, z := range r.Zones {
		add("zone", z)
	}
	for _, u := range r.Units {
		add("unit", u)
	}
	return out
}

func (s *alertsService) lowStock(ctx context.Context, orgID uuid.UUID, threshold int) ([]*models.StockLevel, error) {
	filter := &models.StockLevelFilter{SortBy: "quantity"}
	filter.Normalize()
	levels, err := s.stockLevelRepo.ListAll(ctx, orgID, filter, threshold)
	if err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}
	out := []*models.StockLevel{}
	for _, l := range levels {
		if l.Status != models.StockInStock {
			out = append(out, l)
		}
	}
	return out, nil
}
