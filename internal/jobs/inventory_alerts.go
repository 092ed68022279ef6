package jobs

import (
	"context"
	"sync"

	"dukapos/internal/repositories"
	"dukapos/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxConcurrentOrgs bounds how many organizations are refreshed at once.
const maxConcurrentOrgs = 5

// InventoryAlertJob recomputes the alert snapshot of every active organization.
type InventoryAlertJob struct {
	orgRepo repositories.OrganizationRepository
	alerts  services.AlertsService
	log     *zap.Logger
}

func NewInventoryAlertJob(orgRepo repositories.OrganizationRepository, alerts services.AlertsService, log *zap.Logger) *InventoryAlertJob {
	return &InventoryAlertJob{
		orgRepo: orgRepo,
		alerts:  alerts,
		log:     log,
	}
}

// RunSummary counts what one run did.
type RunSummary struct {
	Organizations int
	Failed        int
	Alerts        int
}

// Run refreshes all organizations. A failing organization is logged and skipped.
func (j *InventoryAlertJob) Run(ctx context.Context) (RunSummary, error) {
	orgs, err := j.orgRepo.ListActive(ctx)
	if err != nil {
		j.log.Error("failed to list organizations for alerts", zap.Error(err))
		return RunSummary{}, err
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		summary = RunSummary{Organizations: len(orgs)}
	)
	semaphore := make(chan struct{}, maxConcurrentOrgs)

	for _, org := range orgs {
		wg.Add(1)
		go func(orgID uuid.UUID, name string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			count, err := j.refresh(ctx, orgID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				j.log.Error("alert refresh failed", zap.String("organization_id", orgID.String()), zap.String("organization", name), zap.Error(err))
				summary.Failed++
				return
			}
			summary.Alerts += count
		}(org.ID, org.Name)
	}
	wg.Wait()

	j.log.Info("inventory alerts refreshed",
		zap.Int("organizations", summary.Organizations),
		zap.Int("failed", summary.Failed),
		zap.Int("alerts", summary.Alerts))
	return summary, nil
}

func (j *InventoryAlertJob) refresh(ctx context.Context, orgID uuid.UUID) (int, error) {
	set, err := j.alerts.Refresh(ctx, orgID)
	if err != nil {
		return 0, err
	}
	j.logAlerts(set)
	return set.Count(), nil
}

func (j *InventoryAlertJob) logAlerts(set *services.AlertSet) {
	org := zap.String("organization_id", set.OrganizationID.String())
	for _, a := range set.Capacity {
		j.log.Warn("capacity alert", org,
			zap.String("location", a.LocationName),
			zap.String("level", a.Level),
			zap.String("name", a.Name),
			zap.Float64("percentage", a.Percentage),
			zap.String("status", string(a.Status)))
	}
	for _, l := range set.LowStock {
		j.log.Warn("low stock alert", org,
			zap.String("product", l.ProductName),
			zap.Int("quantity", l.Quantity),
			zap.Int("reorder_level", l.ReorderLevel),
			zap.String("status", l.Status))
	}
	for _, b := range set.Expiring {
		fields := []zap.Field{org, zap.String("batch_number", b.BatchNumber), zap.Int("quantity", b.CurrentQuantity)}
		if b.ExpiryDate != nil {
			fields = append(fields, zap.Time("expiry_date", *b.ExpiryDate))
		}
		j.log.Warn("batch expiring", fields...)
	}
}
