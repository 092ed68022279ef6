package services

import (
	"context"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/capacity"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const capacityReportTTL = 2 * time.Minute

type CapacityService interface {
	LocationReport(ctx context.Context, orgID, locationID uuid.UUID) (*capacity.LocationReport, error)
}

type capacityService struct {
	storageRepo  repositories.StorageRepository
	cacheService caching.CacheService
	log          *zap.Logger
}

func NewCapacityService(storageRepo repositories.StorageRepository, cacheService caching.CacheService, log *zap.Logger) CapacityService {
	return &capacityService{
		storageRepo:  storageRepo,
		cacheService: cacheService,
		log:          log,
	}
}

func (s *capacityService) LocationReport(ctx context.Context, orgID, locationID uuid.UUID) (*capacity.LocationReport, error) {
	key := caching.CapacityKey(orgID, locationID)

	var cached capacity.LocationReport
	hit, err := s.cacheService.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn("capacity cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	agg, err := s.storageRepo.LoadAggregate(ctx, orgID, locationID)
	if err != nil {
		return nil, err
	}
	report := capacity.BuildLocationReport(*agg)

	if err := s.cacheService.SetJSON(ctx, key, report, capacityReportTTL); err != nil {
		s.log.Warn("capacity cache write failed", zap.String("key", key), zap.Error(err))
	}
	return &report, nil
}
