package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dukapos/internal/caching"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WarehouseService manages the storage hierarchy: locations, zones, storage units and positions.
type WarehouseService interface {
	CreateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error
	GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error)
	ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error)
	UpdateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error
	DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error

	CreateZone(ctx context.Context, orgID, locationID uuid.UUID, zone *models.StorageZone) error
	GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error)
	ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error)
	UpdateZone(ctx context.Context, orgID uuid.UUID, zone *models.StorageZone) (*models.StorageZone, error)
	DeleteZone(ctx context.Context, orgID, id uuid.UUID) error

	CreateUnit(ctx context.Context, orgID, locationID uuid.UUID, unit *models.StorageUnit) error
	GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error)
	ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error)
	// UpdateUnit changes a unit's details. A unit holding stock keeps its zone.
	UpdateUnit(ctx context.Context, orgID uuid.UUID, unit *models.StorageUnit) (*models.StorageUnit, error)
	DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error

	CreatePosition(ctx context.Context, orgID, unitID uuid.UUID, pos *models.StoragePosition) error
	GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error)
	ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error)
	RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) (*models.StoragePosition, error)
	DeletePosition(ctx context.Context, orgID, id uuid.UUID) error
}

type warehouseService struct {
	storageRepo  repositories.StorageRepository
	cacheService caching.CacheService
	log          *zap.Logger
}

func NewWarehouseService(storageRepo repositories.StorageRepository, cacheService caching.CacheService, log *zap.Logger) WarehouseService {
	return &warehouseService{
		storageRepo:  storageRepo,
		cacheService: cacheService,
		log:          log,
	}
}

func requireName(name *string, field string) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return fmt.Errorf("%s is required: %w", field, models.ErrValidation)
	}
	if len(*name) > 255 {
		return fmt.Errorf("%s must be less than 255 characters: %w", field, models.ErrValidation)
	}
	return nil
}

func requireCapacity(capacity float64, field string) error {
	if capacity < 0 {
		return fmt.Errorf("%s must not be negative: %w", field, models.ErrValidation)
	}
	return nil
}

func (s *warehouseService) CreateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error {
	if err := requireName(&loc.Name, "name"); err != nil {
		return err
	}
	if err := requireCapacity(loc.TotalCapacity, "total_capacity"); err != nil {
		return err
	}
	if loc.CapacityUnit == "" {
		loc.CapacityUnit = "units"
	}
	loc.ID = uuid.New()
	loc.OrganizationID = orgID
	loc.CapacityUsed = 0
	return s.storageRepo.CreateLocation(ctx, loc)
}

func (s *warehouseService) GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error) {
	return s.storageRepo.GetLocation(ctx, orgID, id)
}

func (s *warehouseService) ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error) {
	return s.storageRepo.ListLocations(ctx, orgID, limit, offset)
}

func (s *warehouseService) UpdateLocation(ctx context.Context, orgID uuid.UUID, loc *models.InventoryLocation) error {
	if err := requireName(&loc.Name, "name"); err != nil {
		return err
	}
	if err := requireCapacity(loc.TotalCapacity, "total_capacity"); err != nil {
		return err
	}
	loc.OrganizationID = orgID
	if err := s.storageRepo.UpdateLocation(ctx, loc); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.storageRepo.DeleteLocation(ctx, orgID, id); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) CreateZone(ctx context.Context, orgID, locationID uuid.UUID, zone *models.StorageZone) error {
	if err := requireName(&zone.Name, "name"); err != nil {
		return err
	}
	if err := requireCapacity(zone.Capacity, "capacity"); err != nil {
		return err
	}
	if _, err := s.storageRepo.GetLocation(ctx, orgID, locationID); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	zone.ID = uuid.New()
	zone.OrganizationID = orgID
	zone.LocationID = locationID
	zone.CapacityUsed = 0
	if err := s.storageRepo.CreateZone(ctx, zone); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error) {
	return s.storageRepo.ListZones(ctx, orgID, locationID)
}

func (s *warehouseService) GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error) {
	return s.storageRepo.GetZone(ctx, orgID, id)
}

func (s *warehouseService) UpdateZone(ctx context.Context, orgID uuid.UUID, zone *models.StorageZone) (*models.StorageZone, error) {
	if err := requireName(&zone.Name, "name"); err != nil {
		return nil, err
	}
	if err := requireCapacity(zone.Capacity, "capacity"); err != nil {
		return nil, err
	}
	current, err := s.storageRepo.GetZone(ctx, orgID, zone.ID)
	if err != nil {
		return nil, err
	}
	current.Name = zone.Name
	current.Capacity = zone.Capacity
	if err := s.storageRepo.UpdateZone(ctx, current); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	return current, nil
}

func (s *warehouseService) DeleteZone(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.storageRepo.DeleteZone(ctx, orgID, id); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) CreateUnit(ctx context.Context, orgID, locationID uuid.UUID, unit *models.StorageUnit) error {
	if err := requireName(&unit.Name, "name"); err != nil {
		return err
	}
	if err := requireCapacity(unit.Capacity, "capacity"); err != nil {
		return err
	}
	if _, err := s.storageRepo.GetLocation(ctx, orgID, locationID); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if err := s.requireZoneIn(ctx, orgID, locationID, unit.ZoneID); err != nil {
		return err
	}
	if unit.UnitType == "" {
		unit.UnitType = "shelf"
	}
	if unit.CapacityUnit == "" {
		unit.CapacityUnit = "units"
	}
	unit.ID = uuid.New()
	unit.OrganizationID = orgID
	unit.LocationID = locationID
	unit.CapacityUsed = 0
	if err := s.storageRepo.CreateUnit(ctx, unit); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error) {
	return s.storageRepo.ListUnits(ctx, orgID, locationID)
}

// requireZoneIn checks that zoneID, when set, belongs to the location.
func (s *warehouseService) requireZoneIn(ctx context.Context, orgID, locationID uuid.UUID, zoneID *uuid.UUID) error {
	if zoneID == nil {
		return nil
	}
	zone, err := s.storageRepo.GetZone(ctx, orgID, *zoneID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && zone.LocationID != locationID) {
		return fmt.Errorf("zone %s is not in this location: %w", zoneID, models.ErrValidation)
	}
	return err
}

func (s *warehouseService) GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error) {
	return s.storageRepo.GetUnit(ctx, orgID, id)
}

func (s *warehouseService) UpdateUnit(ctx context.Context, orgID uuid.UUID, unit *models.StorageUnit) (*models.StorageUnit, error) {
	if err := requireName(&unit.Name, "name"); err != nil {
		return nil, err
	}
	if err := requireCapacity(unit.Capacity, "capacity"); err != nil {
		return nil, err
	}
	current, err := s.storageRepo.GetUnit(ctx, orgID, unit.ID)
	if err != nil {
		return nil, err
	}
	if !sameZone(current.ZoneID, unit.ZoneID) {
		// zone counters already include this unit's stock
		if current.CapacityUsed > 0 {
			return nil, fmt.Errorf("storage unit %s holds stock and cannot change zone: %w", current.Name, models.ErrValidation)
		}
		if err := s.requireZoneIn(ctx, orgID, current.LocationID, unit.ZoneID); err != nil {
			return nil, err
		}
		current.ZoneID = unit.ZoneID
	}
	current.Name = unit.Name
	current.Capacity = unit.Capacity
	if unit.UnitType != "" {
		current.UnitType = unit.UnitType
	}
	if unit.CapacityUnit != "" {
		current.CapacityUnit = unit.CapacityUnit
	}
	if err := s.storageRepo.UpdateUnit(ctx, current); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	return current, nil
}

func (s *warehouseService) DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.storageRepo.DeleteUnit(ctx, orgID, id); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *warehouseService) CreatePosition(ctx context.Context, orgID, unitID uuid.UUID, pos *models.StoragePosition) error {
	if err := requireName(&pos.Name, "name"); err != nil {
		return err
	}
	if _, err := s.storageRepo.GetUnit(ctx, orgID, unitID); err != nil {
		return fmt.Errorf("storage unit: %w", err)
	}
	pos.ID = uuid.New()
	pos.OrganizationID = orgID
	pos.StorageUnitID = unitID
	pos.IsOccupied = false
	return s.storageRepo.CreatePosition(ctx, pos)
}

func (s *warehouseService) ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error) {
	return s.storageRepo.ListPositions(ctx, orgID, unitID)
}

func (s *warehouseService) GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error) {
	return s.storageRepo.GetPosition(ctx, orgID, id)
}

func (s *warehouseService) RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) (*models.StoragePosition, error) {
	if err := requireName(&name, "name"); err != nil {
		return nil, err
	}
	if err := s.storageRepo.RenamePosition(ctx, orgID, id, name); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	return s.storageRepo.GetPosition(ctx, orgID, id)
}

func (s *warehouseService) DeletePosition(ctx context.Context, orgID, id uuid.UUID) error {
	return s.storageRepo.DeletePosition(ctx, orgID, id)
}

func (s *warehouseService) invalidate(ctx context.Context, orgID uuid.UUID) {
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)
}
