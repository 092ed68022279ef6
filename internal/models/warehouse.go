package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLocation is a warehouse or store. CapacityUsed is kept in step with the
// stock placed at the location by every write that changes placement.
type InventoryLocation struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Address        *string   `json:"address" db:"address"`
	TotalCapacity  float64   `json:"total_capacity" db:"total_capacity"`
	CapacityUnit   string    `json:"capacity_unit" db:"capacity_unit"`
	CapacityUsed   float64   `json:"capacity_used" db:"capacity_used"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type StorageZone struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	LocationID     uuid.UUID `json:"location_id" db:"location_id"`
	Name           string    `json:"name" db:"name"`
	Capacity       float64   `json:"capacity" db:"capacity"`
	CapacityUsed   float64   `json:"capacity_used" db:"capacity_used"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type StorageUnit struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	LocationID     uuid.UUID  `json:"location_id" db:"location_id"`
	ZoneID         *uuid.UUID `json:"zone_id" db:"zone_id"`
	Name           string     `json:"name" db:"name"`
	UnitType       string     `json:"unit_type" db:"unit_type"`
	Capacity       float64    `json:"capacity" db:"capacity"`
	CapacityUsed   float64    `json:"capacity_used" db:"capacity_used"`
	CapacityUnit   string     `json:"capacity_unit" db:"capacity_unit"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// StoragePosition is the smallest slot; it holds at most one batch.
type StoragePosition struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	StorageUnitID  uuid.UUID `json:"storage_unit_id" db:"storage_unit_id"`
	Name           string    `json:"name" db:"name"`
	IsOccupied     bool      `json:"is_occupied" db:"is_occupied"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// PositionPlacement is a position resolved up the hierarchy.
type PositionPlacement struct {
	Position   StoragePosition
	UnitID     uuid.UUID
	ZoneID     *uuid.UUID
	LocationID uuid.UUID
}

// LocationAggregate is everything the capacity report needs for one location.
type LocationAggregate struct {
	Location      InventoryLocation
	Zones         []StorageZone
	Units         []StorageUnit
	CategoryUsage map[string]int
}
