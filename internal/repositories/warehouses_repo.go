package repositories

import (
	"context"
	"fmt"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

// StorageRepository covers the location > zone > unit > position hierarchy and
// the capacity counters kept on it.
type StorageRepository interface {
	CreateLocation(ctx context.Context, loc *models.InventoryLocation) error
	GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error)
	ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error)
	UpdateLocation(ctx context.Context, loc *models.InventoryLocation) error
	DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error

	CreateZone(ctx context.Context, zone *models.StorageZone) error
	GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error)
	ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error)
	UpdateZone(ctx context.Context, zone *models.StorageZone) error
	DeleteZone(ctx context.Context, orgID, id uuid.UUID) error

	CreateUnit(ctx context.Context, unit *models.StorageUnit) error
	GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error)
	ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error)
	UpdateUnit(ctx context.Context, unit *models.StorageUnit) error
	DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error

	CreatePosition(ctx context.Context, pos *models.StoragePosition) error
	GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error)
	ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error)
	RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) error
	// DeletePosition removes a free position; an occupied one yields ErrPositionOccupied.
	DeletePosition(ctx context.Context, orgID, id uuid.UUID) error

	GetPlacementForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.PositionPlacement, error)
	SetPositionOccupied(ctx context.Context, orgID, positionID uuid.UUID, occupied bool) error
	AdjustUnitUsage(ctx context.Context, orgID, unitID uuid.UUID, delta float64) error
	AdjustZoneUsage(ctx context.Context, orgID, zoneID uuid.UUID, delta float64) error
	AdjustLocationUsage(ctx context.Context, orgID, locationID uuid.UUID, delta float64) error

	LoadAggregate(ctx context.Context, orgID, locationID uuid.UUID) (*models.LocationAggregate, error)
}

type storageRepo struct {
	db DBTX
}

func NewStorageRepo(db DBTX) StorageRepository {
	return &storageRepo{db: db}
}

func (r *storageRepo) CreateLocation(ctx context.Context, loc *models.InventoryLocation) error {
	query := `
		INSERT INTO inventory_locations (id, organization_id, name, address, total_capacity, capacity_unit, capacity_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, loc.ID, loc.OrganizationID, loc.Name, loc.Address, loc.TotalCapacity, loc.CapacityUnit)
	return wrapErr("create location", err)
}

func (r *storageRepo) GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error) {
	loc := &models.InventoryLocation{}
	query := `
		SELECT id, organization_id, name, address, total_capacity, capacity_unit, capacity_used, created_at, updated_at
		FROM inventory_locations
		WHERE organization_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&loc.ID, &loc.OrganizationID, &loc.Name, &loc.Address, &loc.TotalCapacity, &loc.CapacityUnit, &loc.CapacityUsed, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get location", err)
	}
	return loc, nil
}

func (r *storageRepo) ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error) {
	query := `
		SELECT id, organization_id, name, address, total_capacity, capacity_unit, capacity_used, created_at, updated_at
		FROM inventory_locations
		WHERE organization_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, wrapErr("list locations", err)
	}
	defer rows.Close()

	var locations []*models.InventoryLocation
	for rows.Next() {
		loc := &models.InventoryLocation{}
		if err := rows.Scan(&loc.ID, &loc.OrganizationID, &loc.Name, &loc.Address, &loc.TotalCapacity, &loc.CapacityUnit, &loc.CapacityUsed, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, wrapErr("list locations", err)
		}
		locations = append(locations, loc)
	}
	return locations, wrapErr("list locations", rows.Err())
}

func (r *storageRepo) UpdateLocation(ctx context.Context, loc *models.InventoryLocation) error {
	query := `
		UPDATE inventory_locations
		SET name = $1, address = $2, total_capacity = $3, capacity_unit = $4, updated_at = NOW()
		WHERE organization_id = $5 AND id = $6
	`
	tag, err := r.db.Exec(ctx, query, loc.Name, loc.Address, loc.TotalCapacity, loc.CapacityUnit, loc.OrganizationID, loc.ID)
	return affectedOne("update location", tag, err)
}

func (r *storageRepo) DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error {
	query := `DELETE FROM inventory_locations WHERE organization_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, orgID, id)
	return affectedOne("delete location", tag, err)
}

func (r *storageRepo) CreateZone(ctx context.Context, zone *models.StorageZone) error {
	query := `
		INSERT INTO storage_zones (id, organization_id, location_id, name, capacity, capacity_used, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW())
	`
	_, err := r.db.Exec(ctx, query, zone.ID, zone.OrganizationID, zone.LocationID, zone.Name, zone.Capacity)
	return wrapErr("create zone", err)
}

func (r *storageRepo) GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error) {
	z := &models.StorageZone{}
	query := `
		SELECT id, organization_id, location_id, name, capacity, capacity_used, created_at
		FROM storage_zones
		WHERE organization_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&z.ID, &z.OrganizationID, &z.LocationID, &z.Name, &z.Capacity, &z.CapacityUsed, &z.CreatedAt)
	if err != nil {
		return nil, wrapErr("get zone", err)
	}
	return z, nil
}

func (r *storageRepo) UpdateZone(ctx context.Context, zone *models.StorageZone) error {
	query := `UPDATE storage_zones SET name = $1, capacity = $2 WHERE organization_id = $3 AND id = $4`
	tag, err := r.db.Exec(ctx, query, zone.Name, zone.Capacity, zone.OrganizationID, zone.ID)
	return affectedOne("update zone", tag, err)
}

func (r *storageRepo) ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error) {
	query := `
		SELECT id, organization_id, location_id, name, capacity, capacity_used, created_at
		FROM storage_zones
		WHERE organization_id = $1 AND location_id = $2
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID, locationID)
	if err != nil {
		return nil, wrapErr("list zones", err)
	}
	defer rows.Close()

	var zones []*models.StorageZone
	for rows.Next() {
		z := &models.StorageZone{}
		if err := rows.Scan(&z.ID, &z.OrganizationID, &z.LocationID, &z.Name, &z.Capacity, &z.CapacityUsed, &z.CreatedAt); err != nil {
			return nil, wrapErr("list zones", err)
		}
		zones = append(zones, z)
	}
	return zones, wrapErr("list zones", rows.Err())
}

func (r *storageRepo) DeleteZone(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM storage_zones WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete zone", tag, err)
}

const unitColumns = `id, organization_id, location_id, zone_id, name, unit_type, capacity, capacity_used, capacity_unit, created_at`

func (r *storageRepo) CreateUnit(ctx context.Context, u *models.StorageUnit) error {
	query := `
		INSERT INTO storage_units (id, organization_id, location_id, zone_id, name, unit_type, capacity, capacity_used, capacity_unit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, NOW())
	`
	_, err := r.db.Exec(ctx, query, u.ID, u.OrganizationID, u.LocationID, u.ZoneID, u.Name, u.UnitType, u.Capacity, u.CapacityUnit)
	return wrapErr("create storage unit", err)
}

func (r *storageRepo) GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error) {
	u := &models.StorageUnit{}
	query := `SELECT ` + unitColumns + ` FROM storage_units WHERE organization_id = $1 AND id = $2`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&u.ID, &u.OrganizationID, &u.LocationID, &u.ZoneID, &u.Name, &u.UnitType, &u.Capacity, &u.CapacityUsed, &u.CapacityUnit, &u.CreatedAt)
	if err != nil {
		return nil, wrapErr("get storage unit", err)
	}
	return u, nil
}

func (r *storageRepo) ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM storage_units WHERE organization_id = $1 AND location_id = $2 ORDER BY name`
	rows, err := r.db.Query(ctx, query, orgID, locationID)
	if err != nil {
		return nil, wrapErr("list storage units", err)
	}
	defer rows.Close()

	var units []*models.StorageUnit
	for rows.Next() {
		u := &models.StorageUnit{}
		if err := rows.Scan(&u.ID, &u.OrganizationID, &u.LocationID, &u.ZoneID, &u.Name, &u.UnitType, &u.Capacity, &u.CapacityUsed, &u.CapacityUnit, &u.CreatedAt); err != nil {
			return nil, wrapErr("list storage units", err)
		}
		units = append(units, u)
	}
	return units, wrapErr("list storage units", rows.Err())
}

func (r *storageRepo) UpdateUnit(ctx context.Context, u *models.StorageUnit) error {
	query := `
		UPDATE storage_units
		SET zone_id = $1, name = $2, unit_type = $3, capacity = $4, capacity_unit = $5
		WHERE organization_id = $6 AND id = $7
	`
	tag, err := r.db.Exec(ctx, query, u.ZoneID, u.Name, u.UnitType, u.Capacity, u.CapacityUnit, u.OrganizationID, u.ID)
	return affectedOne("update storage unit", tag, err)
}

func (r *storageRepo) DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM storage_units WHERE organization_id = $1 AND id = $2`, orgID, id)
	return affectedOne("delete storage unit", tag, err)
}

func (r *storageRepo) CreatePosition(ctx context.Context, p *models.StoragePosition) error {
	query := `
		INSERT INTO storage_positions (id, organization_id, storage_unit_id, name, is_occupied, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.OrganizationID, p.StorageUnitID, p.Name)
	return wrapErr("create position", err)
}

func (r *storageRepo) GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error) {
	p := &models.StoragePosition{}
	query := `
		SELECT id, organization_id, storage_unit_id, name, is_occupied, created_at
		FROM storage_positions
		WHERE organization_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&p.ID, &p.OrganizationID, &p.StorageUnitID, &p.Name, &p.IsOccupied, &p.CreatedAt)
	if err != nil {
		return nil, wrapErr("get position", err)
	}
	return p, nil
}

func (r *storageRepo) RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE storage_positions SET name = $1 WHERE organization_id = $2 AND id = $3`, name, orgID, id)
	return affectedOne("rename position", tag, err)
}

func (r *storageRepo) ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error) {
	query := `
		SELECT id, organization_id, storage_unit_id, name, is_occupied, created_at
		FROM storage_positions
		WHERE organization_id = $1 AND storage_unit_id = $2
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID, unitID)
	if err != nil {
		return nil, wrapErr("list positions", err)
	}
	defer rows.Close()

	var positions []*models.StoragePosition
	for rows.Next() {
		p := &models.StoragePosition{}
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.StorageUnitID, &p.Name, &p.IsOccupied, &p.CreatedAt); err != nil {
			return nil, wrapErr("list positions", err)
		}
		positions = append(positions, p)
	}
	return positions, wrapErr("list positions", rows.Err())
}

func (r *storageRepo) DeletePosition(ctx context.Context, orgID, id uuid.UUID) error {
	var occupied bool
	err := r.db.QueryRow(ctx, `SELECT is_occupied FROM storage_positions WHERE organization_id = $1 AND id = $2`, orgID, id).Scan(&occupied)
	if err != nil {
		return wrapErr("delete position", err)
	}
	if occupied {
		return fmt.Errorf("delete position: %w", models.ErrPositionOccupied)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM storage_positions WHERE organization_id = $1 AND id = $2 AND is_occupied = FALSE`, orgID, id)
	if err == nil && tag.RowsAffected() == 0 {
		// occupied between the check and the delete
		return fmt.Errorf("delete position: %w", models.ErrPositionOccupied)
	}
	return wrapErr("delete position", err)
}

func (r *storageRepo) GetPlacementForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.PositionPlacement, error) {
	pl := &models.PositionPlacement{}
	p := &pl.Position
	query := `
		SELECT p.id, p.organization_id, p.storage_unit_id, p.name, p.is_occupied, p.created_at,
			u.id, u.zone_id, u.location_id
		FROM storage_positions p
		JOIN storage_units u ON u.id = p.storage_unit_id AND u.organization_id = p.organization_id
		WHERE p.organization_id = $1 AND p.id = $2
		FOR UPDATE OF p
	`
	err := r.db.QueryRow(ctx, query, orgID, positionID).Scan(&p.ID, &p.OrganizationID, &p.StorageUnitID, &p.Name, &p.IsOccupied, &p.CreatedAt,
		&pl.UnitID, &pl.ZoneID, &pl.LocationID)
	if err != nil {
		return nil, wrapErr("lock position", err)
	}
	return pl, nil
}

func (r *storageRepo) SetPositionOccupied(ctx context.Context, orgID, positionID uuid.UUID, occupied bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE storage_positions SET is_occupied = $1 WHERE organization_id = $2 AND id = $3`, occupied, orgID, positionID)
	return affectedOne("update position occupancy", tag, err)
}

// Counters never go below zero; the capacity calculator reports the over-capacity case.
func (r *storageRepo) AdjustUnitUsage(ctx context.Context, orgID, unitID uuid.UUID, delta float64) error {
	query := `UPDATE storage_units SET capacity_used = GREATEST(capacity_used + $1, 0) WHERE organization_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, delta, orgID, unitID)
	return affectedOne("adjust unit usage", tag, err)
}

func (r *storageRepo) AdjustZoneUsage(ctx context.Context, orgID, zoneID uuid.UUID, delta float64) error {
	query := `UPDATE storage_zones SET capacity_used = GREATEST(capacity_used + $1, 0) WHERE organization_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, delta, orgID, zoneID)
	return affectedOne("adjust zone usage", tag, err)
}

func (r *storageRepo) AdjustLocationUsage(ctx context.Context, orgID, locationID uuid.UUID, delta float64) error {
	query := `UPDATE inventory_locations SET capacity_used = GREATEST(capacity_used + $1, 0), updated_at = NOW() WHERE organization_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, delta, orgID, locationID)
	return affectedOne("adjust location usage", tag, err)
}

func (r *storageRepo) LoadAggregate(ctx context.Context, orgID, locationID uuid.UUID) (*models.LocationAggregate, error) {
	loc, err := r.GetLocation(ctx, orgID, locationID)
	if err != nil {
		return nil, err
	}
	zones, err := r.ListZones(ctx, orgID, locationID)
	if err != nil {
		return nil, err
	}
	units, err := r.ListUnits(ctx, orgID, locationID)
	if err != nil {
		return nil, err
	}

	agg := &models.LocationAggregate{Location: *loc, CategoryUsage: map[string]int{}}
	for _, z := range zones {
		agg.Zones = append(agg.Zones, *z)
	}
	for _, u := range units {
		agg.Units = append(agg.Units, *u)
	}

	query := `
		SELECT COALESCE(c.name, 'Uncategorized'), SUM(b.current_quantity)
		FROM stock_batches b
		JOIN products p ON p.id = b.product_id AND p.organization_id = b.organization_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE b.organization_id = $1 AND b.location_id = $2 AND b.current_quantity > 0
		GROUP BY 1
	`
	rows, err := r.db.Query(ctx, query, orgID, locationID)
	if err != nil {
		return nil, wrapErr("category usage", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, wrapErr("category usage", err)
		}
		agg.CategoryUsage[name] = qty
	}
	return agg, wrapErr("category usage", rows.Err())
}
