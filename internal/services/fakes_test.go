package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/models"
	"dukapos/internal/payments"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
)

// memDB is an in-memory stand-in for the transactional tables. Reads hand out
// copies so services only change state through repository writes.
type memDB struct {
	mu          sync.Mutex
	locations   map[uuid.UUID]*models.InventoryLocation
	zones       map[uuid.UUID]*models.StorageZone
	units       map[uuid.UUID]*models.StorageUnit
	positions   map[uuid.UUID]*models.StoragePosition
	batches     map[uuid.UUID]*models.StockBatch
	movements   []*models.StockMovement
	sales       map[uuid.UUID]*models.Sale
	items       map[uuid.UUID]*models.SaleItem
	allocations []*models.SaleAllocation
	returns     map[uuid.UUID]*models.SaleReturn
	itemLocks   int
}

func newMemDB() *memDB {
	return &memDB{
		locations: map[uuid.UUID]*models.InventoryLocation{},
		zones:     map[uuid.UUID]*models.StorageZone{},
		units:     map[uuid.UUID]*models.StorageUnit{},
		positions: map[uuid.UUID]*models.StoragePosition{},
		batches:   map[uuid.UUID]*models.StockBatch{},
		sales:     map[uuid.UUID]*models.Sale{},
		items:     map[uuid.UUID]*models.SaleItem{},
		returns:   map[uuid.UUID]*models.SaleReturn{},
	}
}

func (db *memDB) repos() repositories.TxRepos {
	return repositories.TxRepos{
		Batches: &memBatches{db},
		Storage: &memStorage{db},
		Sales:   &memSales{db},
		Returns: &memReturns{db},
	}
}

// WithinTx makes memDB a TxManager. Writes are not rolled back.
func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, r repositories.TxRepos) error) error {
	return fn(ctx, db.repos())
}

func (db *memDB) batch(id uuid.UUID) *models.StockBatch {
	db.mu.Lock()
	defer db.mu.Unlock()
	b := *db.batches[id]
	return &b
}

func (db *memDB) movementsOf(kind string) []*models.StockMovement {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.StockMovement
	for _, m := range db.movements {
		if m.MovementType == kind {
			out = append(out, m)
		}
	}
	return out
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, models.ErrNotFound)
}

type memBatches struct{ db *memDB }

func (r *memBatches) Create(ctx context.Context, batch *models.StockBatch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	b := *batch
	r.db.batches[b.ID] = &b
	return nil
}

func (r *memBatches) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.batches[id]
	if !ok || b.OrganizationID != orgID {
		return nil, notFound("stock batch", id)
	}
	out := *b
	return &out, nil
}

func (r *memBatches) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r *memBatches) FindAtPositionForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.StockBatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.batches {
		if b.OrganizationID == orgID && b.PositionID != nil && *b.PositionID == positionID {
			out := *b
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memBatches) UpdatePlacement(ctx context.Context, batch *models.StockBatch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.batches[batch.ID]
	if !ok {
		return notFound("stock batch", batch.ID)
	}
	b.CurrentQuantity = batch.CurrentQuantity
	b.PositionID = batch.PositionID
	return nil
}

func (r *memBatches) List(ctx context.Context, orgID uuid.UUID, filter *models.BatchFilter) ([]*models.StockBatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StockBatch
	for _, b := range r.db.batches {
		if b.OrganizationID == orgID {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memBatches) ListForAllocation(ctx context.Context, orgID, locationID, productID uuid.UUID, variantID *uuid.UUID, policy string, now time.Time) ([]*models.StockBatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StockBatch
	for _, b := range r.db.batches {
		if b.OrganizationID != orgID || b.LocationID != locationID || b.ProductID != productID || b.CurrentQuantity <= 0 || b.Expired(now) {
			continue
		}
		if (variantID == nil) != (b.VariantID == nil) || (variantID != nil && *variantID != *b.VariantID) {
			continue
		}
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch policy {
		case models.PolicyFIFO:
			return a.ReceivedDate.Before(b.ReceivedDate)
		case models.PolicyLIFO:
			return a.ReceivedDate.After(b.ReceivedDate)
		default:
			if a.ExpiryDate == nil || b.ExpiryDate == nil {
				return a.ExpiryDate != nil
			}
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})
	return out, nil
}

func (r *memBatches) ListExpiring(ctx context.Context, orgID uuid.UUID, before time.Time) ([]*models.StockBatch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StockBatch
	for _, b := range r.db.batches {
		if b.OrganizationID == orgID && b.CurrentQuantity > 0 && b.ExpiryDate != nil && b.ExpiryDate.Before(before) {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memBatches) CreateMovement(ctx context.Context, m *models.StockMovement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = uuid.New()
	c := *m
	r.db.movements = append(r.db.movements, &c)
	return nil
}

type memStorage struct{ db *memDB }

func (r *memStorage) CreateLocation(ctx context.Context, loc *models.InventoryLocation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *loc
	r.db.locations[loc.ID] = &c
	return nil
}

func (r *memStorage) GetLocation(ctx context.Context, orgID, id uuid.UUID) (*models.InventoryLocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.locations[id]
	if !ok || l.OrganizationID != orgID {
		return nil, notFound("location", id)
	}
	c := *l
	return &c, nil
}

func (r *memStorage) ListLocations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.InventoryLocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*models.InventoryLocation
	for _, l := range r.db.locations {
		if l.OrganizationID == orgID {
			c := *l
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memStorage) UpdateLocation(ctx context.Context, loc *models.InventoryLocation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.locations[loc.ID]
	if !ok {
		return notFound("location", loc.ID)
	}
	l.Name, l.Address, l.TotalCapacity, l.CapacityUnit = loc.Name, loc.Address, loc.TotalCapacity, loc.CapacityUnit
	return nil
}

func (r *memStorage) DeleteLocation(ctx context.Context, orgID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.locations, id)
	return nil
}

func (r *memStorage) CreateZone(ctx context.Context, zone *models.StorageZone) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *zone
	r.db.zones[zone.ID] = &c
	return nil
}

func (r *memStorage) ListZones(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageZone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StorageZone
	for _, z := range r.db.zones {
		if z.OrganizationID == orgID && z.LocationID == locationID {
			c := *z
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memStorage) GetZone(ctx context.Context, orgID, id uuid.UUID) (*models.StorageZone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	z, ok := r.db.zones[id]
	if !ok || z.OrganizationID != orgID {
		return nil, notFound("zone", id)
	}
	c := *z
	return &c, nil
}

func (r *memStorage) UpdateZone(ctx context.Context, zone *models.StorageZone) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	z, ok := r.db.zones[zone.ID]
	if !ok {
		return notFound("zone", zone.ID)
	}
	z.Name, z.Capacity = zone.Name, zone.Capacity
	return nil
}

func (r *memStorage) DeleteZone(ctx context.Context, orgID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.zones, id)
	return nil
}

func (r *memStorage) CreateUnit(ctx context.Context, unit *models.StorageUnit) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *unit
	r.db.units[unit.ID] = &c
	return nil
}

func (r *memStorage) GetUnit(ctx context.Context, orgID, id uuid.UUID) (*models.StorageUnit, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.units[id]
	if !ok || u.OrganizationID != orgID {
		return nil, notFound("storage unit", id)
	}
	c := *u
	return &c, nil
}

func (r *memStorage) ListUnits(ctx context.Context, orgID, locationID uuid.UUID) ([]*models.StorageUnit, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StorageUnit
	for _, u := range r.db.units {
		if u.OrganizationID == orgID && u.LocationID == locationID {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memStorage) UpdateUnit(ctx context.Context, unit *models.StorageUnit) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.units[unit.ID]
	if !ok {
		return notFound("storage unit", unit.ID)
	}
	u.ZoneID, u.Name, u.UnitType, u.Capacity, u.CapacityUnit = unit.ZoneID, unit.Name, unit.UnitType, unit.Capacity, unit.CapacityUnit
	return nil
}

func (r *memStorage) DeleteUnit(ctx context.Context, orgID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.units, id)
	return nil
}

func (r *memStorage) CreatePosition(ctx context.Context, pos *models.StoragePosition) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *pos
	r.db.positions[pos.ID] = &c
	return nil
}

func (r *memStorage) ListPositions(ctx context.Context, orgID, unitID uuid.UUID) ([]*models.StoragePosition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.StoragePosition
	for _, p := range r.db.positions {
		if p.OrganizationID == orgID && p.StorageUnitID == unitID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memStorage) GetPosition(ctx context.Context, orgID, id uuid.UUID) (*models.StoragePosition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.positions[id]
	if !ok || p.OrganizationID != orgID {
		return nil, notFound("position", id)
	}
	c := *p
	return &c, nil
}

func (r *memStorage) RenamePosition(ctx context.Context, orgID, id uuid.UUID, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.positions[id]
	if !ok || p.OrganizationID != orgID {
		return notFound("position", id)
	}
	p.Name = name
	return nil
}

func (r *memStorage) DeletePosition(ctx context.Context, orgID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.positions[id]
	if !ok {
		return notFound("position", id)
	}
	if p.IsOccupied {
		return models.ErrPositionOccupied
	}
	delete(r.db.positions, id)
	return nil
}

func (r *memStorage) GetPlacementForUpdate(ctx context.Context, orgID, positionID uuid.UUID) (*models.PositionPlacement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.positions[positionID]
	if !ok || p.OrganizationID != orgID {
		return nil, notFound("position", positionID)
	}
	u := r.db.units[p.StorageUnitID]
	return &models.PositionPlacement{Position: *p, UnitID: u.ID, ZoneID: u.ZoneID, LocationID: u.LocationID}, nil
}

func (r *memStorage) SetPositionOccupied(ctx context.Context, orgID, positionID uuid.UUID, occupied bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.positions[positionID]
	if !ok {
		return notFound("position", positionID)
	}
	p.IsOccupied = occupied
	return nil
}

func (r *memStorage) AdjustUnitUsage(ctx context.Context, orgID, unitID uuid.UUID, delta float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.units[unitID]
	if !ok {
		return notFound("storage unit", unitID)
	}
	u.CapacityUsed += delta
	return nil
}

func (r *memStorage) AdjustZoneUsage(ctx context.Context, orgID, zoneID uuid.UUID, delta float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	z, ok := r.db.zones[zoneID]
	if !ok {
		return notFound("zone", zoneID)
	}
	z.CapacityUsed += delta
	return nil
}

func (r *memStorage) AdjustLocationUsage(ctx context.Context, orgID, locationID uuid.UUID, delta float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.locations[locationID]
	if !ok {
		return notFound("location", locationID)
	}
	l.CapacityUsed += delta
	return nil
}

func (r *memStorage) LoadAggregate(ctx context.Context, orgID, locationID uuid.UUID) (*models.LocationAggregate, error) {
	loc, err := r.GetLocation(ctx, orgID, locationID)
	if err != nil {
		return nil, err
	}
	agg := &models.LocationAggregate{Location: *loc, CategoryUsage: map[string]int{}}
	zones, _ := r.ListZones(ctx, orgID, locationID)
	for _, z := range zones {
		agg.Zones = append(agg.Zones, *z)
	}
	units, _ := r.ListUnits(ctx, orgID, locationID)
	for _, u := range units {
		agg.Units = append(agg.Units, *u)
	}
	return agg, nil
}

type memSales struct{ db *memDB }

func (r *memSales) Create(ctx context.Context, sale *models.Sale) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *sale
	c.Items = nil
	r.db.sales[sale.ID] = &c
	for _, it := range sale.Items {
		ci := *it
		r.db.items[it.ID] = &ci
	}
	return nil
}

func (r *memSales) CreateAllocations(ctx context.Context, orgID uuid.UUID, allocations []*models.SaleAllocation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range allocations {
		c := *a
		r.db.allocations = append(r.db.allocations, &c)
	}
	return nil
}

func (r *memSales) withItems(s *models.Sale) *models.Sale {
	c := *s
	c.Items = nil
	for _, it := range r.db.items {
		if it.SaleID == s.ID {
			ci := *it
			c.Items = append(c.Items, &ci)
		}
	}
	return &c
}

func (r *memSales) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sales[id]
	if !ok || s.OrganizationID != orgID {
		return nil, notFound("sale", id)
	}
	return r.withItems(s), nil
}

func (r *memSales) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sales[id]
	if !ok || s.OrganizationID != orgID {
		return nil, notFound("sale", id)
	}
	c := *s
	return &c, nil
}

func (r *memSales) GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*models.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sales {
		if s.MPesaCheckoutRequestID != nil && *s.MPesaCheckoutRequestID == checkoutRequestID {
			c := *s
			return &c, nil
		}
	}
	return nil, notFound("sale with checkout request", checkoutRequestID)
}

func (r *memSales) SetCheckoutRequestID(ctx context.Context, orgID, saleID uuid.UUID, checkoutRequestID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sales[saleID]
	if !ok {
		return notFound("sale", saleID)
	}
	id := checkoutRequestID
	s.MPesaCheckoutRequestID = &id
	return nil
}

func (r *memSales) UpdateStatus(ctx context.Context, sale *models.Sale, from string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sales[sale.ID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = sale.Status
	s.AmountPaid = sale.AmountPaid
	s.ChangeDue = sale.ChangeDue
	s.MPesaReceiptNumber = sale.MPesaReceiptNumber
	s.FailureReason = sale.FailureReason
	return true, nil
}

func (r *memSales) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	it, ok := r.db.items[itemID]
	if !ok {
		return nil, notFound("sale item", itemID)
	}
	c := *it
	return &c, nil
}

func (r *memSales) GetItemForUpdate(ctx context.Context, orgID, itemID uuid.UUID) (*models.SaleItem, error) {
	r.db.mu.Lock()
	r.db.itemLocks++
	r.db.mu.Unlock()
	return r.GetItem(ctx, orgID, itemID)
}

func (r *memSales) AddReturnedQuantity(ctx context.Context, orgID, allocationID uuid.UUID, quantity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.allocations {
		if a.ID != allocationID {
			continue
		}
		if a.ReturnedQuantity+quantity > a.Quantity {
			return models.ErrInvalidQuantity
		}
		a.ReturnedQuantity += quantity
		return nil
	}
	return notFound("sale allocation", allocationID)
}

func (r *memSales) ListAllocationsForUpdate(ctx context.Context, orgID, saleItemID uuid.UUID) ([]*models.SaleAllocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.SaleAllocation
	for _, a := range r.db.allocations {
		if a.SaleItemID == saleItemID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *memSales) ListAllocationsBySale(ctx context.Context, orgID, saleID uuid.UUID) ([]*models.SaleAllocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.SaleAllocation
	for _, a := range r.db.allocations {
		if it, ok := r.db.items[a.SaleItemID]; ok && it.SaleID == saleID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memSales) List(ctx context.Context, orgID uuid.UUID, filter *models.SaleFilter) ([]*models.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Sale
	for _, s := range r.db.sales {
		if s.OrganizationID == orgID && (filter.Status == "" || filter.Status == s.Status) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

type memReturns struct{ db *memDB }

func (r *memReturns) Create(ctx context.Context, ret *models.SaleReturn) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *ret
	r.db.returns[ret.ID] = &c
	return nil
}

func (r *memReturns) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ret, ok := r.db.returns[id]
	if !ok || ret.OrganizationID != orgID {
		return nil, notFound("return", id)
	}
	c := *ret
	return &c, nil
}

func (r *memReturns) GetForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.SaleReturn, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r *memReturns) OpenQuantity(ctx context.Context, orgID, saleItemID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	total := 0
	for _, ret := range r.db.returns {
		if ret.SaleItemID == saleItemID && ret.Status != models.ReturnRejected {
			total += ret.Quantity
		}
	}
	return total, nil
}

func (r *memReturns) UpdateDecision(ctx context.Context, ret *models.SaleReturn) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.returns[ret.ID]
	if !ok {
		return notFound("return", ret.ID)
	}
	if stored.Status != models.ReturnPending {
		return models.ErrInvalidTransition
	}
	c := *ret
	r.db.returns[ret.ID] = &c
	return nil
}

func (r *memReturns) List(ctx context.Context, orgID uuid.UUID, filter *models.ReturnFilter) ([]*models.SaleReturn, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.SaleReturn
	for _, ret := range r.db.returns {
		if ret.OrganizationID == orgID && (filter.Status == "" || filter.Status == ret.Status) {
			c := *ret
			out = append(out, &c)
		}
	}
	return out, len(out), nil
}

// memCache is a CacheService over a map. Locks listed in held are never granted.
type memCache struct {
	mu            sync.Mutex
	values        map[string][]byte
	locks         map[string]string
	held          map[string]bool
	invalidations int
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}, locks: map[string]string{}, held: map[string]bool{}}
}

func (c *memCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *memCache) InvalidateOrganization(ctx context.Context, orgID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

func (c *memCache) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[key] {
		return false, nil
	}
	if _, taken := c.locks[key]; taken {
		return false, nil
	}
	c.locks[key] = value
	return true, nil
}

func (c *memCache) ReleaseLock(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == value {
		delete(c.locks, key)
	}
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

var _ caching.CacheService = (*memCache)(nil)

type auditEntry struct {
	Table    string
	RecordID string
	Action   string
	Old, New models.JSONB
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) LogActivity(ctx context.Context, orgID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{Table: tableName, RecordID: recordID, Action: action, Old: oldValues, New: newValues})
	return nil
}

func (a *recordingAudit) ListAuditLogs(ctx context.Context, orgID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	return nil, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// memNotifier delivers results in process.
type memNotifier struct {
	mu      sync.Mutex
	results map[string]models.MPesaResult
	subs    map[string][]chan models.MPesaResult
}

func newMemNotifier() *memNotifier {
	return &memNotifier{results: map[string]models.MPesaResult{}, subs: map[string][]chan models.MPesaResult{}}
}

func (n *memNotifier) Publish(ctx context.Context, result models.MPesaResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[result.CheckoutRequestID] = result
	for _, ch := range n.subs[result.CheckoutRequestID] {
		select {
		case ch <- result:
		default:
		}
	}
	return nil
}

func (n *memNotifier) Subscribe(ctx context.Context, checkoutRequestID string) (payments.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan models.MPesaResult, 1)
	n.subs[checkoutRequestID] = append(n.subs[checkoutRequestID], ch)
	return &memSubscription{ch: ch}, nil
}

func (n *memNotifier) Lookup(ctx context.Context, checkoutRequestID string) (*models.MPesaResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if r, ok := n.results[checkoutRequestID]; ok {
		return &r, nil
	}
	return nil, nil
}

type memSubscription struct{ ch chan models.MPesaResult }

func (s *memSubscription) Results() <-chan models.MPesaResult { return s.ch }
func (s *memSubscription) Close() error                       { return nil }

// fakeMPesa accepts every push. onPush runs before the response is returned.
type fakeMPesa struct {
	pushes []payments.STKPushRequest
	err    error
	onPush func(checkoutRequestID string)
}

func (f *fakeMPesa) STKPush(ctx context.Context, req payments.STKPushRequest) (*payments.STKPushResponse, error) {
	f.pushes = append(f.pushes, req)
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("ws_CO_%d", len(f.pushes))
	if f.onPush != nil {
		f.onPush(id)
	}
	return &payments.STKPushResponse{CheckoutRequestID: id, ResponseCode: "0"}, nil
}

// fixture builds a location with one zone holding two shelves (A, B) and
// positions A1, A2 on shelf A and B1 on shelf B.
type fixture struct {
	db         *memDB
	orgID      uuid.UUID
	actorID    uuid.UUID
	locationID uuid.UUID
	zoneID     uuid.UUID
	unitA      uuid.UUID
	unitB      uuid.UUID
	posA1      uuid.UUID
	posA2      uuid.UUID
	posB1      uuid.UUID
	productID  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		db:         newMemDB(),
		orgID:      uuid.New(),
		actorID:    uuid.New(),
		locationID: uuid.New(),
		zoneID:     uuid.New(),
		unitA:      uuid.New(),
		unitB:      uuid.New(),
		posA1:      uuid.New(),
		posA2:      uuid.New(),
		posB1:      uuid.New(),
		productID:  uuid.New(),
	}
	zone := f.zoneID
	f.db.locations[f.locationID] = &models.InventoryLocation{ID: f.locationID, OrganizationID: f.orgID, Name: "Main Store", TotalCapacity: 1000, CapacityUnit: "units"}
	f.db.zones[f.zoneID] = &models.StorageZone{ID: f.zoneID, OrganizationID: f.orgID, LocationID: f.locationID, Name: "Dry Goods", Capacity: 500}
	f.db.units[f.unitA] = &models.StorageUnit{ID: f.unitA, OrganizationID: f.orgID, LocationID: f.locationID, ZoneID: &zone, Name: "Shelf A", Capacity: 100}
	f.db.units[f.unitB] = &models.StorageUnit{ID: f.unitB, OrganizationID: f.orgID, LocationID: f.locationID, ZoneID: &zone, Name: "Shelf B", Capacity: 100}
	f.db.positions[f.posA1] = &models.StoragePosition{ID: f.posA1, OrganizationID: f.orgID, StorageUnitID: f.unitA, Name: "A1"}
	f.db.positions[f.posA2] = &models.StoragePosition{ID: f.posA2, OrganizationID: f.orgID, StorageUnitID: f.unitA, Name: "A2"}
	f.db.positions[f.posB1] = &models.StoragePosition{ID: f.posB1, OrganizationID: f.orgID, StorageUnitID: f.unitB, Name: "B1"}
	return f
}

// seedBatch places a batch and keeps every counter consistent with it.
func (f *fixture) seedBatch(batchNumber string, qty int, position *uuid.UUID, expiry *time.Time, received time.Time) *models.StockBatch {
	b := &models.StockBatch{
		ID:              uuid.New(),
		OrganizationID:  f.orgID,
		ProductID:       f.productID,
		BatchNumber:     batchNumber,
		LocationID:      f.locationID,
		PositionID:      position,
		InitialQuantity: qty,
		CurrentQuantity: qty,
		ExpiryDate:      expiry,
		ReceivedDate:    received,
	}
	c := *b
	f.db.batches[b.ID] = &c
	f.db.locations[f.locationID].CapacityUsed += float64(qty)
	if position != nil {
		p := f.db.positions[*position]
		p.IsOccupied = true
		u := f.db.units[p.StorageUnitID]
		u.CapacityUsed += float64(qty)
		if u.ZoneID != nil {
			f.db.zones[*u.ZoneID].CapacityUsed += float64(qty)
		}
	}
	return b
}

func ptr[T any](v T) *T { return &v }
