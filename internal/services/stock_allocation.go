package services

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
)

// allocateItem draws quantity units of a sale item from the location's batches
// in policy order. Batches are consumed in place; an exhausted batch leaves its
// position.
func allocateItem(ctx context.Context, r repositories.TxRepos, sale *models.Sale, item *models.SaleItem, policy string, now time.Time) ([]*models.SaleAllocation, error) {
	orgID := sale.OrganizationID
	batches, err := r.Batches.ListForAllocation(ctx, orgID, sale.LocationID, item.ProductID, item.VariantID, policy, now)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, b := range batches {
		available += b.CurrentQuantity
	}
	if available < item.Quantity {
		return nil, fmt.Errorf("%s: %d requested, %d available: %w", item.Name, item.Quantity, available, models.ErrInsufficientQuantity)
	}

	var allocations []*models.SaleAllocation
	remaining := item.Quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := b.CurrentQuantity
		if take > remaining {
			take = remaining
		}
		from := b.PositionID
		if err := takeFromBatch(ctx, r, b, take); err != nil {
			return nil, err
		}
		remaining -= take

		allocations = append(allocations, &models.SaleAllocation{
			ID:         uuid.New(),
			SaleItemID: item.ID,
			BatchID:    b.ID,
			Quantity:   take,
			Seq:        len(allocations),
		})
		saleID := sale.ID
		if err := r.Batches.CreateMovement(ctx, &models.StockMovement{
			OrganizationID: orgID,
			BatchID:        b.ID,
			FromPositionID: from,
			Quantity:       take,
			MovementType:   models.MovementSale,
			ReferenceID:    &saleID,
			ActorID:        sale.CashierID,
		}); err != nil {
			return nil, err
		}
	}
	return allocations, nil
}

func takeFromBatch(ctx context.Context, r repositories.TxRepos, b *models.StockBatch, quantity int) error {
	orgID := b.OrganizationID
	var pl *models.PositionPlacement
	if b.PositionID != nil {
		var err error
		if pl, err = r.Storage.GetPlacementForUpdate(ctx, orgID, *b.PositionID); err != nil {
			return err
		}
	}

	b.CurrentQuantity -= quantity
	if b.CurrentQuantity == 0 && pl != nil {
		b.PositionID = nil
		if err := r.Storage.SetPositionOccupied(ctx, orgID, pl.Position.ID, false); err != nil {
			return err
		}
	}
	if err := r.Batches.UpdatePlacement(ctx, b); err != nil {
		return err
	}
	if err := adjustPlacementUsage(ctx, r.Storage, orgID, pl, -float64(quantity)); err != nil {
		return err
	}
	return r.Storage.AdjustLocationUsage(ctx, orgID, b.LocationID, -float64(quantity))
}

// restockBatch puts quantity units back into a batch and records the movement.
func restockBatch(ctx context.Context, r repositories.TxRepos, orgID, batchID uuid.UUID, quantity int, movementType string, referenceID, actorID uuid.UUID) error {
	b, err := r.Batches.GetForUpdate(ctx, orgID, batchID)
	if err != nil {
		return err
	}
	b.CurrentQuantity += quantity
	if err := r.Batches.UpdatePlacement(ctx, b); err != nil {
		return err
	}
	if b.PositionID != nil {
		pl, err := r.Storage.GetPlacementForUpdate(ctx, orgID, *b.PositionID)
		if err != nil {
			return err
		}
		if err := adjustPlacementUsage(ctx, r.Storage, orgID, pl, float64(quantity)); err != nil {
			return err
		}
	}
	if err := r.Storage.AdjustLocationUsage(ctx, orgID, b.LocationID, float64(quantity)); err != nil {
		return err
	}
	ref := referenceID
	return r.Batches.CreateMovement(ctx, &models.StockMovement{
		OrganizationID: orgID,
		BatchID:        b.ID,
		ToPositionID:   b.PositionID,
		Quantity:       quantity,
		MovementType:   movementType,
		ReferenceID:    &ref,
		ActorID:        actorID,
	})
}
