package services

import (
	"context"

	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
)

// adjustPlacementUsage moves the unit and zone counters of a position by delta.
func adjustPlacementUsage(ctx context.Context, storage repositories.StorageRepository, orgID uuid.UUID, pl *models.PositionPlacement, delta float64) error {
	if pl == nil || delta == 0 {
		return nil
	}
	if err := storage.AdjustUnitUsage(ctx, orgID, pl.UnitID, delta); err != nil {
		return err
	}
	if pl.ZoneID != nil {
		return storage.AdjustZoneUsage(ctx, orgID, *pl.ZoneID, delta)
	}
	return nil
}

// transferUsage moves quantity from one placement's counters to another's,
// touching only the levels that actually differ.
func transferUsage(ctx context.Context, storage repositories.StorageRepository, orgID uuid.UUID, from, to *models.PositionPlacement, quantity int) error {
	q := float64(quantity)
	if from == nil {
		return adjustPlacementUsage(ctx, storage, orgID, to, q)
	}
	if from.UnitID != to.UnitID {
		if err := storage.AdjustUnitUsage(ctx, orgID, from.UnitID, -q); err != nil {
			return err
		}
		if err := storage.AdjustUnitUsage(ctx, orgID, to.UnitID, q); err != nil {
			return err
		}
	}
	if !sameZone(from.ZoneID, to.ZoneID) {
		if from.ZoneID != nil {
			if err := storage.AdjustZoneUsage(ctx, orgID, *from.ZoneID, -q); err != nil {
				return err
			}
		}
		if to.ZoneID != nil {
			if err := storage.AdjustZoneUsage(ctx, orgID, *to.ZoneID, q); err != nil {
				return err
			}
		}
	}
	return nil
}

func sameZone(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
