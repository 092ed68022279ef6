package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryService interface {
	ReceiveStock(ctx context.Context, orgID, actorID uuid.UUID, req *models.ReceiveStockRequest) (*models.StockBatch, error)
	MoveBatch(ctx context.Context, req models.MoveRequest) (*models.MoveResult, error)
	GetBatch(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error)
	ListBatches(ctx context.Context, orgID uuid.UUID, filter *models.BatchFilter) ([]*models.StockBatch, error)
}

type inventoryService struct {
	tx           repositories.TxManager
	batchRepo    repositories.StockBatchRepository
	productRepo  repositories.ProductRepository
	cacheService caching.CacheService
	audit        AuditLogsService
	log          *zap.Logger
	now          func() time.Time
}

func NewInventoryService(tx repositories.TxManager, batchRepo repositories.StockBatchRepository, productRepo repositories.ProductRepository,
	cacheService caching.CacheService, audit AuditLogsService, log *zap.Logger) InventoryService {
	return &inventoryService{
		tx:           tx,
		batchRepo:    batchRepo,
		productRepo:  productRepo,
		cacheService: cacheService,
		audit:        audit,
		log:          log,
		now:          time.Now,
	}
}

func (s *inventoryService) GetBatch(ctx context.Context, orgID, id uuid.UUID) (*models.StockBatch, error) {
	return s.batchRepo.GetByID(ctx, orgID, id)
}

func (s *inventoryService) ListBatches(ctx context.Context, orgID uuid.UUID, filter *models.BatchFilter) ([]*models.StockBatch, error) {
	return s.batchRepo.List(ctx, orgID, filter)
}

func (s *inventoryService) ReceiveStock(ctx context.Context, orgID, actorID uuid.UUID, req *models.ReceiveStockRequest) (*models.StockBatch, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("receive %d units: %w", req.Quantity, models.ErrInvalidQuantity)
	}
	req.BatchNumber = strings.TrimSpace(req.BatchNumber)
	if req.BatchNumber == "" {
		return nil, fmt.Errorf("batch_number is required: %w", models.ErrValidation)
	}
	if req.PurchasePrice.IsNegative() {
		return nil, fmt.Errorf("purchase_price must not be negative: %w", models.ErrValidation)
	}

	if _, err := s.productRepo.GetByID(ctx, orgID, req.ProductID); err != nil {
		return nil, fmt.Errorf("product: %w", err)
	}
	if req.VariantID != nil {
		if _, err := s.productRepo.GetVariant(ctx, orgID, req.ProductID, *req.VariantID); err != nil {
			return nil, fmt.Errorf("variant: %w", err)
		}
	}

	batch := &models.StockBatch{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		BatchNumber:     req.BatchNumber,
		LocationID:      req.LocationID,
		PositionID:      req.PositionID,
		SupplierID:      req.SupplierID,
		InitialQuantity: req.Quantity,
		CurrentQuantity: req.Quantity,
		PurchasePrice:   req.PurchasePrice,
		ExpiryDate:      req.ExpiryDate,
		ReceivedDate:    s.now(),
	}
	qty := float64(req.Quantity)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
		loc, err := r.Storage.GetLocation(ctx, orgID, req.LocationID)
		if err != nil {
			return fmt.Errorf("location: %w", err)
		}
		if loc.TotalCapacity > 0 && loc.CapacityUsed+qty > loc.TotalCapacity {
			return fmt.Errorf("location %s holds %.0f of %.0f: %w", loc.Name, loc.CapacityUsed, loc.TotalCapacity, models.ErrCapacityExceeded)
		}

		if req.PositionID != nil {
			pl, err := r.Storage.GetPlacementForUpdate(ctx, orgID, *req.PositionID)
			if err != nil {
				return fmt.Errorf("position: %w", err)
			}
			if pl.LocationID != req.LocationID {
				return fmt.Errorf("position is not in location %s: %w", req.LocationID, models.ErrValidation)
			}
			if pl.Position.IsOccupied {
				return fmt.Errorf("position %s: %w", pl.Position.Name, models.ErrPositionOccupied)
			}
			if err := s.checkUnitCapacity(ctx, r.Storage, orgID, pl.UnitID, req.Quantity); err != nil {
				return err
			}
			if err := r.Storage.SetPositionOccupied(ctx, orgID, pl.Position.ID, true); err != nil {
				return err
			}
			if err := adjustPlacementUsage(ctx, r.Storage, orgID, pl, qty); err != nil {
				return err
			}
		}
		if err := r.Storage.AdjustLocationUsage(ctx, orgID, req.LocationID, qty); err != nil {
			return err
		}
		if err := r.Batches.Create(ctx, batch); err != nil {
			return err
		}
		return r.Batches.CreateMovement(ctx, &models.StockMovement{
			OrganizationID: orgID,
			BatchID:        batch.ID,
			ToPositionID:   batch.PositionID,
			Quantity:       batch.CurrentQuantity,
			MovementType:   models.MovementReceipt,
			ActorID:        actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("quantity", batch.CurrentQuantity))
	recordAudit(ctx, s.audit, s.log, orgID, "stock_batches", batch.ID.String(), models.ActionInsert, actorID, nil, batchValues(batch))
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)
	return batch, nil
}

func (s *inventoryService) checkUnitCapacity(ctx context.Context, storage repositories.StorageRepository, orgID, unitID uuid.UUID, quantity int) error {
	unit, err := storage.GetUnit(ctx, orgID, unitID)
	if err != nil {
		return fmt.Errorf("storage unit: %w", err)
	}
	if unit.Capacity > 0 && unit.CapacityUsed+float64(quantity) > unit.Capacity {
		return fmt.Errorf("unit %s holds %.0f of %.0f: %w", unit.Name, unit.CapacityUsed, unit.Capacity, models.ErrCapacityExceeded)
	}
	return nil
}

// MoveBatch moves units of a batch to another position in the same location.
// A full move relocates the batch, a partial move into a free position splits
// it, and a move onto a position holding the same lot merges into that batch.
func (s *inventoryService) MoveBatch(ctx context.Context, req models.MoveRequest) (*models.MoveResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("move %d units: %w", req.Quantity, models.ErrInvalidQuantity)
	}

	var result *models.MoveResult
	var before models.JSONB
	lockKey := caching.LockKey("batch", req.StockBatchID)
	err := withLock(ctx, s.cacheService, s.log, lockKey, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, r repositories.TxRepos) error {
			src, err := r.Batches.GetForUpdate(ctx, req.OrganizationID, req.StockBatchID)
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}
			if req.Quantity > src.CurrentQuantity {
				return fmt.Errorf("move %d units from batch holding %d: %w", req.Quantity, src.CurrentQuantity, models.ErrInsufficientQuantity)
			}
			before = batchValues(src)

			if src.PositionID != nil && *src.PositionID == req.NewPositionID {
				result = &models.MoveResult{Source: src, Destination: src, Outcome: models.MoveUnchanged}
				return nil
			}

			dst, err := r.Storage.GetPlacementForUpdate(ctx, req.OrganizationID, req.NewPositionID)
			if err != nil {
				return fmt.Errorf("destination position: %w", err)
			}
			if dst.LocationID != src.LocationID {
				return fmt.Errorf("destination is in a different location: %w", models.ErrValidation)
			}

			resident, err := r.Batches.FindAtPositionForUpdate(ctx, req.OrganizationID, req.NewPositionID)
			if err != nil {
				return err
			}
			if resident != nil && !src.SameLot(resident) {
				return fmt.Errorf("position %s: %w", dst.Position.Name, models.ErrPositionOccupied)
			}
			if resident == nil && dst.Position.IsOccupied {
				return fmt.Errorf("position %s: %w", dst.Position.Name, models.ErrPositionOccupied)
			}

			var from *models.PositionPlacement
			if src.PositionID != nil {
				if from, err = r.Storage.GetPlacementForUpdate(ctx, req.OrganizationID, *src.PositionID); err != nil {
					return fmt.Errorf("source position: %w", err)
				}
			}
			if from == nil || from.UnitID != dst.UnitID {
				if err := s.checkUnitCapacity(ctx, r.Storage, req.OrganizationID, dst.UnitID, req.Quantity); err != nil {
					return err
				}
			}

			result, err = applyMove(ctx, r, src, resident, from, dst, req.Quantity)
			if err != nil {
				return err
			}
			if err := transferUsage(ctx, r.Storage, req.OrganizationID, from, dst, req.Quantity); err != nil {
				return err
			}

			var fromID *uuid.UUID
			if from != nil {
				fromID = &from.Position.ID
			}
			toID := dst.Position.ID
			return r.Batches.CreateMovement(ctx, &models.StockMovement{
				OrganizationID: req.OrganizationID,
				BatchID:        src.ID,
				FromPositionID: fromID,
				ToPositionID:   &toID,
				Quantity:       req.Quantity,
				MovementType:   models.MovementMove,
				ActorID:        req.ActorID,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Outcome == models.MoveUnchanged {
		return result, nil
	}

	s.log.Info("batch moved",
		zap.String("batch_id", req.StockBatchID.String()),
		zap.String("position_id", req.NewPositionID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("outcome", result.Outcome))
	after := batchValues(result.Source)
	after["outcome"] = result.Outcome
	after["destination_batch_id"] = result.Destination.ID.String()
	recordAudit(ctx, s.audit, s.log, req.OrganizationID, "stock_batches", req.StockBatchID.String(), models.ActionMove, req.ActorID, before, after)
	invalidateOrganization(ctx, s.cacheService, s.log, req.OrganizationID)
	return result, nil
}

// applyMove writes the batch and position changes of a validated move.
func applyMove(ctx context.Context, r repositories.TxRepos, src, resident *models.StockBatch, from, dst *models.PositionPlacement, quantity int) (*models.MoveResult, error) {
	orgID := src.OrganizationID
	full := quantity == src.CurrentQuantity

	freeSource := func() error {
		if from == nil {
			return nil
		}
		return r.Storage.SetPositionOccupied(ctx, orgID, from.Position.ID, false)
	}

	switch {
	case resident != nil:
		resident.CurrentQuantity += quantity
		if err := r.Batches.UpdatePlacement(ctx, resident); err != nil {
			return nil, err
		}
		src.CurrentQuantity -= quantity
		if full {
			src.PositionID = nil
		}
		if err := r.Batches.UpdatePlacement(ctx, src); err != nil {
			return nil, err
		}
		if full {
			if err := freeSource(); err != nil {
				return nil, err
			}
		}
		return &models.MoveResult{Source: src, Destination: resident, Outcome: models.MoveMerged}, nil

	case full:
		pos := dst.Position.ID
		src.PositionID = &pos
		if err := r.Batches.UpdatePlacement(ctx, src); err != nil {
			return nil, err
		}
		if err := freeSource(); err != nil {
			return nil, err
		}
		if err := r.Storage.SetPositionOccupied(ctx, orgID, pos, true); err != nil {
			return nil, err
		}
		return &models.MoveResult{Source: src, Destination: src, Outcome: models.MoveRelocated}, nil

	default:
		src.CurrentQuantity -= quantity
		if err := r.Batches.UpdatePlacement(ctx, src); err != nil {
			return nil, err
		}
		split := src.Split(quantity, dst.Position.ID)
		if err := r.Batches.Create(ctx, split); err != nil {
			return nil, err
		}
		if err := r.Storage.SetPositionOccupied(ctx, orgID, dst.Position.ID, true); err != nil {
			return nil, err
		}
		return &models.MoveResult{Source: src, Destination: split, Outcome: models.MoveSplit}, nil
	}
}

func batchValues(b *models.StockBatch) models.JSONB {
	values := models.JSONB{
		"batch_number":     b.BatchNumber,
		"current_quantity": b.CurrentQuantity,
		"location_id":      b.LocationID.String(),
	}
	if b.PositionID != nil {
		values["position_id"] = b.PositionID.String()
	}
	return values
}
