package services

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditLogsService interface {
	// LogActivity creates a new audit log entry.
	LogActivity(ctx context.Context, orgID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error
	ListAuditLogs(ctx context.Context, orgID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
	}
}

func (s *auditLogsService) LogActivity(ctx context.Context, orgID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	if tableName == "" {
		return fmt.Errorf("table_name is required: %w", models.ErrValidation)
	}
	if action == "" {
		return fmt.Errorf("action is required: %w", models.ErrValidation)
	}

	auditLog := &models.AuditLog{
		ID:             uuid.New(),
		OrganizationID: orgID,
		TableName:      tableName,
		RecordID:       recordID,
		Action:         action,
		NewValues:      newValues,
		OldValues:      oldValues,
		ChangedBy:      changedBy,
		CreatedAt:      time.Now(),
	}
	return s.auditLogsRepo.Create(ctx, auditLog)
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, orgID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{Limit: 50}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.auditLogsRepo.List(ctx, orgID, filters)
}

// recordAudit writes an audit entry after a committed change. The change has
// already happened, so a failure here is logged and not returned.
func recordAudit(ctx context.Context, audit AuditLogsService, log *zap.Logger, orgID uuid.UUID, table, recordID, action string, actor uuid.UUID, oldValues, newValues models.JSONB) {
	if audit == nil {
		return
	}
	var changedBy *uuid.UUID
	if actor != uuid.Nil {
		changedBy = &actor
	}
	if err := audit.LogActivity(ctx, orgID, table, recordID, action, changedBy, oldValues, newValues); err != nil {
		log.Warn("failed to write audit log",
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.String("action", action),
			zap.Error(err))
	}
}
