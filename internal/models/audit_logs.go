package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form JSON object column.
type JSONB map[string]interface{}

// AuditLog records who changed what in the inventory and sales tables.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	TableName      string     `json:"table_name" db:"table_name"`
	RecordID       string     `json:"record_id" db:"record_id"`
	Action         string     `json:"action" db:"action"`
	NewValues      JSONB      `json:"new_values" db:"new_values"`
	OldValues      JSONB      `json:"old_values" db:"old_values"`
	ChangedBy      *uuid.UUID `json:"changed_by" db:"changed_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	ActionInsert  = "INSERT"
	ActionUpdate  = "UPDATE"
	ActionDelete  = "DELETE"
	ActionMove    = "MOVE"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// AuditLogFilters represents filters for querying audit logs
type AuditLogFilters struct {
	TableName *string    `query:"table_name"`
	RecordID  *string    `query:"record_id"`
	ChangedBy *uuid.UUID `query:"changed_by"`
	Limit     int        `query:"limit"`
	Offset    int        `query:"offset"`
}
