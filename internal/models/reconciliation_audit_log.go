package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionCreated      = "created"
	AuditActionAutoApproved = "auto_approved"
	AuditActionApproved     = "approved"
	AuditActionRejected     = "rejected"
)

type ReconciliationAuditLog struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID `gorm:"type:uuid;index"`
	ReconciliationID uuid.UUID `gorm:"type:uuid;index"`
	Action           string
	PreviousStatus   string
	NewStatus        string
	PerformedBy      string
	Reason           string
	CreatedAt        time.Time
}
