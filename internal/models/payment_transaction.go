package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
)

type PaymentTransaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"type:uuid;index"`
	CustomerName     string          `gorm:"index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2)"`
	TransactionDate  time.Time       `gorm:"index"`
	Status           string          `gorm:"index"`
	Reference        string          `gorm:"index"`
	Description      string
	IsReconciled     bool `gorm:"index"`
	ReconciledAt     *time.Time
	ReconciliationID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
