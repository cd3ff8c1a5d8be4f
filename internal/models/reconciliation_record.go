package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ReconciliationStatusPendingApproval = "pending_approval"
	ReconciliationStatusApproved        = "approved"
	ReconciliationStatusRejected        = "rejected"
)

// SystemReconciler is recorded as the reconciler on matches the auto-sweep
// approves without a human in the loop.
const SystemReconciler = "system"

type ReconciliationRecord struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID             uuid.UUID `gorm:"type:uuid;index"`
	BankTransactionID    string    `gorm:"index"`
	PaymentTransactionID uuid.UUID `gorm:"type:uuid;index"`
	MatchType            string
	MatchScore           float64
	Status               string `gorm:"index"`
	Notes                string
	ReconciledBy         string
	ReconciledAt         time.Time
	BankAmount           decimal.Decimal `gorm:"type:decimal(18,2)"`
	PaymentAmount        decimal.Decimal `gorm:"type:decimal(18,2)"`
	Difference           decimal.Decimal `gorm:"type:decimal(18,2)"`
	ScoreDetails         datatypes.JSON
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Final reports whether the record has left the review queue. Approved and
// rejected records never transition again.
func (r *ReconciliationRecord) Final() bool {
	return r.Status == ReconciliationStatusApproved || r.Status == ReconciliationStatusRejected
}
