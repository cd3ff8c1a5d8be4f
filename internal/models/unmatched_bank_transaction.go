package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnmatchedBankTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `gorm:"type:uuid;index"`
	ExternalID      string    `gorm:"index"`
	TransactionDate time.Time
	Description     string
	Amount          decimal.Decimal `gorm:"type:decimal(18,2)"`
	Reference       string
	AccountNumber   string
	ImportedBy      string
	ImportedAt      time.Time
	CreatedAt       time.Time
}

// AsBankTransaction rebuilds the statement line so the auto-sweep can feed it
// back through the scorer.
func (u *UnmatchedBankTransaction) AsBankTransaction() BankTransaction {
	return BankTransaction{
		ExternalID:      u.ExternalID,
		TransactionDate: u.TransactionDate,
		Description:     u.Description,
		Amount:          u.Amount,
		Reference:       u.Reference,
		AccountNumber:   u.AccountNumber,
	}
}
