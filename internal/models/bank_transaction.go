package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one normalized statement line produced by the parser.
// It is never stored as-is; a line either becomes a ReconciliationRecord or
// an UnmatchedBankTransaction.
type BankTransaction struct {
	ExternalID      string
	TransactionDate time.Time
	Description     string
	Amount          decimal.Decimal
	Reference       string
	AccountNumber   string
}
