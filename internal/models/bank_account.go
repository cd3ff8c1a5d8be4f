package models

import (
	"time"

	"github.com/google/uuid"
)

type BankAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;index"`
	BankName      string
	AccountName   string
	AccountNumber string `gorm:"index"`
	RoutingNumber string
	SwiftCode     string
	Currency      string
	IsActive      bool
	CreatedAt     time.Time
}
