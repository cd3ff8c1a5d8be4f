package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

type StatementImport struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;index"`
	Filename       string
	Format         string
	TotalCount     int
	MatchedCount   int
	UnmatchedCount int
	Status         string
	ImportedBy     string
	StartedAt      time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}
