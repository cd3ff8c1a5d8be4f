package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.ReconciliationAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditLogRepository) FindByReconciliation(ctx context.Context, reconciliationID uuid.UUID) ([]models.ReconciliationAuditLog, error) {
	var entries []models.ReconciliationAuditLog
	err := r.db.WithContext(ctx).
		Where("reconciliation_id = ?", reconciliationID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
