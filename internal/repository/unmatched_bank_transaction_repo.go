package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

type UnmatchedBankTransactionRepository struct {
	db *gorm.DB
}

func NewUnmatchedBankTransactionRepository(db *gorm.DB) *UnmatchedBankTransactionRepository {
	return &UnmatchedBankTransactionRepository{db: db}
}

func (r *UnmatchedBankTransactionRepository) Create(ctx context.Context, u *models.UnmatchedBankTransaction) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UnmatchedBankTransactionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UnmatchedBankTransaction, error) {
	var rows []models.UnmatchedBankTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("imported_at ASC").
		Find(&rows).Error
	return rows, err
}
