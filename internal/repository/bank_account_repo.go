package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

type BankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

func (r *BankAccountRepository) Create(ctx context.Context, account *models.BankAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *BankAccountRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("bank_name ASC").
		Find(&accounts).Error
	return accounts, err
}
