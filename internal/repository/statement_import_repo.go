package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

type StatementImportRepository struct {
	db *gorm.DB
}

func NewStatementImportRepository(db *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: db}
}

func (r *StatementImportRepository) Create(ctx context.Context, imp *models.StatementImport) error {
	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(imp).Error
}

// FindByTenant lists the tenant's import history, newest first.
func (r *StatementImportRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.StatementImport, error) {
	var imports []models.StatementImport
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Find(&imports).Error
	return imports, err
}
