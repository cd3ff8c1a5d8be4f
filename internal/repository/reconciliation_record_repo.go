package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

// errClaimConflict aborts a promotion transaction when the linked payment
// was reconciled by someone else between scoring and commit.
var errClaimConflict = errors.New("payment already claimed")

type ReconciliationRecordRepository struct {
	db *gorm.DB
}

func NewReconciliationRecordRepository(db *gorm.DB) *ReconciliationRecordRepository {
	return &ReconciliationRecordRepository{db: db}
}

func (r *ReconciliationRecordRepository) Create(ctx context.Context, rec *models.ReconciliationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// GetByID fetches a single record, nil when absent.
func (r *ReconciliationRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReconciliationRecord, error) {
	var rec models.ReconciliationRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *ReconciliationRecordRepository) Update(ctx context.Context, rec *models.ReconciliationRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *ReconciliationRecordRepository) FindPending(ctx context.Context, tenantID uuid.UUID) ([]models.ReconciliationRecord, error) {
	var recs []models.ReconciliationRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, models.ReconciliationStatusPendingApproval).
		Find(&recs).Error
	return recs, err
}

// FindDiscrepancies returns records whose bank and payment amounts disagree,
// largest difference first.
func (r *ReconciliationRecordRepository) FindDiscrepancies(ctx context.Context, tenantID uuid.UUID) ([]models.ReconciliationRecord, error) {
	var recs []models.ReconciliationRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND difference <> 0", tenantID).
		Order("difference DESC").
		Find(&recs).Error
	return recs, err
}

func (r *ReconciliationRecordRepository) FindByDateRange(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.ReconciliationRecord, error) {
	var recs []models.ReconciliationRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reconciled_at BETWEEN ? AND ?", tenantID, start, end).
		Order("reconciled_at ASC").
		Find(&recs).Error
	return recs, err
}

// PromoteUnmatched turns an unmatched statement line into a reconciliation
// record inside one transaction. When claim is set the linked payment is
// flipped to reconciled with a conditional update; a lost claim rolls the
// whole promotion back and reports false so the sweep leaves the row for a
// later pass.
func (r *ReconciliationRecordRepository) PromoteUnmatched(ctx context.Context, rec *models.ReconciliationRecord, unmatchedID uuid.UUID, claim bool) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if claim {
			res := tx.Model(&models.PaymentTransaction{}).
				Where("id = ? AND is_reconciled = ?", rec.PaymentTransactionID, false).
				Updates(map[string]interface{}{
					"is_reconciled":     true,
					"reconciled_at":     rec.ReconciledAt,
					"reconciliation_id": rec.ID,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errClaimConflict
			}
		}
		return tx.Delete(&models.UnmatchedBankTransaction{}, "id = ?", unmatchedID).Error
	})
	if errors.Is(err, errClaimConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
