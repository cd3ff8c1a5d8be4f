package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

// candidateWindow bounds how far a payment's date may sit from the statement
// line's date and still be considered for matching.
const candidateWindow = 30 * 24 * time.Hour

type PaymentTransactionRepository struct {
	db *gorm.DB
}

func NewPaymentTransactionRepository(db *gorm.DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

func (r *PaymentTransactionRepository) Create(ctx context.Context, payment *models.PaymentTransaction) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetPayment fetches a single payment, nil when absent.
func (r *PaymentTransactionRepository) GetPayment(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	var payment models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindCandidates returns the tenant's completed, unreconciled payments dated
// within the matching window either side of the statement line's date.
func (r *PaymentTransactionRepository) FindCandidates(ctx context.Context, tenantID uuid.UUID, around time.Time) ([]models.PaymentTransaction, error) {
	var payments []models.PaymentTransaction
	from := around.Add(-candidateWindow)
	to := around.Add(candidateWindow)
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND is_reconciled = ?", tenantID, models.PaymentStatusCompleted, false).
		Where("transaction_date BETWEEN ? AND ?", from, to).
		Order("transaction_date ASC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentTransactionRepository) FindUnreconciled(ctx context.Context, tenantID uuid.UUID) ([]models.PaymentTransaction, error) {
	var payments []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_reconciled = ?", tenantID, false).
		Order("transaction_date DESC").
		Find(&payments).Error
	return payments, err
}

// MarkReconciled flips the reconciled flag and links the reconciliation
// record, guarded so a payment can only be claimed once. Returns false when
// another reconciliation already owns the payment.
func (r *PaymentTransactionRepository) MarkReconciled(ctx context.Context, paymentID, reconciliationID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("id = ? AND is_reconciled = ?", paymentID, false).
		Updates(map[string]interface{}{
			"is_reconciled":     true,
			"reconciled_at":     at,
			"reconciliation_id": reconciliationID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
