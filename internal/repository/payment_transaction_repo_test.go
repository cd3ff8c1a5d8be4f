package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pharmacy-reconciliation-backend/internal/models"
)

func seedPayment(t *testing.T, db *gorm.DB, tenantID uuid.UUID, amount string, date time.Time, status string) *models.PaymentTransaction {
	t.Helper()

	payment := &models.PaymentTransaction{
		ID:              uuid.New(),
		TenantID:        tenantID,
		CustomerName:    "Acme Pharmacy",
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: date,
		Status:          status,
		Reference:       "INV-100",
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestPaymentTransactionRepository_GetPayment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentTransactionRepository(db)
	ctx := context.Background()

	t.Run("returns the payment when present", func(t *testing.T) {
		tenantID := uuid.New()
		seeded := seedPayment(t, db, tenantID, "150.00", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)

		found, err := repo.GetPayment(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, seeded.ID, found.ID)
		assert.Equal(t, tenantID, found.TenantID)
		assert.True(t, found.Amount.Equal(decimal.RequireFromString("150.00")))
	})

	t.Run("returns nil when absent", func(t *testing.T) {
		found, err := repo.GetPayment(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPaymentTransactionRepository_FindCandidates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentTransactionRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	around := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	inWindow := seedPayment(t, db, tenantID, "200.00", around.AddDate(0, 0, -5), models.PaymentStatusCompleted)
	edgeOfWindow := seedPayment(t, db, tenantID, "201.00", around.AddDate(0, 0, 29), models.PaymentStatusCompleted)

	// outside the window, wrong status and wrong tenant stay out
	seedPayment(t, db, tenantID, "202.00", around.AddDate(0, 0, -45), models.PaymentStatusCompleted)
	seedPayment(t, db, tenantID, "203.00", around, models.PaymentStatusPending)
	seedPayment(t, db, uuid.New(), "204.00", around, models.PaymentStatusCompleted)

	reconciled := seedPayment(t, db, tenantID, "205.00", around, models.PaymentStatusCompleted)
	require.NoError(t, db.Model(reconciled).Update("is_reconciled", true).Error)

	candidates, err := repo.FindCandidates(ctx, tenantID, around)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{inWindow.ID, edgeOfWindow.ID}, ids)
}

func TestPaymentTransactionRepository_MarkReconciled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentTransactionRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	payment := seedPayment(t, db, tenantID, "99.50", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)
	reconciliationID := uuid.New()
	at := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("claims an unreconciled payment", func(t *testing.T) {
		claimed, err := repo.MarkReconciled(ctx, payment.ID, reconciliationID, at)
		require.NoError(t, err)
		assert.True(t, claimed)

		found, err := repo.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.IsReconciled)
		require.NotNil(t, found.ReconciliationID)
		assert.Equal(t, reconciliationID, *found.ReconciliationID)
		require.NotNil(t, found.ReconciledAt)
	})

	t.Run("refuses a second claim on the same payment", func(t *testing.T) {
		claimed, err := repo.MarkReconciled(ctx, payment.ID, uuid.New(), at)
		require.NoError(t, err)
		assert.False(t, claimed)

		// First claim's link must survive
		found, err := repo.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, reconciliationID, *found.ReconciliationID)
	})

	t.Run("reports false for a missing payment", func(t *testing.T) {
		claimed, err := repo.MarkReconciled(ctx, uuid.New(), uuid.New(), at)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestPaymentTransactionRepository_FindUnreconciled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentTransactionRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	open := seedPayment(t, db, tenantID, "10.00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)

	claimed := seedPayment(t, db, tenantID, "20.00", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)
	require.NoError(t, db.Model(claimed).Update("is_reconciled", true).Error)

	payments, err := repo.FindUnreconciled(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, open.ID, payments[0].ID)
}
