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

func seedUnmatched(t *testing.T, db *gorm.DB, tenantID uuid.UUID, amount string) *models.UnmatchedBankTransaction {
	t.Helper()

	row := &models.UnmatchedBankTransaction{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ExternalID:      uuid.New().String(),
		TransactionDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description:     "Payment received",
		Amount:          decimal.RequireFromString(amount),
		Reference:       "INV-777",
		ImportedBy:      "importer",
		ImportedAt:      time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func newRecord(tenantID, paymentID uuid.UUID, status string, difference string) *models.ReconciliationRecord {
	return &models.ReconciliationRecord{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		BankTransactionID:    uuid.New().String(),
		PaymentTransactionID: paymentID,
		MatchType:            "amount;date;reference",
		MatchScore:           0.9,
		Status:               status,
		ReconciledBy:         "reviewer",
		ReconciledAt:         time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
		BankAmount:           decimal.RequireFromString("100.00"),
		PaymentAmount:        decimal.RequireFromString("100.00").Sub(decimal.RequireFromString(difference)),
		Difference:           decimal.RequireFromString(difference),
	}
}

func TestReconciliationRecordRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReconciliationRecordRepository(db)
	ctx := context.Background()

	t.Run("round-trips a record", func(t *testing.T) {
		rec := newRecord(uuid.New(), uuid.New(), models.ReconciliationStatusPendingApproval, "0.00")
		require.NoError(t, repo.Create(ctx, rec))

		found, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, rec.MatchType, found.MatchType)
		assert.Equal(t, rec.Status, found.Status)
		assert.InDelta(t, rec.MatchScore, found.MatchScore, 1e-9)
		assert.True(t, found.BankAmount.Equal(rec.BankAmount))
	})

	t.Run("returns nil when absent", func(t *testing.T) {
		found, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		rec := newRecord(uuid.New(), uuid.New(), models.ReconciliationStatusPendingApproval, "0.00")
		rec.ID = uuid.Nil
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotEqual(t, uuid.Nil, rec.ID)
	})
}

func TestReconciliationRecordRepository_FindPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReconciliationRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	pending := newRecord(tenantID, uuid.New(), models.ReconciliationStatusPendingApproval, "0.00")
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.Create(ctx, newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "0.00")))
	require.NoError(t, repo.Create(ctx, newRecord(uuid.New(), uuid.New(), models.ReconciliationStatusPendingApproval, "0.00")))

	recs, err := repo.FindPending(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, pending.ID, recs[0].ID)
}

func TestReconciliationRecordRepository_FindDiscrepancies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReconciliationRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	small := newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "2.50")
	large := newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "25.00")
	exact := newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "0.00")
	require.NoError(t, repo.Create(ctx, small))
	require.NoError(t, repo.Create(ctx, large))
	require.NoError(t, repo.Create(ctx, exact))

	recs, err := repo.FindDiscrepancies(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, large.ID, recs[0].ID)
	assert.Equal(t, small.ID, recs[1].ID)
}

func TestReconciliationRecordRepository_FindByDateRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReconciliationRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	inRange := newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "0.00")
	inRange.ReconciledAt = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	outOfRange := newRecord(tenantID, uuid.New(), models.ReconciliationStatusApproved, "0.00")
	outOfRange.ReconciledAt = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, inRange))
	require.NoError(t, repo.Create(ctx, outOfRange))

	recs, err := repo.FindByDateRange(ctx, tenantID,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, inRange.ID, recs[0].ID)
}

func TestReconciliationRecordRepository_PromoteUnmatched(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReconciliationRecordRepository(db)
	payments := NewPaymentTransactionRepository(db)
	ctx := context.Background()

	t.Run("claiming promotion approves record, claims payment, removes row", func(t *testing.T) {
		tenantID := uuid.New()
		payment := seedPayment(t, db, tenantID, "100.00", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)
		row := seedUnmatched(t, db, tenantID, "100.00")

		rec := newRecord(tenantID, payment.ID, models.ReconciliationStatusApproved, "0.00")
		promoted, err := repo.PromoteUnmatched(ctx, rec, row.ID, true)
		require.NoError(t, err)
		assert.True(t, promoted)

		found, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, models.ReconciliationStatusApproved, found.Status)

		claimed, err := payments.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		assert.True(t, claimed.IsReconciled)
		assert.Equal(t, rec.ID, *claimed.ReconciliationID)

		var count int64
		require.NoError(t, db.Model(&models.UnmatchedBankTransaction{}).Where("id = ?", row.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("lost claim rolls the whole promotion back", func(t *testing.T) {
		tenantID := uuid.New()
		payment := seedPayment(t, db, tenantID, "100.00", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)
		require.NoError(t, db.Model(payment).Update("is_reconciled", true).Error)
		row := seedUnmatched(t, db, tenantID, "100.00")

		rec := newRecord(tenantID, payment.ID, models.ReconciliationStatusApproved, "0.00")
		promoted, err := repo.PromoteUnmatched(ctx, rec, row.ID, true)
		require.NoError(t, err)
		assert.False(t, promoted)

		found, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Nil(t, found, "record insert must be rolled back")

		var count int64
		require.NoError(t, db.Model(&models.UnmatchedBankTransaction{}).Where("id = ?", row.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count, "unmatched row must survive")
	})

	t.Run("non-claiming promotion leaves the payment untouched", func(t *testing.T) {
		tenantID := uuid.New()
		payment := seedPayment(t, db, tenantID, "100.00", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), models.PaymentStatusCompleted)
		row := seedUnmatched(t, db, tenantID, "100.00")

		rec := newRecord(tenantID, payment.ID, models.ReconciliationStatusPendingApproval, "0.00")
		promoted, err := repo.PromoteUnmatched(ctx, rec, row.ID, false)
		require.NoError(t, err)
		assert.True(t, promoted)

		untouched, err := payments.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		assert.False(t, untouched.IsReconciled)

		var count int64
		require.NoError(t, db.Model(&models.UnmatchedBankTransaction{}).Where("id = ?", row.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}
