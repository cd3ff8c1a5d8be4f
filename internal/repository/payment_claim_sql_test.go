package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock
}

// The claim must be one guarded UPDATE so concurrent reconciliations cannot
// both take the same payment.
func TestPaymentTransactionRepository_ClaimStatement(t *testing.T) {
	claimPattern := `UPDATE "payment_transactions" SET .+ WHERE id = \$\d+ AND is_reconciled = \$\d+`

	t.Run("claim wins when the guard matches a row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPaymentTransactionRepository(db)

		mock.ExpectExec(claimPattern).WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.MarkReconciled(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claim loses when the guard matches nothing", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPaymentTransactionRepository(db)

		mock.ExpectExec(claimPattern).WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.MarkReconciled(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
