package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/nse-market-bot/repositories"
	"go.uber.org/zap"
)

func TestTransactionManager_InTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		txm := NewTransactionManager(NewFromSQL(sqlDB, zap.NewNop()), zap.NewNop())
		err = txm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			got, ok := GetTransactionFromContext(ctx)
			assert.True(t, ok)
			assert.Same(t, tx, got)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		txm := NewTransactionManager(NewFromSQL(sqlDB, zap.NewNop()), zap.NewNop())
		boom := errors.New("boom")
		err = txm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		txm := NewTransactionManager(NewFromSQL(sqlDB, zap.NewNop()), zap.NewNop())
		assert.Panics(t, func() {
			_ = txm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
				panic("unexpected")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		txm := NewTransactionManager(NewFromSQL(sqlDB, zap.NewNop()), zap.NewNop())
		err = txm.InTransaction(context.Background(), func(ctx context.Context, outer repositories.Transaction) error {
			return txm.InTransaction(ctx, func(ctx context.Context, inner repositories.Transaction) error {
				assert.Same(t, outer, inner)
				return nil
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		txm := NewTransactionManager(NewFromSQL(sqlDB, zap.NewNop()), zap.NewNop())
		called := false
		err = txm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestGetExecutor(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := NewFromSQL(sqlDB, zap.NewNop())
	assert.Same(t, sqlDB, GetExecutor(context.Background(), db))
}

func TestDB_HealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	db := NewFromSQL(sqlDB, zap.NewNop())
	require.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
