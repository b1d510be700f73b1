package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewDB(sqlDB, zap.NewNop()), mock
}

func TestWithTransaction_CommitRunsHooks(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var hookRan bool
	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		db.AfterCommit(ctx, func(context.Context) { hookRan = true })
		assert.False(t, hookRan, "hook must wait for commit")

		_, err := db.Executor(ctx).ExecContext(ctx, "UPDATE requests SET status = ?", "Completed")
		return err
	})

	require.NoError(t, err)
	assert.True(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackDropsHooks(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	var hookRan bool
	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		db.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.WithTransaction(context.Background(), func(outer context.Context) error {
		return db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, extractState(outer), extractState(inner))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	var hookRan bool
	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		db.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return nil
	})

	assert.Error(t, err)
	assert.False(t, hookRan)
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(ctx context.Context) error {
			panic("nil pointer")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAfterCommit_OutsideTransactionRunsNow(t *testing.T) {
	db, _ := newMockDB(t)
	var hookRan bool
	db.AfterCommit(context.Background(), func(context.Context) { hookRan = true })
	assert.True(t, hookRan)
	assert.False(t, InTransaction(context.Background()))
}

func TestAfterCommit_HookContextHasNoTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))

	var hookErr error
	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		db.AfterCommit(ctx, func(hookCtx context.Context) {
			assert.False(t, InTransaction(hookCtx))
			// runs on the pool, not on the committed tx
			_, hookErr = db.Executor(hookCtx).ExecContext(hookCtx, "INSERT INTO notifications (title) VALUES (?)", "done")
		})
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, hookErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
