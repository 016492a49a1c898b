package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)

	return db, mock, func() { _ = mockDB.Close() }
}

func TestGetTx_OwnerRollbackRollsBack(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, tx, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))
	assert.False(t, tx.IsOpen())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTx_JoinedTxCannotCloseOwnersTransaction(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	// one Begin, one Commit: the joined view must not touch the transaction
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx, outer, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)

	innerCtx, inner, err := db.GetTx(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, inner.Rollback(innerCtx))
	assert.True(t, outer.IsOpen())
	require.NoError(t, inner.Commit(innerCtx))
	assert.True(t, outer.IsOpen())

	require.NoError(t, outer.Commit(ctx))
	assert.False(t, outer.IsOpen())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTx_DeferredRollbackAfterCommitIsNoOp(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx, tx, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTx_ClosedContextTxBeginsFresh(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, first, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx))

	// the committed transaction on the context is closed, so a new one opens
	ctx2, second, err := db.GetTx(ctx, nil)
	require.NoError(t, err)
	assert.True(t, second.IsOpen())
	require.NoError(t, second.Rollback(ctx2))
	require.NoError(t, mock.ExpectationsWereMet())
}
