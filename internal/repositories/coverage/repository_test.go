package coverage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
)

func newMockRepo(t *testing.T) (sqlmock.Sqlmock, *Repository, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	repo := NewRepository(db, logger)

	return mock, repo, func() { _ = mockDB.Close() }
}

func primaryExistsRows(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func TestAssign_FirstRowIsAlwaysPrimary(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p1", "si1").
		WillReturnRows(primaryExistsRows(false))
	mock.ExpectExec(`INSERT INTO coverages`).
		WithArgs(sqlmock.AnyArg(), "p1", "si1", "nurse-1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cov, err := repo.Assign(context.Background(), models.AssignCoverageRequest{
		UserID:          "nurse-1",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
		MakePrimary:     false,
	})

	require.NoError(t, err)
	assert.True(t, cov.IsPrimary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_SecondaryJoinsExistingPrimary(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p1", "si1").
		WillReturnRows(primaryExistsRows(true))
	mock.ExpectExec(`INSERT INTO coverages`).
		WithArgs(sqlmock.AnyArg(), "p1", "si1", "nurse-2", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cov, err := repo.Assign(context.Background(), models.AssignCoverageRequest{
		UserID:          "nurse-2",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
		MakePrimary:     false,
	})

	require.NoError(t, err)
	assert.False(t, cov.IsPrimary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_MakePrimaryDemotesCurrentPrimary(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p1", "si1").
		WillReturnRows(primaryExistsRows(true))
	mock.ExpectExec(`UPDATE coverages SET is_primary`).
		WithArgs(false, "p1", "si1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO coverages`).
		WithArgs(sqlmock.AnyArg(), "p1", "si1", "nurse-2", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cov, err := repo.Assign(context.Background(), models.AssignCoverageRequest{
		UserID:          "nurse-2",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
		MakePrimary:     true,
	})

	require.NoError(t, err)
	assert.True(t, cov.IsPrimary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassign_PrimaryPromotesEarliestRemaining(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, is_primary FROM coverages`).
		WithArgs("p1", "si1", "nurse-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_primary"}).AddRow("cov-1", true))
	mock.ExpectExec(`DELETE FROM coverages`).
		WithArgs("cov-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE coverages SET is_primary = true`).
		WithArgs("p1", "si1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Unassign(context.Background(), models.UnassignCoverageRequest{
		UserID:          "nurse-1",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
	})

	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassign_NonPrimaryLeavesPrimaryUntouched(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, is_primary FROM coverages`).
		WithArgs("p1", "si1", "nurse-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_primary"}).AddRow("cov-2", false))
	mock.ExpectExec(`DELETE FROM coverages`).
		WithArgs("cov-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Unassign(context.Background(), models.UnassignCoverageRequest{
		UserID:          "nurse-2",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
	})

	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassign_MissingRowRollsBackAndReturnsFalse(t *testing.T) {
	mock, repo, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, is_primary FROM coverages`).
		WithArgs("p1", "si1", "nurse-9").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	removed, err := repo.Unassign(context.Background(), models.UnassignCoverageRequest{
		UserID:          "nurse-9",
		PatientID:       "p1",
		ShiftInstanceID: "si1",
	})

	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
