// internal/workflow/engine_test.go
package workflow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workflow/internal/common/logger"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEngine(db, logger.NewTestLogger(t)), mock, db
}

func TestAttemptTransition_Success(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, version FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "version"}).AddRow("submitted", int64(3)))
	mock.ExpectExec(`UPDATE applications\s+SET status = \$1, version = version \+ 1, updated_at = \$2\s+WHERE id = \$3 AND version = \$4`).
		WithArgs("documents_reviewed", sqlmock.AnyArg(), "app-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE applications SET reviewed_at = \$1 WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO status_history`).
		WithArgs(sqlmock.AnyArg(), "app-1", "documents_reviewed", "all documents in order", "reviewer-7", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := engine.AttemptTransition(context.Background(), "app-1",
		StatusDocumentsReviewed, "reviewer-7", "all documents in order")

	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, result.From)
	assert.Equal(t, StatusDocumentsReviewed, result.To)
	assert.Equal(t, int64(4), result.Version)
	assert.Equal(t, "reviewer-7", result.ChangedBy)
	assert.NotEmpty(t, result.HistoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptTransition_IllegalTransitionWritesNothing(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, version FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "version"}).AddRow("draft", int64(1)))
	mock.ExpectRollback()

	result, err := engine.AttemptTransition(context.Background(), "app-1",
		StatusApproved, "admin-1", "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptTransition_UnknownTargetStatus(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result, err := engine.AttemptTransition(context.Background(), "app-1",
		Status("made_up"), "admin-1", "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAttemptTransition_ApplicationNotFound(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, version FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := engine.AttemptTransition(context.Background(), "missing",
		StatusSubmitted, "admin-1", "")

	assert.ErrorIs(t, err, ErrApplicationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptTransition_StaleVersionLosesRace(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, version FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "version"}).AddRow("submitted", int64(3)))
	mock.ExpectExec(`UPDATE applications\s+SET status = \$1, version = version \+ 1, updated_at = \$2\s+WHERE id = \$3 AND version = \$4`).
		WithArgs("documents_reviewed", sqlmock.AnyArg(), "app-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := engine.AttemptTransition(context.Background(), "app-1",
		StatusDocumentsReviewed, "reviewer-7", "")

	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptTransition_RejectionStampsReason(t *testing.T) {
	engine, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, version FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "version"}).AddRow("submitted", int64(2)))
	mock.ExpectExec(`UPDATE applications\s+SET status = \$1, version = version \+ 1, updated_at = \$2\s+WHERE id = \$3 AND version = \$4`).
		WithArgs("rejected", sqlmock.AnyArg(), "app-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE applications SET rejection_reason = \$1 WHERE id = \$2 AND rejection_reason IS NULL`).
		WithArgs("incomplete requirements", "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO status_history`).
		WithArgs(sqlmock.AnyArg(), "app-1", "rejected", "incomplete requirements", "committee-3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := engine.AttemptTransition(context.Background(), "app-1",
		StatusRejected, "committee-3", "incomplete requirements")

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}
