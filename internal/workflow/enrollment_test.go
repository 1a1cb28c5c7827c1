// internal/workflow/enrollment_test.go
package workflow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/models"
)

func newTestEnrollmentService(t *testing.T) (*EnrollmentService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEnrollmentService(db, logger.NewTestLogger(t)), mock
}

func TestCreateVerification(t *testing.T) {
	svc, mock := newTestEnrollmentService(t)

	mock.ExpectExec(`INSERT INTO enrollment_verifications`).
		WithArgs(sqlmock.AnyArg(), "app-1", models.VerificationStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	verification, err := svc.Create(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, "app-1", verification.ApplicationID)
	assert.Equal(t, models.VerificationStatusPending, verification.Status)
	assert.NotEmpty(t, verification.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_Success(t *testing.T) {
	svc, mock := newTestEnrollmentService(t)

	mock.ExpectQuery(`SELECT status FROM enrollment_verifications`).
		WithArgs("ver-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.VerificationStatusPending))
	mock.ExpectExec(`UPDATE enrollment_verifications`).
		WithArgs(models.VerificationStatusVerified, "verifier-1", "registrar confirmed", sqlmock.AnyArg(), "ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Verify(context.Background(), "ver-1", "verifier-1", "registrar confirmed")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerification_TerminalStatesRejectResolution(t *testing.T) {
	for _, terminal := range []string{models.VerificationStatusVerified, models.VerificationStatusRejected} {
		t.Run(terminal, func(t *testing.T) {
			svc, mock := newTestEnrollmentService(t)

			mock.ExpectQuery(`SELECT status FROM enrollment_verifications`).
				WithArgs("ver-1").
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(terminal))

			err := svc.Reject(context.Background(), "ver-1", "verifier-1", "")

			assert.ErrorIs(t, err, ErrInvalidState)
			assert.NoError(t, mock.ExpectationsWereMet(), "terminal verification must not be updated")
		})
	}
}

func TestNeedsReview_KeepsVerificationOpen(t *testing.T) {
	svc, mock := newTestEnrollmentService(t)

	// needs_review is not terminal, so a later verify still goes through.
	mock.ExpectQuery(`SELECT status FROM enrollment_verifications`).
		WithArgs("ver-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.VerificationStatusNeedsReview))
	mock.ExpectExec(`UPDATE enrollment_verifications`).
		WithArgs(models.VerificationStatusVerified, "verifier-2", "", sqlmock.AnyArg(), "ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Verify(context.Background(), "ver-1", "verifier-2", "")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerification_NotFound(t *testing.T) {
	svc, mock := newTestEnrollmentService(t)

	mock.ExpectQuery(`SELECT status FROM enrollment_verifications`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := svc.Verify(context.Background(), "missing", "verifier-1", "")

	assert.ErrorIs(t, err, ErrVerificationNotFound)
}
