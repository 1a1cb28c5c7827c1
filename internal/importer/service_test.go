// internal/importer/service_test.go
package importer

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workflow/internal/common/logger"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	return NewService(db, NewParser(), NewMatcher(db, 0.85, log), log), mock
}

func TestImport_ExactMatchUpserts(t *testing.T) {
	svc, mock := newTestService(t)

	csv := `school_id,student_no,school_year,term,first_name,last_name
14,2024-001,2024-2025,1st Semester,Maria,Santos
`
	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-1"))
	mock.ExpectExec(`INSERT INTO partner_school_enrollments`).
		WithArgs(sqlmock.AnyArg(), int64(14), "2024-001", "2024-2025", "1st Semester",
			"Maria", "Santos", "", "", "student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := svc.Import(context.Background(), []byte(csv), "csv")

	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRows)
	assert.Equal(t, 1, report.Upserted)
	assert.Equal(t, 0, report.CreatedStudents)
	assert.Equal(t, 0, report.QueuedForReview)
	assert.Empty(t, report.InvalidRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_FuzzyMatchParksForReview(t *testing.T) {
	svc, mock := newTestService(t)

	csv := `school_id,student_no,school_year,term,first_name,last_name
14,2024-001,2024-2025,1st Semester,Maria,Santos
`
	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, first_name, last_name FROM students WHERE school_id = \$1`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow("student-7", "Marai", "Santos"))
	mock.ExpectExec(`INSERT INTO import_review_queue`).
		WithArgs(sqlmock.AnyArg(), "student-7", int64(14), "2024-001", "2024-2025",
			"1st Semester", "Maria", "Santos", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := svc.Import(context.Background(), []byte(csv), "csv")

	require.NoError(t, err)
	assert.Equal(t, 1, report.QueuedForReview)
	assert.Equal(t, 0, report.Upserted, "fuzzy matches are never auto-merged")
	assert.Equal(t, 0, report.CreatedStudents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_NoMatchCreatesStudentAndEnrollment(t *testing.T) {
	svc, mock := newTestService(t)

	csv := `school_id,student_no,school_year,term,first_name,last_name
14,2024-003,2024-2025,1st Semester,Ana,Cruz
`
	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-003", "2024-2025", "1st Semester").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, first_name, last_name FROM students WHERE school_id = \$1`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow("student-8", "Jose", "Reyes"))
	mock.ExpectExec(`INSERT INTO students`).
		WithArgs(sqlmock.AnyArg(), int64(14), "2024-003", "Ana", "Cruz", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO partner_school_enrollments`).
		WithArgs(sqlmock.AnyArg(), int64(14), "2024-003", "2024-2025", "1st Semester",
			"Ana", "Cruz", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := svc.Import(context.Background(), []byte(csv), "csv")

	require.NoError(t, err)
	assert.Equal(t, 1, report.CreatedStudents)
	assert.Equal(t, 0, report.QueuedForReview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_InvalidRowSkippedNotFatal(t *testing.T) {
	svc, mock := newTestService(t)

	// First row has a malformed school year, second row is fine.
	csv := `school_id,student_no,school_year,term,first_name,last_name
14,2024-001,24-25,1st Semester,Maria,Santos
14,2024-002,2024-2025,1st Semester,Jose,Reyes
`
	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-002", "2024-2025", "1st Semester").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-2"))
	mock.ExpectExec(`INSERT INTO partner_school_enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := svc.Import(context.Background(), []byte(csv), "csv")

	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.Upserted)
	require.Len(t, report.InvalidRows, 1)
	assert.Contains(t, report.InvalidRows[0], "row 2 invalid")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_ParseErrorAbortsRun(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.Import(context.Background(), []byte("school_id\n"), "csv")

	assert.ErrorIs(t, err, ErrInvalidFileFormat)
	assert.NoError(t, mock.ExpectationsWereMet())
}
