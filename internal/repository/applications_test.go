// internal/repository/applications_test.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*ApplicationRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApplicationRepository(db), mock
}

func TestCreate_GeneratesApplicationNumber(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT nextval\('application_no_seq'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "student-1", "cat-merit", "",
			int64(14), 25000.0, "draft", "", int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	app, err := repo.Create(context.Background(), &CreateApplicationInput{
		StudentID:       "student-1",
		CategoryID:      "cat-merit",
		SchoolID:        14,
		RequestedAmount: 25000,
	})

	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SCH-%d-00042", time.Now().UTC().Year()), app.ApplicationNo)
	assert.Equal(t, "draft", app.Status)
	assert.Equal(t, int64(1), app.Version)
	assert.NotEmpty(t, app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RequiresStudentAndCategory(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Create(context.Background(), &CreateApplicationInput{StudentID: "student-1"})
	assert.Error(t, err)

	_, err = repo.Create(context.Background(), &CreateApplicationInput{CategoryID: "cat-merit"})
	assert.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT .+ FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory_OrderedEntries(t *testing.T) {
	repo, mock := newTestRepository(t)

	first := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT id, application_id, status, .+ FROM status_history`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "status", "notes", "changed_by", "changed_at"}).
			AddRow("h-1", "app-1", "submitted", "", "student-1", first).
			AddRow("h-2", "app-1", "documents_reviewed", "ok", "reviewer-7", second))

	entries, err := repo.History(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "submitted", entries[0].Status)
	assert.Equal(t, "documents_reviewed", entries[1].Status)
	assert.True(t, entries[0].ChangedAt.Before(entries[1].ChangedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus(t *testing.T) {
	repo, mock := newTestRepository(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, application_no, student_id, status, requested_amount, version, created_at, updated_at\s+FROM applications\s+WHERE status = \$1`).
		WithArgs("submitted", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_no", "student_id", "status", "requested_amount", "version", "created_at", "updated_at",
		}).AddRow("app-1", "SCH-2026-00001", "student-1", "submitted", 25000.0, int64(1), now, now))

	apps, err := repo.ListByStatus(context.Background(), "submitted", 0, 0)

	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "SCH-2026-00001", apps[0].ApplicationNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentContact(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT COALESCE\(s.email, ''\), COALESCE\(s.phone, ''\)`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow("maria@example.org", "+639171234567"))

	email, phone, err := repo.StudentContact(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, "maria@example.org", email)
	assert.Equal(t, "+639171234567", phone)
}
