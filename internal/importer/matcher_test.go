// internal/importer/matcher_test.go
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

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"maria", "marai", 1}, // adjacent transposition is one edit
		{"maria", "mario", 1},
		{"ab", "ba", 1},
		{"santos", "santoss", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "editDistance(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Maria", "Maria", 1.0},
		{"transposed pair", "Maria", "Marai", 0.8},
		{"one substitution", "Maria", "Mario", 0.8},
		{"case insensitive", "MARIA", "maria", 1.0},
		{"whitespace normalized", "  Maria   Clara ", "maria clara", 1.0},
		{"both empty", "", "", 1.0},
		{"completely different", "Maria", "Xu", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 0.001)
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	// Transposed first name, identical last name: (0.8 + 1.0) / 2.
	assert.InDelta(t, 0.9, NameSimilarity("Maria", "Santos", "Marai", "Santos"), 0.001)
	assert.InDelta(t, 1.0, NameSimilarity("Jose", "Reyes", "jose", "REYES"), 0.001)
}

func newTestMatcher(t *testing.T, threshold float64) (*Matcher, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMatcher(db, threshold, logger.NewTestLogger(t)), mock
}

func enrollmentRow() *EnrollmentRow {
	return &EnrollmentRow{
		RowNum:     2,
		SchoolID:   14,
		StudentNo:  "2024-001",
		SchoolYear: "2024-2025",
		Term:       "1st Semester",
		FirstName:  "Maria",
		LastName:   "Santos",
	}
}

func TestMatch_ExactIdentity(t *testing.T) {
	matcher, mock := newTestMatcher(t, 0.85)

	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-1"))

	match, err := matcher.Match(context.Background(), enrollmentRow())

	require.NoError(t, err)
	assert.Equal(t, DecisionExact, match.Decision)
	assert.Equal(t, "student-1", match.StudentID)
	assert.Equal(t, 1.0, match.Similarity)
	assert.NoError(t, mock.ExpectationsWereMet(), "exact match must skip the fuzzy scan")
}

func TestMatch_FuzzyAboveThresholdGoesToReview(t *testing.T) {
	matcher, mock := newTestMatcher(t, 0.85)

	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, first_name, last_name FROM students WHERE school_id = \$1`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow("student-7", "Marai", "Santos").
			AddRow("student-8", "Jose", "Reyes"))

	match, err := matcher.Match(context.Background(), enrollmentRow())

	require.NoError(t, err)
	assert.Equal(t, DecisionReview, match.Decision, "a near-name match must never auto-merge")
	assert.Equal(t, "student-7", match.StudentID)
	assert.InDelta(t, 0.9, match.Similarity, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatch_BelowThresholdCreatesNewStudent(t *testing.T) {
	matcher, mock := newTestMatcher(t, 0.85)

	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, first_name, last_name FROM students WHERE school_id = \$1`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow("student-8", "Jose", "Reyes"))

	match, err := matcher.Match(context.Background(), enrollmentRow())

	require.NoError(t, err)
	assert.Equal(t, DecisionNew, match.Decision)
	assert.Empty(t, match.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatch_NoCandidatesCreatesNewStudent(t *testing.T) {
	matcher, mock := newTestMatcher(t, 0.85)

	mock.ExpectQuery(`SELECT student_id FROM partner_school_enrollments`).
		WithArgs(int64(14), "2024-001", "2024-2025", "1st Semester").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, first_name, last_name FROM students WHERE school_id = \$1`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}))

	match, err := matcher.Match(context.Background(), enrollmentRow())

	require.NoError(t, err)
	assert.Equal(t, DecisionNew, match.Decision)
}
