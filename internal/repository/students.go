// internal/repository/students.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"scholarship-workflow/internal/models"
)

// StudentRepository reads the student records and partner-school enrollment
// data the import pipeline maintains.
type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID loads one student record.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	var s models.Student
	err := r.db.QueryRowContext(ctx, `
		SELECT id, school_id, student_no, first_name, last_name,
		       COALESCE(email, ''), COALESCE(phone, ''), created_at, updated_at
		FROM students WHERE id = $1`, id).Scan(
		&s.ID, &s.SchoolID, &s.StudentNo, &s.FirstName, &s.LastName,
		&s.Email, &s.Phone, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: student %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load student: %v", ErrQueryFailed, err)
	}
	return &s, nil
}

// Enrollments returns the partner-school enrollment rows linked to a student,
// newest school year first.
func (r *StudentRepository) Enrollments(ctx context.Context, studentID string) ([]models.PartnerSchoolEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, school_id, student_no, school_year, term, first_name, last_name,
		       COALESCE(course, ''), COALESCE(year_level, ''), COALESCE(student_id, ''),
		       created_at, updated_at
		FROM partner_school_enrollments
		WHERE student_id = $1
		ORDER BY school_year DESC, term DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: load enrollments: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []models.PartnerSchoolEnrollment
	for rows.Next() {
		var e models.PartnerSchoolEnrollment
		if err := rows.Scan(&e.ID, &e.SchoolID, &e.StudentNo, &e.SchoolYear, &e.Term,
			&e.FirstName, &e.LastName, &e.Course, &e.YearLevel, &e.StudentID,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan enrollment row: %v", ErrQueryFailed, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate enrollments: %v", ErrQueryFailed, err)
	}
	return out, nil
}

// ImportReviewQueue lists fuzzy-matched enrollment rows awaiting manual
// resolution, oldest first.
func (r *StudentRepository) ImportReviewQueue(ctx context.Context, limit int) ([]models.ImportReviewItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_student_id, school_id, student_no, school_year, term,
		       first_name, last_name, similarity, created_at
		FROM import_review_queue
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: load review queue: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []models.ImportReviewItem
	for rows.Next() {
		var item models.ImportReviewItem
		if err := rows.Scan(&item.ID, &item.CandidateStudentID, &item.SchoolID,
			&item.StudentNo, &item.SchoolYear, &item.Term, &item.FirstName,
			&item.LastName, &item.Similarity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan review item: %v", ErrQueryFailed, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate review queue: %v", ErrQueryFailed, err)
	}
	return out, nil
}
