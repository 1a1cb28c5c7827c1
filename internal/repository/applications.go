// internal/repository/applications.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scholarship-workflow/internal/models"
	"scholarship-workflow/internal/workflow"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("APPLICATION_NOT_FOUND")
	ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)

// CreateApplicationInput carries the fields a draft starts with.
type CreateApplicationInput struct {
	StudentID       string
	CategoryID      string
	SubcategoryID   string
	SchoolID        int64
	RequestedAmount float64
	Notes           string
}

// ApplicationRepository is the persistence surface for the application
// aggregate and its owned read models.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a draft application with a generated application number
// (SCH-<year>-<seq>).
func (r *ApplicationRepository) Create(ctx context.Context, in *CreateApplicationInput) (*models.Application, error) {
	if in.StudentID == "" || in.CategoryID == "" {
		return nil, fmt.Errorf("%w: student and category are required", ErrQueryFailed)
	}

	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('application_no_seq')`).Scan(&seq); err != nil {
		return nil, fmt.Errorf("%w: next application number: %v", ErrQueryFailed, err)
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:              uuid.New().String(),
		ApplicationNo:   fmt.Sprintf("SCH-%d-%05d", now.Year(), seq),
		StudentID:       in.StudentID,
		CategoryID:      in.CategoryID,
		SubcategoryID:   in.SubcategoryID,
		SchoolID:        in.SchoolID,
		RequestedAmount: in.RequestedAmount,
		Status:          string(workflow.StatusDraft),
		Notes:           in.Notes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (id, application_no, student_id, category_id, subcategory_id, school_id, requested_amount, status, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		app.ID, app.ApplicationNo, app.StudentID, app.CategoryID, app.SubcategoryID,
		app.SchoolID, app.RequestedAmount, app.Status, app.Notes, app.Version, now)
	if err != nil {
		return nil, fmt.Errorf("%w: insert application: %v", ErrQueryFailed, err)
	}

	return app, nil
}

// GetByID loads the full application row.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := r.db.QueryRowContext(ctx, `
		SELECT id, application_no, student_id, category_id, COALESCE(subcategory_id, ''), school_id,
		       requested_amount, COALESCE(approved_amount, 0), status, COALESCE(notes, ''),
		       rejection_reason, version, submitted_at, reviewed_at, approved_at,
		       ready_for_final_approval_at, created_at, updated_at
		FROM applications WHERE id = $1`, id).Scan(
		&app.ID, &app.ApplicationNo, &app.StudentID, &app.CategoryID, &app.SubcategoryID,
		&app.SchoolID, &app.RequestedAmount, &app.ApprovedAmount, &app.Status, &app.Notes,
		&app.RejectionReason, &app.Version, &app.SubmittedAt, &app.ReviewedAt,
		&app.ApprovedAt, &app.ReadyForFinalApprovalAt, &app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load application: %v", ErrQueryFailed, err)
	}
	return &app, nil
}

// History returns the append-only status trail ordered by changed_at.
func (r *ApplicationRepository) History(ctx context.Context, applicationID string) ([]models.StatusHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, status, COALESCE(notes, ''), changed_by, changed_at
		FROM status_history
		WHERE application_id = $1
		ORDER BY changed_at ASC, id ASC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var e models.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.Status, &e.Notes, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("%w: scan history row: %v", ErrQueryFailed, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %v", ErrQueryFailed, err)
	}
	return entries, nil
}

// StageReviews returns all SSC reviews for the application.
func (r *ApplicationRepository) StageReviews(ctx context.Context, applicationID string) ([]models.StageReview, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, stage, reviewer_id, reviewer_role, status, COALESCE(notes, ''), created_at, updated_at
		FROM stage_reviews
		WHERE application_id = $1
		ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load stage reviews: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var reviews []models.StageReview
	for rows.Next() {
		var rev models.StageReview
		if err := rows.Scan(&rev.ID, &rev.ApplicationID, &rev.Stage, &rev.ReviewerID,
			&rev.ReviewerRole, &rev.Status, &rev.Notes, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan review row: %v", ErrQueryFailed, err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate reviews: %v", ErrQueryFailed, err)
	}
	return reviews, nil
}

// ListByStatus pages applications in one pipeline state, newest first.
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Application, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_no, student_id, status, requested_amount, version, created_at, updated_at
		FROM applications
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.ID, &app.ApplicationNo, &app.StudentID, &app.Status,
			&app.RequestedAmount, &app.Version, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan application row: %v", ErrQueryFailed, err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate applications: %v", ErrQueryFailed, err)
	}
	return apps, nil
}

// StudentContact returns the applicant's contact details for notifications.
func (r *ApplicationRepository) StudentContact(ctx context.Context, applicationID string) (email, phone string, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(s.email, ''), COALESCE(s.phone, '')
		FROM applications a
		JOIN students s ON s.id = a.student_id
		WHERE a.id = $1`, applicationID).Scan(&email, &phone)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, applicationID)
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: load student contact: %v", ErrQueryFailed, err)
	}
	return email, phone, nil
}
