// internal/workflow/enrollment.go
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/models"

	"github.com/google/uuid"
)

var ErrVerificationNotFound = errors.New("VERIFICATION_NOT_FOUND")

// EnrollmentService verifies a student's current school enrollment for an
// application. Terminal on verified or rejected.
type EnrollmentService struct {
	db     *sql.DB
	logger logger.Logger
}

func NewEnrollmentService(db *sql.DB, log logger.Logger) *EnrollmentService {
	return &EnrollmentService{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "enrollment-service"}),
	}
}

// Create opens a pending verification for the application.
func (s *EnrollmentService) Create(ctx context.Context, applicationID string) (*models.EnrollmentVerification, error) {
	now := time.Now().UTC()
	verification := &models.EnrollmentVerification{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		Status:        models.VerificationStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollment_verifications (id, application_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		verification.ID, verification.ApplicationID, verification.Status, now)
	if err != nil {
		return nil, fmt.Errorf("%w: insert verification: %v", ErrQueryFailed, err)
	}

	return verification, nil
}

// Verify marks the enrollment confirmed.
func (s *EnrollmentService) Verify(ctx context.Context, verificationID, verifierID, notes string) error {
	return s.resolve(ctx, verificationID, models.VerificationStatusVerified, verifierID, notes)
}

// Reject marks the enrollment disproved.
func (s *EnrollmentService) Reject(ctx context.Context, verificationID, verifierID, notes string) error {
	return s.resolve(ctx, verificationID, models.VerificationStatusRejected, verifierID, notes)
}

// FlagNeedsReview parks the verification for a second look without closing it.
func (s *EnrollmentService) FlagNeedsReview(ctx context.Context, verificationID, verifierID, notes string) error {
	return s.resolve(ctx, verificationID, models.VerificationStatusNeedsReview, verifierID, notes)
}

func (s *EnrollmentService) resolve(ctx context.Context, verificationID, status, verifierID, notes string) error {
	var current string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM enrollment_verifications WHERE id = $1`,
		verificationID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrVerificationNotFound, verificationID)
	}
	if err != nil {
		return fmt.Errorf("%w: load verification: %v", ErrQueryFailed, err)
	}

	if current == models.VerificationStatusVerified || current == models.VerificationStatusRejected {
		return fmt.Errorf("%w: verification already %s", ErrInvalidState, current)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE enrollment_verifications
		SET status = $1, verifier_id = $2, notes = $3, updated_at = $4
		WHERE id = $5`,
		status, verifierID, notes, time.Now().UTC(), verificationID)
	if err != nil {
		return fmt.Errorf("%w: resolve verification: %v", ErrQueryFailed, err)
	}

	s.logger.Info("enrollment verification resolved", map[string]interface{}{
		"verificationId": verificationID,
		"status":         status,
		"verifierId":     verifierID,
	})
	return nil
}
