// internal/workflow/interview.go
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

var (
	ErrInvalidState      = errors.New("INVALID_STATE")
	ErrInterviewNotFound = errors.New("INTERVIEW_NOT_FOUND")
	ErrInvalidResult     = errors.New("VALIDATION_ERROR")
)

// InterviewService owns the interview schedule lifecycle. Only scheduled and
// rescheduled interviews may move; completed, cancelled and no_show are
// terminal.
type InterviewService struct {
	db     *sql.DB
	engine *Engine
	logger logger.Logger
}

func NewInterviewService(db *sql.DB, engine *Engine, log logger.Logger) *InterviewService {
	return &InterviewService{
		db:     db,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "interview-service"}),
	}
}

// Schedule creates an interview and advances the application to
// interview_scheduled. The transition guard runs first so an application that
// is not ready for interviewing never gets a schedule row.
func (s *InterviewService) Schedule(ctx context.Context, applicationID string, scheduledAt time.Time, location, meetingLink, interviewerID, actor string) (*models.InterviewSchedule, error) {
	if interviewerID == "" {
		return nil, fmt.Errorf("%w: interviewer id is required", ErrInvalidResult)
	}

	if _, err := s.engine.AttemptTransition(ctx, applicationID, StatusInterviewScheduled, actor,
		fmt.Sprintf("interview scheduled for %s", scheduledAt.Format(time.RFC3339))); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	interview := &models.InterviewSchedule{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		ScheduledAt:   scheduledAt.UTC(),
		Location:      location,
		MeetingLink:   meetingLink,
		InterviewerID: interviewerID,
		Status:        models.InterviewStatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interview_schedules (id, application_id, scheduled_at, location, meeting_link, interviewer_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		interview.ID, interview.ApplicationID, interview.ScheduledAt,
		interview.Location, interview.MeetingLink, interview.InterviewerID,
		interview.Status, now)
	if err != nil {
		return nil, fmt.Errorf("%w: insert interview: %v", ErrQueryFailed, err)
	}

	s.logger.Info("interview scheduled", map[string]interface{}{
		"applicationId": applicationID,
		"interviewId":   interview.ID,
		"scheduledAt":   interview.ScheduledAt,
	})

	return interview, nil
}

// Complete records the interview result and advances the application to
// interview_completed. As with Schedule, the transition guard runs first: an
// application that can no longer accept the result (say it was rejected while
// the interview was pending) leaves the interview row untouched.
func (s *InterviewService) Complete(ctx context.Context, interviewID, result, notes, actor string) error {
	switch result {
	case models.InterviewResultPassed, models.InterviewResultFailed, models.InterviewResultNeedsFollowup:
	default:
		return fmt.Errorf("%w: unknown interview result %q", ErrInvalidResult, result)
	}

	interview, err := s.loadSchedulable(ctx, interviewID, "complete")
	if err != nil {
		return err
	}

	if _, err := s.engine.AttemptTransition(ctx, interview.ApplicationID, StatusInterviewCompleted, actor,
		fmt.Sprintf("interview completed: %s", result)); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET status = $1, result = $2, notes = $3, updated_at = $4
		WHERE id = $5`,
		models.InterviewStatusCompleted, result, notes, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("%w: complete interview: %v", ErrQueryFailed, err)
	}

	return nil
}

// Cancel marks the interview cancelled with a reason. The application status
// is untouched; the committee decides the follow-up transition separately.
func (s *InterviewService) Cancel(ctx context.Context, interviewID, reason, actor string) error {
	if _, err := s.loadSchedulable(ctx, interviewID, "cancel"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET status = $1, notes = $2, updated_at = $3
		WHERE id = $4`,
		models.InterviewStatusCancelled, reason, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("%w: cancel interview: %v", ErrQueryFailed, err)
	}

	s.logger.Info("interview cancelled", map[string]interface{}{
		"interviewId": interviewID,
		"reason":      reason,
		"cancelledBy": actor,
	})
	return nil
}

// Reschedule records a new date/time and loops the interview back to a
// schedulable state.
func (s *InterviewService) Reschedule(ctx context.Context, interviewID string, newTime time.Time, reason, actor string) error {
	if _, err := s.loadSchedulable(ctx, interviewID, "reschedule"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET status = $1, scheduled_at = $2, notes = $3, updated_at = $4
		WHERE id = $5`,
		models.InterviewStatusRescheduled, newTime.UTC(), reason, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("%w: reschedule interview: %v", ErrQueryFailed, err)
	}

	s.logger.Info("interview rescheduled", map[string]interface{}{
		"interviewId":   interviewID,
		"newTime":       newTime.UTC(),
		"rescheduledBy": actor,
	})
	return nil
}

// MarkNoShow marks the applicant as absent.
func (s *InterviewService) MarkNoShow(ctx context.Context, interviewID, notes, actor string) error {
	if _, err := s.loadSchedulable(ctx, interviewID, "mark no-show"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET status = $1, notes = $2, updated_at = $3
		WHERE id = $4`,
		models.InterviewStatusNoShow, notes, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("%w: mark no-show: %v", ErrQueryFailed, err)
	}
	return nil
}

// loadSchedulable loads the interview and rejects the action when the
// interview is in a terminal state.
func (s *InterviewService) loadSchedulable(ctx context.Context, interviewID, action string) (*models.InterviewSchedule, error) {
	var interview models.InterviewSchedule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, status FROM interview_schedules WHERE id = $1`,
		interviewID).Scan(&interview.ID, &interview.ApplicationID, &interview.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrInterviewNotFound, interviewID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load interview: %v", ErrQueryFailed, err)
	}

	if interview.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot %s interview in state %s", ErrInvalidState, action, interview.Status)
	}
	return &interview, nil
}
