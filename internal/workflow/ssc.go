// internal/workflow/ssc.go
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/common/metrics"
	"scholarship-workflow/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidStage    = errors.New("INVALID_STAGE")
	ErrRoleNotAllowed  = errors.New("ROLE_NOT_ALLOWED")
	ErrDuplicateReview = errors.New("DUPLICATE_REVIEW")
	ErrInvalidReview   = errors.New("VALIDATION_ERROR")
)

const advanceLockTTL = 10 * time.Second

// ReviewInput is one reviewer's verdict on one SSC stage.
type ReviewInput struct {
	ApplicationID string
	Stage         string
	ReviewerID    string
	ReviewerRole  string
	Status        string
	Notes         string
	ReviewData    map[string]interface{}
}

// ReviewOutcome reports what recording the review changed.
type ReviewOutcome struct {
	ReviewID          string `json:"reviewId"`
	StageComplete     bool   `json:"stageComplete"`
	AllStagesComplete bool   `json:"allStagesComplete"`
	Advanced          bool   `json:"advanced"`
}

// SSCAggregator tracks the three parallel SSC review stages. When the last
// required role approves, it advances the application to ssc_final_approval
// exactly once: a per-application Redis lock keeps two simultaneous "last
// reviewer" requests from both running the advance, and the engine's version
// CAS backs that up at the row level.
type SSCAggregator struct {
	db     *sql.DB
	redis  *redis.Client
	engine *Engine
	logger logger.Logger
}

func NewSSCAggregator(db *sql.DB, rdb *redis.Client, engine *Engine, log logger.Logger) *SSCAggregator {
	return &SSCAggregator{
		db:     db,
		redis:  rdb,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "ssc-aggregator"}),
	}
}

// RecordStageReview upserts the (application, stage, reviewer) review row and
// recomputes stage completion. Resubmitting an identical review is rejected
// with ErrDuplicateReview and triggers no writes; changing a previous verdict
// (e.g. needs_revision to approved) updates the existing row.
func (a *SSCAggregator) RecordStageReview(ctx context.Context, in *ReviewInput) (*ReviewOutcome, error) {
	if !models.IsValidStage(in.Stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidStage, in.Stage)
	}
	if !models.RoleAllowedForStage(in.Stage, in.ReviewerRole) {
		return nil, fmt.Errorf("%w: role %q may not review stage %q", ErrRoleNotAllowed, in.ReviewerRole, in.Stage)
	}
	switch in.Status {
	case models.ReviewStatusPending, models.ReviewStatusApproved,
		models.ReviewStatusRejected, models.ReviewStatusNeedsRevision:
	default:
		return nil, fmt.Errorf("%w: unknown review status %q", ErrInvalidReview, in.Status)
	}
	if in.ReviewerID == "" {
		return nil, fmt.Errorf("%w: reviewer id is required", ErrInvalidReview)
	}

	var existingID, existingStatus string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, status FROM stage_reviews
		WHERE application_id = $1 AND stage = $2 AND reviewer_id = $3`,
		in.ApplicationID, in.Stage, in.ReviewerID).Scan(&existingID, &existingStatus)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: load existing review: %v", ErrQueryFailed, err)
	}
	if err == nil && existingStatus == in.Status {
		return nil, fmt.Errorf("%w: reviewer %s already recorded %s for stage %s",
			ErrDuplicateReview, in.ReviewerID, in.Status, in.Stage)
	}

	reviewDataJSON, err := json.Marshal(in.ReviewData)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal review data: %v", ErrInvalidReview, err)
	}

	now := time.Now().UTC()
	reviewID := uuid.New().String()
	err = a.db.QueryRowContext(ctx, `
		INSERT INTO stage_reviews (id, application_id, stage, reviewer_id, reviewer_role, status, notes, review_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (application_id, stage, reviewer_id)
		DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
		              review_data = EXCLUDED.review_data, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		reviewID, in.ApplicationID, in.Stage, in.ReviewerID, in.ReviewerRole,
		in.Status, in.Notes, reviewDataJSON, now).Scan(&reviewID)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert review: %v", ErrQueryFailed, err)
	}

	metrics.StageApprovalsTotal.WithLabelValues(in.Stage, in.Status).Inc()

	approvedRoles, err := a.approvedRolesByStage(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	outcome := &ReviewOutcome{
		ReviewID:          reviewID,
		StageComplete:     stageComplete(in.Stage, approvedRoles),
		AllStagesComplete: allParallelStagesComplete(approvedRoles),
	}

	if outcome.AllStagesComplete {
		advanced, err := a.advanceToFinalApproval(ctx, in.ApplicationID)
		if err != nil {
			return nil, err
		}
		outcome.Advanced = advanced
	}

	a.logger.Info("stage review recorded", map[string]interface{}{
		"applicationId":     in.ApplicationID,
		"stage":             in.Stage,
		"reviewerId":        in.ReviewerID,
		"status":            in.Status,
		"stageComplete":     outcome.StageComplete,
		"allStagesComplete": outcome.AllStagesComplete,
		"advanced":          outcome.Advanced,
	})

	return outcome, nil
}

// approvedRolesByStage returns the set of roles with an approved review, per
// stage, for one application.
func (a *SSCAggregator) approvedRolesByStage(ctx context.Context, applicationID string) (map[string]map[string]bool, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT stage, reviewer_role FROM stage_reviews
		WHERE application_id = $1 AND status = 'approved'`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load approved reviews: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	approved := make(map[string]map[string]bool)
	for rows.Next() {
		var stage, role string
		if err := rows.Scan(&stage, &role); err != nil {
			return nil, fmt.Errorf("%w: scan review row: %v", ErrQueryFailed, err)
		}
		if approved[stage] == nil {
			approved[stage] = make(map[string]bool)
		}
		approved[stage][role] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate review rows: %v", ErrQueryFailed, err)
	}
	return approved, nil
}

// stageComplete reports whether every required role for the stage approved.
func stageComplete(stage string, approved map[string]map[string]bool) bool {
	for _, role := range models.StageRequiredRoles[stage] {
		if !approved[stage][role] {
			return false
		}
	}
	return true
}

func allParallelStagesComplete(approved map[string]map[string]bool) bool {
	for _, stage := range models.ParallelStages {
		if !stageComplete(stage, approved) {
			return false
		}
	}
	return true
}

// advanceToFinalApproval moves the application to ssc_final_approval; the
// engine stamps ready_for_final_approval_at inside the same transaction.
// Returns false without error when another request holds the lock or the
// application already advanced.
func (a *SSCAggregator) advanceToFinalApproval(ctx context.Context, applicationID string) (bool, error) {
	lockKey := "ssc:advance:" + applicationID
	locked, err := a.redis.SetNX(ctx, lockKey, "1", advanceLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: acquire advance lock: %v", ErrQueryFailed, err)
	}
	if !locked {
		// The racing request that holds the lock performs the advance.
		return false, nil
	}
	defer a.redis.Del(ctx, lockKey)

	var current Status
	err = a.db.QueryRowContext(ctx, `
		SELECT status FROM applications WHERE id = $1`,
		applicationID).Scan(&current)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
	}
	if err != nil {
		return false, fmt.Errorf("%w: load application: %v", ErrQueryFailed, err)
	}

	if current == StatusSSCFinalApproval || !CanTransition(current, StatusSSCFinalApproval) {
		return false, nil
	}

	_, err = a.engine.AttemptTransition(ctx, applicationID, StatusSSCFinalApproval,
		"system:ssc-aggregator", "all SSC review stages approved")
	if err != nil {
		// A concurrent request won the row-level race; the advance happened.
		if errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrConcurrentUpdate) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
