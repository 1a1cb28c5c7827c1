// internal/workflow/engine.go
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/common/metrics"

	"github.com/google/uuid"
)

var (
	ErrIllegalTransition   = errors.New("ILLEGAL_TRANSITION")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrConcurrentUpdate    = errors.New("CONCURRENT_UPDATE")
	ErrQueryFailed         = errors.New("QUERY_EXECUTION_FAILED")
)

// TransitionResult records one applied status change.
type TransitionResult struct {
	ApplicationID string    `json:"applicationId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Version       int64     `json:"version"`
	ChangedBy     string    `json:"changedBy"`
	ChangedAt     time.Time `json:"changedAt"`
	HistoryID     string    `json:"historyId"`
}

// Engine applies status transitions. The status update and the history insert
// are one atomic unit: both succeed or both roll back.
type Engine struct {
	db     *sql.DB
	logger logger.Logger
}

func NewEngine(db *sql.DB, log logger.Logger) *Engine {
	return &Engine{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "workflow-engine"}),
	}
}

// AttemptTransition moves the application to target if the transition table
// allows it from the current status. The application row carries a version
// column; the conditional update makes two racing requests serialize, with the
// loser getting ErrConcurrentUpdate instead of silently overwriting.
func (e *Engine) AttemptTransition(ctx context.Context, applicationID string, target Status, actor, notes string) (*TransitionResult, error) {
	start := time.Now()

	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, target)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", ErrQueryFailed, err)
	}
	defer tx.Rollback()

	var current Status
	var version int64
	err = tx.QueryRowContext(ctx, `
		SELECT status, version FROM applications WHERE id = $1`,
		applicationID).Scan(&current, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load application: %v", ErrQueryFailed, err)
	}

	if !CanTransition(current, target) {
		metrics.IllegalTransitionsTotal.WithLabelValues(string(current), string(target)).Inc()
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrIllegalTransition, current, target)
	}

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		target, now, applicationID, version)
	if err != nil {
		return nil, fmt.Errorf("%w: update status: %v", ErrQueryFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected: %v", ErrQueryFailed, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: application %s version %d is stale", ErrConcurrentUpdate, applicationID, version)
	}

	if err := e.stampMilestone(ctx, tx, applicationID, target, notes, now); err != nil {
		return nil, err
	}

	historyID := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_history (id, application_id, status, notes, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		historyID, applicationID, target, notes, actor, now)
	if err != nil {
		return nil, fmt.Errorf("%w: append history: %v", ErrQueryFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrQueryFailed, err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(current), string(target)).Inc()
	metrics.TransitionDuration.WithLabelValues(string(target)).Observe(time.Since(start).Seconds())

	e.logger.Info("status transition applied", map[string]interface{}{
		"applicationId": applicationID,
		"from":          string(current),
		"to":            string(target),
		"changedBy":     actor,
	})

	return &TransitionResult{
		ApplicationID: applicationID,
		From:          current,
		To:            target,
		Version:       version + 1,
		ChangedBy:     actor,
		ChangedAt:     now,
		HistoryID:     historyID,
	}, nil
}

// stampMilestone records the stage timestamps the pipeline reports on.
func (e *Engine) stampMilestone(ctx context.Context, tx *sql.Tx, applicationID string, target Status, notes string, now time.Time) error {
	var query string
	args := []interface{}{now, applicationID}

	switch target {
	case StatusSubmitted:
		query = `UPDATE applications SET submitted_at = $1 WHERE id = $2`
	case StatusDocumentsReviewed:
		query = `UPDATE applications SET reviewed_at = $1 WHERE id = $2`
	case StatusApproved:
		query = `UPDATE applications SET approved_at = $1 WHERE id = $2`
	case StatusSSCFinalApproval:
		query = `UPDATE applications SET ready_for_final_approval_at = $1 WHERE id = $2 AND ready_for_final_approval_at IS NULL`
	case StatusRejected:
		query = `UPDATE applications SET rejection_reason = $1 WHERE id = $2 AND rejection_reason IS NULL`
		args = []interface{}{notes, applicationID}
	default:
		return nil
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: stamp milestone for %s: %v", ErrQueryFailed, target, err)
	}
	return nil
}
