// internal/models/interview.go
package models

import (
	"database/sql"
	"time"
)

// Interview statuses.
const (
	InterviewStatusScheduled   = "scheduled"
	InterviewStatusRescheduled = "rescheduled"
	InterviewStatusCompleted   = "completed"
	InterviewStatusCancelled   = "cancelled"
	InterviewStatusNoShow      = "no_show"
)

// Interview results.
const (
	InterviewResultPassed        = "passed"
	InterviewResultFailed        = "failed"
	InterviewResultNeedsFollowup = "needs_followup"
)

// InterviewSchedule is one scheduled interview for an application. It is
// terminal once completed, cancelled or marked no_show.
type InterviewSchedule struct {
	ID            string         `json:"id"`
	ApplicationID string         `json:"applicationId"`
	ScheduledAt   time.Time      `json:"scheduledAt"`
	Location      string         `json:"location,omitempty"`
	MeetingLink   string         `json:"meetingLink,omitempty"`
	InterviewerID string         `json:"interviewerId"`
	Status        string         `json:"status"`
	Result        sql.NullString `json:"-"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// IsTerminal reports whether the interview can no longer change state.
func (i *InterviewSchedule) IsTerminal() bool {
	switch i.Status {
	case InterviewStatusCompleted, InterviewStatusCancelled, InterviewStatusNoShow:
		return true
	}
	return false
}
