// internal/workflow/status_test.go
package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionsTableIsClosed(t *testing.T) {
	// Every successor must itself be a known status.
	for from, successors := range Transitions {
		for _, to := range successors {
			assert.True(t, to.IsValid(), "successor %s of %s is not in the status set", to, from)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminals := []Status{StatusGrantsDisbursed, StatusRejected, StatusCancelled}
	for _, s := range terminals {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
		assert.Empty(t, Transitions[s])
	}

	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusOnHold.IsTerminal())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"draft to submitted", StatusDraft, StatusSubmitted, true},
		{"draft to cancelled", StatusDraft, StatusCancelled, true},
		{"draft to approved", StatusDraft, StatusApproved, false},
		{"submitted to documents reviewed", StatusSubmitted, StatusDocumentsReviewed, true},
		{"documents reviewed to interview scheduled", StatusDocumentsReviewed, StatusInterviewScheduled, true},
		{"interview completed to endorsed", StatusInterviewCompleted, StatusEndorsedToSSC, true},
		{"interview completed to cancelled", StatusInterviewCompleted, StatusCancelled, false},
		{"ssc final approval to approved", StatusSSCFinalApproval, StatusApproved, true},
		{"approved to grants processing", StatusApproved, StatusGrantsProcessing, true},
		{"approved to for compliance", StatusApproved, StatusForCompliance, true},
		{"for compliance to docs submitted", StatusForCompliance, StatusComplianceDocsSubmitd, true},
		{"compliance docs submitted to approved", StatusComplianceDocsSubmitd, StatusApproved, true},
		{"grants processing to disbursed", StatusGrantsProcessing, StatusGrantsDisbursed, true},
		{"rejected is terminal", StatusRejected, StatusSubmitted, false},
		{"cancelled is terminal", StatusCancelled, StatusDraft, false},
		{"disbursed is terminal", StatusGrantsDisbursed, StatusApproved, false},
		{"no skipping to approved", StatusSubmitted, StatusApproved, false},
		{"unknown source", Status("bogus"), StatusSubmitted, false},
		{"unknown target", StatusSubmitted, Status("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSSCParallelStatusesAreCrossLinked(t *testing.T) {
	parallel := []Status{StatusSSCDocVerification, StatusSSCFinancialReview, StatusSSCAcademicReview}

	for _, s := range parallel {
		assert.True(t, s.IsSSCParallel())
		// Each parallel status may hop to the other two and to final approval.
		for _, other := range parallel {
			if other == s {
				continue
			}
			assert.True(t, CanTransition(s, other), "%s should reach %s", s, other)
		}
		assert.True(t, CanTransition(s, StatusSSCFinalApproval))
	}

	assert.False(t, StatusSSCFinalApproval.IsSSCParallel())
	assert.False(t, StatusEndorsedToSSC.IsSSCParallel())
}

func TestOnHoldResumesToPipelineStatuses(t *testing.T) {
	resumable := []Status{
		StatusSubmitted, StatusDocumentsReviewed, StatusInterviewScheduled,
		StatusInterviewCompleted, StatusEndorsedToSSC, StatusSSCFinalApproval,
		StatusGrantsProcessing,
	}
	for _, s := range resumable {
		assert.True(t, CanTransition(StatusOnHold, s), "on_hold should resume to %s", s)
	}
	assert.True(t, CanTransition(StatusOnHold, StatusRejected))
	assert.True(t, CanTransition(StatusOnHold, StatusCancelled))
	assert.False(t, CanTransition(StatusOnHold, StatusApproved))
}
