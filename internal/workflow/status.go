// internal/workflow/status.go
package workflow

// Status is the closed set of application pipeline states. All transition
// decisions go through the Transitions table, never string comparison at call
// sites.
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusSubmitted             Status = "submitted"
	StatusDocumentsReviewed     Status = "documents_reviewed"
	StatusInterviewScheduled    Status = "interview_scheduled"
	StatusInterviewCompleted    Status = "interview_completed"
	StatusEndorsedToSSC         Status = "endorsed_to_ssc"
	StatusSSCDocVerification    Status = "ssc_document_verification"
	StatusSSCFinancialReview    Status = "ssc_financial_review"
	StatusSSCAcademicReview     Status = "ssc_academic_review"
	StatusSSCFinalApproval      Status = "ssc_final_approval"
	StatusApproved              Status = "approved"
	StatusGrantsProcessing      Status = "grants_processing"
	StatusGrantsDisbursed       Status = "grants_disbursed"
	StatusRejected              Status = "rejected"
	StatusOnHold                Status = "on_hold"
	StatusCancelled             Status = "cancelled"
	StatusForCompliance         Status = "for_compliance"
	StatusComplianceDocsSubmitd Status = "compliance_documents_submitted"
)

// Transitions is the legal-successor table. The happy path is the linear
// pipeline; rejected/on_hold/cancelled/for_compliance branch off at the
// points the committee can exercise them.
var Transitions = map[Status][]Status{
	StatusDraft: {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {
		StatusDocumentsReviewed, StatusRejected, StatusOnHold, StatusCancelled,
	},
	StatusDocumentsReviewed: {
		StatusInterviewScheduled, StatusRejected, StatusOnHold, StatusCancelled,
	},
	StatusInterviewScheduled: {
		StatusInterviewCompleted, StatusRejected, StatusOnHold, StatusCancelled,
	},
	StatusInterviewCompleted: {
		StatusEndorsedToSSC, StatusRejected, StatusOnHold,
	},
	StatusEndorsedToSSC: {
		StatusSSCDocVerification, StatusSSCFinancialReview, StatusSSCAcademicReview,
		StatusSSCFinalApproval, StatusRejected, StatusOnHold,
	},
	StatusSSCDocVerification: {
		StatusSSCFinancialReview, StatusSSCAcademicReview,
		StatusSSCFinalApproval, StatusRejected, StatusOnHold,
	},
	StatusSSCFinancialReview: {
		StatusSSCDocVerification, StatusSSCAcademicReview,
		StatusSSCFinalApproval, StatusRejected, StatusOnHold,
	},
	StatusSSCAcademicReview: {
		StatusSSCDocVerification, StatusSSCFinancialReview,
		StatusSSCFinalApproval, StatusRejected, StatusOnHold,
	},
	StatusSSCFinalApproval: {StatusApproved, StatusRejected, StatusOnHold},
	StatusApproved:         {StatusGrantsProcessing, StatusForCompliance},
	StatusGrantsProcessing: {StatusGrantsDisbursed, StatusOnHold, StatusForCompliance},
	StatusForCompliance: {
		StatusComplianceDocsSubmitd, StatusRejected, StatusCancelled,
	},
	StatusComplianceDocsSubmitd: {StatusApproved, StatusRejected},
	StatusOnHold: {
		StatusSubmitted, StatusDocumentsReviewed, StatusInterviewScheduled,
		StatusInterviewCompleted, StatusEndorsedToSSC, StatusSSCFinalApproval,
		StatusGrantsProcessing, StatusRejected, StatusCancelled,
	},
	// Terminal
	StatusGrantsDisbursed: {},
	StatusRejected:        {},
	StatusCancelled:       {},
}

// IsValid reports whether s is a member of the status enumeration.
func (s Status) IsValid() bool {
	_, ok := Transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	next, ok := Transitions[s]
	return ok && len(next) == 0
}

// IsSSCParallel reports whether s is one of the three parallel SSC review
// statuses.
func (s Status) IsSSCParallel() bool {
	switch s {
	case StatusSSCDocVerification, StatusSSCFinancialReview, StatusSSCAcademicReview:
		return true
	}
	return false
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to Status) bool {
	for _, next := range Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
