// internal/models/review.go
package models

import "time"

// Review stage names.
const (
	StageDocumentVerification = "document_verification"
	StageFinancialReview      = "financial_review"
	StageAcademicReview       = "academic_review"
	StageFinalApproval        = "final_approval"
)

// Stage review statuses.
const (
	ReviewStatusPending       = "pending"
	ReviewStatusApproved      = "approved"
	ReviewStatusRejected      = "rejected"
	ReviewStatusNeedsRevision = "needs_revision"
)

// StageRequiredRoles maps each review stage to the reviewer roles that must
// all record an approval before the stage counts as complete.
var StageRequiredRoles = map[string][]string{
	StageDocumentVerification: {"city_council", "hrd", "social_services"},
	StageFinancialReview:      {"budget_dept", "accounting", "treasurer"},
	StageAcademicReview:       {"education_affairs", "qcydo", "planning_dept", "schools_division", "qcu"},
	StageFinalApproval:        {"chairperson"},
}

// ParallelStages are the SSC stages that run concurrently and must all
// complete before final approval becomes available.
var ParallelStages = []string{
	StageDocumentVerification,
	StageFinancialReview,
	StageAcademicReview,
}

// StageReview is one reviewer's verdict on one stage of one application.
// The (application, stage, reviewer) triple is unique.
type StageReview struct {
	ID            string                 `json:"id"`
	ApplicationID string                 `json:"applicationId"`
	Stage         string                 `json:"stage"`
	ReviewerID    string                 `json:"reviewerId"`
	ReviewerRole  string                 `json:"reviewerRole"`
	Status        string                 `json:"status"`
	Notes         string                 `json:"notes,omitempty"`
	ReviewData    map[string]interface{} `json:"reviewData,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// IsValidStage reports whether name is a known review stage.
func IsValidStage(name string) bool {
	_, ok := StageRequiredRoles[name]
	return ok
}

// RoleAllowedForStage reports whether role may review the given stage.
func RoleAllowedForStage(stage, role string) bool {
	for _, r := range StageRequiredRoles[stage] {
		if r == role {
			return true
		}
	}
	return false
}
