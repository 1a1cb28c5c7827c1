// internal/models/enrollment.go
package models

import "time"

// Enrollment verification statuses.
const (
	VerificationStatusPending     = "pending"
	VerificationStatusVerified    = "verified"
	VerificationStatusRejected    = "rejected"
	VerificationStatusNeedsReview = "needs_review"
)

// EnrollmentVerification confirms a student's current school enrollment for
// one application. Terminal on verified or rejected.
type EnrollmentVerification struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	VerifierID    string    `json:"verifierId,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (v *EnrollmentVerification) IsTerminal() bool {
	return v.Status == VerificationStatusVerified || v.Status == VerificationStatusRejected
}

// PartnerSchoolEnrollment is one row of a partner school's enrollment report,
// keyed uniquely by (school, student number, school year, term).
type PartnerSchoolEnrollment struct {
	ID         string    `json:"id"`
	SchoolID   int64     `json:"schoolId"`
	StudentNo  string    `json:"studentNo"`
	SchoolYear string    `json:"schoolYear"`
	Term       string    `json:"term"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Course     string    `json:"course,omitempty"`
	YearLevel  string    `json:"yearLevel,omitempty"`
	StudentID  string    `json:"studentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
