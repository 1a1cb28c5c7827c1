// internal/models/student.go
package models

import "time"

// Student is the citizen record enrollment rows resolve against.
type Student struct {
	ID        string    `json:"id"`
	SchoolID  int64     `json:"schoolId"`
	StudentNo string    `json:"studentNo"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ImportReviewItem is a fuzzy-matched enrollment row parked for manual
// resolution instead of being auto-merged.
type ImportReviewItem struct {
	ID                 string    `json:"id"`
	CandidateStudentID string    `json:"candidateStudentId"`
	SchoolID           int64     `json:"schoolId"`
	StudentNo          string    `json:"studentNo"`
	SchoolYear         string    `json:"schoolYear"`
	Term               string    `json:"term"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Similarity         float64   `json:"similarity"`
	CreatedAt          time.Time `json:"createdAt"`
}
