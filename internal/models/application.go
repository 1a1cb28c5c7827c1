// internal/models/application.go
package models

import (
	"database/sql"
	"time"
)

// Application is the aggregate moving through the approval pipeline.
type Application struct {
	ID                      string         `json:"id"`
	ApplicationNo           string         `json:"applicationNo"`
	StudentID               string         `json:"studentId"`
	CategoryID              string         `json:"categoryId"`
	SubcategoryID           string         `json:"subcategoryId,omitempty"`
	SchoolID                int64          `json:"schoolId"`
	RequestedAmount         float64        `json:"requestedAmount"`
	ApprovedAmount          float64        `json:"approvedAmount,omitempty"`
	Status                  string         `json:"status"`
	Notes                   string         `json:"notes,omitempty"`
	RejectionReason         sql.NullString `json:"-"`
	Version                 int64          `json:"version"`
	SubmittedAt             sql.NullTime   `json:"-"`
	ReviewedAt              sql.NullTime   `json:"-"`
	ApprovedAt              sql.NullTime   `json:"-"`
	ReadyForFinalApprovalAt sql.NullTime   `json:"-"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}

// StatusHistoryEntry is an immutable append-only record of a status change.
// Ordered by ChangedAt, the entries reconstruct the full transition history.
type StatusHistoryEntry struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	ChangedBy     string    `json:"changedBy"`
	ChangedAt     time.Time `json:"changedAt"`
}
