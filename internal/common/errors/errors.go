// Package errors provides standardized error handling for the scholarship workflow.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Workflow business errors
const (
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicateReview   ErrorCode = "DUPLICATE_REVIEW"
	ErrCodeInvalidStage      ErrorCode = "INVALID_STAGE"
	ErrCodeRoleNotAllowed    ErrorCode = "ROLE_NOT_ALLOWED"

	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeConcurrentUpdate    ErrorCode = "CONCURRENT_UPDATE"
)

// Infrastructure errors
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchIndexFailed ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeImportParseFailed ErrorCode = "IMPORT_PARSE_FAILED"
	ErrCodeImportRowInvalid  ErrorCode = "IMPORT_ROW_INVALID"
)

// WorkflowError represents a structured application error.
type WorkflowError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("WorkflowError[%s]: %s", e.Code, e.Message)
}

// NewIllegalTransitionError names the current and requested status so the
// caller can surface both to the end user.
func NewIllegalTransitionError(current, requested string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeIllegalTransition,
		Message:   "Requested status is not reachable from the current status",
		Details:   fmt.Sprintf("current: %s, requested: %s", current, requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable error for actions attempted on
// a terminal or unexpected state.
func NewInvalidStateError(entity, state, action string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeInvalidState,
		Message:   fmt.Sprintf("Action '%s' not allowed for %s in state '%s'", action, entity, state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable validation error.
func NewValidationError(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeValidationFailed,
		Message:   "Required field missing or invalid at this stage",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateReviewError creates a non-retryable duplicate review error.
func NewDuplicateReviewError(applicationID, stage, reviewerID string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeDuplicateReview,
		Message:   "Reviewer already recorded a review for this stage",
		Details:   fmt.Sprintf("applicationId: %s, stage: %s, reviewerId: %s", applicationID, stage, reviewerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentUpdateError creates a retryable optimistic-lock error.
func NewConcurrentUpdateError(applicationID string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeConcurrentUpdate,
		Message:   "Application was modified by another request",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchIndexFailedError creates a retryable search indexing error.
func NewSearchIndexFailedError(indexName string, err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeSearchIndexFailed,
		Message:   "Search index operation failed",
		Details:   fmt.Sprintf("index: %s, error: %s", indexName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewImportParseFailedError creates a non-retryable import parse error.
func NewImportParseFailedError(err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeImportParseFailed,
		Message:   "Enrollment file could not be parsed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewImportRowInvalidError creates a non-retryable per-row validation error.
func NewImportRowInvalidError(rowNum int, details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeImportRowInvalid,
		Message:   "Enrollment row failed schema validation",
		Details:   fmt.Sprintf("row: %d, %s", rowNum, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"row": rowNum},
		Timestamp: time.Now().UTC(),
	}
}

// New builds a WorkflowError for code. Retryability follows the code's
// category: infrastructure failures retry, business rejections do not.
func New(code ErrorCode, message string) *WorkflowError {
	retryable := false
	switch GetErrorCategory(code) {
	case "DATABASE", "SEARCH", "NOTIFICATION":
		retryable = true
	}
	return &WorkflowError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a retryable WorkflowError.
func IsRetryable(err error) bool {
	if we, ok := err.(*WorkflowError); ok {
		return we.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "STATE") || strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "REVIEW") || strings.Contains(codeStr, "ROLE"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CONCURRENT"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "IMPORT"):
		return "IMPORT"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
