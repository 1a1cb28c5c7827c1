// internal/api/handler.go
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "scholarship-workflow/internal/common/errors"
	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/importer"
	"scholarship-workflow/internal/models"
	"scholarship-workflow/internal/notify"
	"scholarship-workflow/internal/repository"
	"scholarship-workflow/internal/search"
	"scholarship-workflow/internal/workflow"
)

// Handler wires the HTTP surface to the workflow services. Every state-changing
// endpoint requires the acting user in the X-Actor-Id header; the audit trail
// has no anonymous entries.
type Handler struct {
	repo        *repository.ApplicationRepository
	students    *repository.StudentRepository
	engine      *workflow.Engine
	ssc         *workflow.SSCAggregator
	interviews  *workflow.InterviewService
	enrollments *workflow.EnrollmentService
	importSvc   *importer.Service
	indexer     *search.Indexer
	notifier    *notify.Notifier
	logger      logger.Logger
}

func NewHandler(
	repo *repository.ApplicationRepository,
	students *repository.StudentRepository,
	engine *workflow.Engine,
	ssc *workflow.SSCAggregator,
	interviews *workflow.InterviewService,
	enrollments *workflow.EnrollmentService,
	importSvc *importer.Service,
	indexer *search.Indexer,
	notifier *notify.Notifier,
	log logger.Logger,
) *Handler {
	return &Handler{
		repo:        repo,
		students:    students,
		engine:      engine,
		ssc:         ssc,
		interviews:  interviews,
		enrollments: enrollments,
		importSvc:   importSvc,
		indexer:     indexer,
		notifier:    notifier,
		logger:      log.WithFields(map[string]interface{}{"component": "http-handler"}),
	}
}

// afterTransition refreshes the search index and notifies the applicant. Both
// are best-effort: the transition is already committed and never rolls back on
// an indexing or delivery failure.
func (h *Handler) afterTransition(c *gin.Context, applicationID, newStatus, notes string) {
	if h.indexer == nil && h.notifier == nil {
		return
	}
	ctx := c.Request.Context()

	app, err := h.repo.GetByID(ctx, applicationID)
	if err != nil {
		h.logger.WithError(err).Warn("post-transition reload failed", map[string]interface{}{
			"applicationId": applicationID,
		})
		return
	}

	if h.indexer != nil {
		doc := &search.ApplicationDocument{
			ID:              app.ID,
			ApplicationNo:   app.ApplicationNo,
			SchoolID:        app.SchoolID,
			Status:          app.Status,
			RequestedAmount: app.RequestedAmount,
			ApprovedAmount:  app.ApprovedAmount,
			UpdatedAt:       app.UpdatedAt,
		}
		if err := h.indexer.IndexApplication(ctx, doc); err != nil {
			h.logger.WithError(err).Warn("search index update failed", map[string]interface{}{
				"applicationId": applicationID,
			})
		}
	}

	if h.notifier != nil {
		email, phone, err := h.repo.StudentContact(ctx, applicationID)
		if err != nil {
			h.logger.WithError(err).Warn("student contact lookup failed", map[string]interface{}{
				"applicationId": applicationID,
			})
			return
		}
		rcpt := &notify.Recipient{Email: email, Phone: phone, ApplicationNo: app.ApplicationNo}
		if err := h.notifier.NotifyStatusChange(ctx, rcpt, newStatus, notes); err != nil {
			h.logger.WithError(err).Warn("status notification failed", map[string]interface{}{
				"applicationId": applicationID,
				"status":        newStatus,
			})
		}
	}
}

func (h *Handler) actor(c *gin.Context) (string, bool) {
	actor := c.GetHeader("X-Actor-Id")
	if actor == "" {
		h.badRequest(c, "X-Actor-Id header is required")
		return "", false
	}
	return actor, true
}

func (h *Handler) badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, apperrors.NewValidationError(details))
}

// queryInt reads a non-negative integer query parameter, falling back to def
// when absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// writeError maps service sentinel errors onto HTTP statuses: state conflicts
// are 409, bad input is 400, missing records are 404, everything else 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := apperrors.ErrCodeQueryExecutionFailed

	switch {
	case errors.Is(err, workflow.ErrIllegalTransition):
		status, code = http.StatusConflict, apperrors.ErrCodeIllegalTransition
	case errors.Is(err, workflow.ErrInvalidState):
		status, code = http.StatusConflict, apperrors.ErrCodeInvalidState
	case errors.Is(err, workflow.ErrDuplicateReview):
		status, code = http.StatusConflict, apperrors.ErrCodeDuplicateReview
	case errors.Is(err, workflow.ErrConcurrentUpdate):
		status, code = http.StatusConflict, apperrors.ErrCodeConcurrentUpdate
	case errors.Is(err, workflow.ErrInvalidStage):
		status, code = http.StatusBadRequest, apperrors.ErrCodeInvalidStage
	case errors.Is(err, workflow.ErrRoleNotAllowed):
		status, code = http.StatusBadRequest, apperrors.ErrCodeRoleNotAllowed
	case errors.Is(err, workflow.ErrInvalidReview), errors.Is(err, workflow.ErrInvalidResult):
		status, code = http.StatusBadRequest, apperrors.ErrCodeValidationFailed
	case errors.Is(err, importer.ErrInvalidFileFormat):
		status, code = http.StatusBadRequest, apperrors.ErrCodeImportParseFailed
	case errors.Is(err, workflow.ErrApplicationNotFound),
		errors.Is(err, workflow.ErrInterviewNotFound),
		errors.Is(err, workflow.ErrVerificationNotFound),
		errors.Is(err, repository.ErrNotFound):
		status, code = http.StatusNotFound, apperrors.ErrCodeApplicationNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed", map[string]interface{}{
			"category": apperrors.GetErrorCategory(code),
		})
	}

	c.JSON(status, apperrors.New(code, err.Error()))
}

type createApplicationRequest struct {
	StudentID       string  `json:"studentId" binding:"required"`
	CategoryID      string  `json:"categoryId" binding:"required"`
	SubcategoryID   string  `json:"subcategoryId"`
	SchoolID        int64   `json:"schoolId"`
	RequestedAmount float64 `json:"requestedAmount"`
	Notes           string  `json:"notes"`
}

func (h *Handler) CreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	app, err := h.repo.Create(c.Request.Context(), &repository.CreateApplicationInput{
		StudentID:       req.StudentID,
		CategoryID:      req.CategoryID,
		SubcategoryID:   req.SubcategoryID,
		SchoolID:        req.SchoolID,
		RequestedAmount: req.RequestedAmount,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) GetHistory(c *gin.Context) {
	entries, err := h.repo.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicationId": c.Param("id"), "history": entries})
}

func (h *Handler) ListApplications(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		h.badRequest(c, "status query parameter is required")
		return
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	apps, err := h.repo.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "applications": apps})
}

type transitionRequest struct {
	Target string `json:"target" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *Handler) Transition(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	result, err := h.engine.AttemptTransition(c.Request.Context(), c.Param("id"),
		workflow.Status(req.Target), actor, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.afterTransition(c, c.Param("id"), req.Target, req.Notes)

	c.JSON(http.StatusOK, result)
}

type stageReviewRequest struct {
	Stage      string                 `json:"stage" binding:"required"`
	Status     string                 `json:"status" binding:"required"`
	Notes      string                 `json:"notes"`
	ReviewData map[string]interface{} `json:"reviewData"`
}

func (h *Handler) RecordStageReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	role := c.GetHeader("X-Actor-Role")
	if role == "" {
		h.badRequest(c, "X-Actor-Role header is required")
		return
	}

	var req stageReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	outcome, err := h.ssc.RecordStageReview(c.Request.Context(), &workflow.ReviewInput{
		ApplicationID: c.Param("id"),
		Stage:         req.Stage,
		ReviewerID:    actor,
		ReviewerRole:  role,
		Status:        req.Status,
		Notes:         req.Notes,
		ReviewData:    req.ReviewData,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) GetStageReviews(c *gin.Context) {
	reviews, err := h.repo.StageReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applicationId": c.Param("id"), "reviews": reviews})
}

type scheduleInterviewRequest struct {
	ScheduledAt   time.Time `json:"scheduledAt" binding:"required"`
	Location      string    `json:"location"`
	MeetingLink   string    `json:"meetingLink"`
	InterviewerID string    `json:"interviewerId" binding:"required"`
}

func (h *Handler) ScheduleInterview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req scheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	interview, err := h.interviews.Schedule(c.Request.Context(), c.Param("id"),
		req.ScheduledAt, req.Location, req.MeetingLink, req.InterviewerID, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.afterTransition(c, c.Param("id"), string(workflow.StatusInterviewScheduled),
		"interview scheduled for "+req.ScheduledAt.UTC().Format(time.RFC3339))

	c.JSON(http.StatusCreated, interview)
}

type interviewActionRequest struct {
	Result      string    `json:"result"`
	Notes       string    `json:"notes"`
	Reason      string    `json:"reason"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (h *Handler) CompleteInterview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req interviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.interviews.Complete(c.Request.Context(), c.Param("interviewId"), req.Result, req.Notes, actor); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviewId": c.Param("interviewId"), "status": models.InterviewStatusCompleted})
}

func (h *Handler) CancelInterview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req interviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.interviews.Cancel(c.Request.Context(), c.Param("interviewId"), req.Reason, actor); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviewId": c.Param("interviewId"), "status": models.InterviewStatusCancelled})
}

func (h *Handler) RescheduleInterview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req interviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	if req.ScheduledAt.IsZero() {
		h.badRequest(c, "scheduledAt is required")
		return
	}

	if err := h.interviews.Reschedule(c.Request.Context(), c.Param("interviewId"), req.ScheduledAt, req.Reason, actor); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviewId": c.Param("interviewId"), "status": models.InterviewStatusRescheduled})
}

func (h *Handler) MarkInterviewNoShow(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req interviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.interviews.MarkNoShow(c.Request.Context(), c.Param("interviewId"), req.Notes, actor); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviewId": c.Param("interviewId"), "status": models.InterviewStatusNoShow})
}

func (h *Handler) CreateVerification(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	verification, err := h.enrollments.Create(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, verification)
}

type verificationActionRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ResolveVerification(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req verificationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	verificationID := c.Param("verificationId")
	var err error
	switch c.Param("action") {
	case "verify":
		err = h.enrollments.Verify(c.Request.Context(), verificationID, actor, req.Notes)
	case "reject":
		err = h.enrollments.Reject(c.Request.Context(), verificationID, actor, req.Notes)
	case "needs-review":
		err = h.enrollments.FlagNeedsReview(c.Request.Context(), verificationID, actor, req.Notes)
	default:
		h.badRequest(c, "unknown verification action")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verificationId": verificationID})
}

// ImportEnrollments accepts a multipart CSV or XLSX upload from a partner
// school and runs the full import pipeline.
func (h *Handler) ImportEnrollments(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "file upload is required")
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")

	f, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.writeError(c, err)
		return
	}

	report, err := h.importSvc.Import(c.Request.Context(), data, format)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.students.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) GetStudentEnrollments(c *gin.Context) {
	enrollments, err := h.students.Enrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"studentId": c.Param("id"), "enrollments": enrollments})
}

func (h *Handler) GetImportReviewQueue(c *gin.Context) {
	items, err := h.students.ImportReviewQueue(c.Request.Context(), 100)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) SearchApplications(c *gin.Context) {
	docs, err := h.indexer.Search(c.Request.Context(), c.Query("q"), c.Query("status"), 20)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": docs})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
