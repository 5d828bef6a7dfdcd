package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	admission services.AdmissionService
	scoring   services.ScoringService
	validator *utils.Validator
}

type SubmitAttemptRequest struct {
	Answers map[uint]string `json:"answers"`
}

func NewAttemptHandler(
	admission services.AdmissionService,
	scoring services.ScoringService,
	validator *utils.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler: NewBaseHandler(logger),
		admission:   admission,
		scoring:     scoring,
		validator:   validator,
	}
}

// StartAttempt admits the caller into a timed exam
// @Summary Start exam attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting exam attempt", "exam_id", examID)

	attempt, err := h.admission.StartAttempt(c.Request.Context(), examID, userID, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt started",
		Data: gin.H{
			"attempt_id": attempt.ID,
			"start_time": attempt.StartTime,
		},
	})
}

// SubmitAttempt grades and finalizes the caller's in-progress attempt
// @Summary Submit exam attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param submission body SubmitAttemptRequest true "Submitted answers"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	examID := parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting exam attempt",
		"exam_id", examID,
		"answers_count", len(req.Answers))

	// Score is computed and stored but deliberately not echoed; clients
	// fetch results through the attempt read path.
	_, err := h.scoring.Submit(c.Request.Context(), &services.SubmitRequest{
		ExamID:  examID,
		UserID:  userID,
		Answers: req.Answers,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt submitted",
	})
}

// GetCurrentAttempt returns the caller's in-progress attempt for an exam
// @Summary Get current attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/attempts/current [get]
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	examID := parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	attempt, err := h.admission.GetCurrentAttempt(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Current attempt",
		Data:    attempt,
	})
}

// GetAttempt returns one of the caller's attempts with its answer records
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	attempt, err := h.scoring.GetAttempt(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt",
		Data:    attempt,
	})
}

// ListAttempts returns the caller's attempt history
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{
		Limit:  20,
		Offset: 0,
	}
	if status := c.Query("status"); status != "" {
		filters.Status = models.AttemptStatus(status)
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 100 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		filters.Offset = offset
	}

	attempts, total, err := h.scoring.ListAttempts(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempts",
		Data: gin.H{
			"attempts": attempts,
			"total":    total,
		},
	})
}

// handleServiceError maps the service error taxonomy to HTTP codes. The
// duplicate-attempt conflict and window violations are client errors the
// learner can act on; storage failures stay generic and retry-safe.
func (h *AttemptHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrExamNotFound), errors.Is(err, services.ErrExamNotPublished):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exam not found",
		})
	case errors.Is(err, services.ErrExamNotStarted):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Exam has not started yet",
		})
	case errors.Is(err, services.ErrExamEnded):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Exam has already ended",
		})
	case errors.Is(err, services.ErrAttemptAlreadyInProgress):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Attempt already in progress",
		})
	case errors.Is(err, services.ErrNoAttemptInProgress):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No attempt in progress",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
