package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/services"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	sweepService   services.SweepService
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	sweepService services.SweepService,
	logger *slog.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		sweepService:   sweepService,
	}
}

// StartAttempt starts a new quiz attempt
// @Summary Start quiz attempt
// @Description Starts a new attempt for a quiz
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting quiz attempt")

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitResponse records a single answer on an attempt
// @Summary Submit response
// @Description Records one answer for a question of an in-progress attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param response body services.SubmitResponseRequest true "Response data"
// @Success 201 {object} services.ResponseResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/{id}/responses [post]
func (h *AttemptHandler) SubmitResponse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	result, err := h.attemptService.SubmitResponse(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CompleteAttempt grades and finishes an attempt
// @Summary Complete attempt
// @Description Grades the attempt and transitions it to completed
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/{id}/complete [post]
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Completing quiz attempt", "attempt_id", id)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	attempt, err := h.attemptService.Complete(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// AbandonAttempt gives up on an attempt without grading
// @Summary Abandon attempt
// @Description Transitions an in-progress attempt to abandoned
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/abandon [post]
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Abandoning quiz attempt", "attempt_id", id)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAttempt returns one attempt
// @Summary Get attempt
// @Description Returns an attempt, optionally with its responses
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param include_responses query bool false "Include responses"
// @Success 200 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	includeResponses, _ := strconv.ParseBool(c.DefaultQuery("include_responses", "false"))

	attempt, err := h.attemptService.Get(c.Request.Context(), id, userID, includeResponses)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListAttempts lists attempts visible to the caller
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Param quiz_id query uint false "Filter by quiz"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := parseAttemptFilters(c)

	attempts, total, err := h.attemptService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
	})
}

// GetBestAttempt returns the learner's best completed attempt for a quiz
// @Summary Get best attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/attempts/best [get]
func (h *AttemptHandler) GetBestAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	attempt, err := h.attemptService.GetBest(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetQuizStats returns attempt statistics for a quiz
// @Summary Get quiz statistics
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} repositories.QuizAttemptStats
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/stats [get]
func (h *AttemptHandler) GetQuizStats(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	stats, err := h.attemptService.GetQuizStats(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SweepExpiredAttempts triggers an expiry sweep on demand
// @Summary Sweep expired attempts
// @Description Expires overdue in-progress attempts immediately
// @Tags admin
// @Produce json
// @Success 200 {object} services.SweepResult
// @Router /admin/attempts/sweep-expired [post]
func (h *AttemptHandler) SweepExpiredAttempts(c *gin.Context) {
	h.LogRequest(c, "Manual expiry sweep requested")

	result, err := h.sweepService.SweepExpired(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if raw := c.Query("quiz_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			quizID := uint(id)
			filters.QuizID = &quizID
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttemptStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filters.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filters.Offset = offset
		}
	}

	return filters
}
