package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/quiz-engine/internal/services"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries the shared handler plumbing.
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of request handling with optional key/values.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.logger.InfoContext(c.Request.Context(), msg, args...)
}

// LogError logs an unexpected error during request handling.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.logger.ErrorContext(c.Request.Context(), msg,
		"error", err,
		"path", c.Request.URL.Path)
}

// parseIDParam parses a uint path parameter, writing the 400 response itself.
// Returns 0 when parsing failed.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps service errors onto the HTTP taxonomy.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: map[string]interface{}{
				"field":   validationError.Field,
				"message": validationError.Message,
			},
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule": businessRuleError.Rule,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"action": permissionError.Action,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Not enrolled in this course",
		})
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt limit exceeded",
		})
	case errors.Is(err, services.ErrAttemptConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "An attempt is already in progress",
		})
	case errors.Is(err, services.ErrResponseConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Question already answered in this attempt",
		})
	case errors.Is(err, services.ErrAttemptNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt is not in progress",
		})
	case errors.Is(err, services.ErrAttemptExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Attempt time limit exceeded",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
