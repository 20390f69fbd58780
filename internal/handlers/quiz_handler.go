package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/quiz-engine/internal/services"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// CreateQuiz creates a new quiz with its questions
// @Summary Create quiz
// @Description Creates a quiz with nested questions and options
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	h.LogRequest(c, "Creating quiz")

	var req services.CreateQuizRequest
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

	quiz, err := h.quizService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns the full quiz configuration
// @Summary Get quiz
// @Description Returns the quiz with questions and correct answers (staff only)
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
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

	quiz, err := h.quizService.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// GetQuizQuestions returns the learner-facing question set
// @Summary Get quiz questions
// @Description Returns questions for taking the quiz, correctness stripped
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/questions [get]
func (h *QuizHandler) GetQuizQuestions(c *gin.Context) {
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

	questions, err := h.quizService.GetPresentation(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_id":   id,
		"questions": questions,
	})
}

// ActivateQuiz makes a quiz available for attempts
// @Summary Activate quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/activate [post]
func (h *QuizHandler) ActivateQuiz(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateQuiz withdraws a quiz from learners
// @Summary Deactivate quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/deactivate [post]
func (h *QuizHandler) DeactivateQuiz(c *gin.Context) {
	h.setActive(c, false)
}

func (h *QuizHandler) setActive(c *gin.Context, active bool) {
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

	if err := h.quizService.SetActive(c.Request.Context(), id, active, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegradeQuiz re-scores all completed attempts of a quiz
// @Summary Regrade quiz
// @Description Re-runs grading for every completed attempt, e.g. after an answer key fix
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/regrade [post]
func (h *QuizHandler) RegradeQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Regrading quiz", "quiz_id", id)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	regraded, err := h.quizService.Regrade(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_id":  id,
		"regraded": regraded,
	})
}
