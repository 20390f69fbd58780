package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/quiz-engine/internal/config"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/services"
	"github.com/campusworks/quiz-engine/pkg/monitoring"
)

// HandlerManager owns the HTTP handlers and route registration.
type HandlerManager struct {
	attemptHandler *AttemptHandler
	quizHandler    *QuizHandler
	authMiddleware *CasdoorAuthMiddleware
	serviceManager services.ServiceManager
	logger         *slog.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	casdoorCfg config.CasdoorSettings,
	directory repositories.DirectoryRepository,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), serviceManager.Sweep(), logger),
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger),
		authMiddleware: NewCasdoorAuthMiddleware(casdoorCfg, directory),
		serviceManager: serviceManager,
		logger:         logger,
	}
}

// SetupRoutes registers all routes on the router.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin)

		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", staffOnly, hm.quizHandler.CreateQuiz)
			quizzes.GET("/:id", staffOnly, hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/questions", hm.quizHandler.GetQuizQuestions)
			quizzes.POST("/:id/activate", staffOnly, hm.quizHandler.ActivateQuiz)
			quizzes.POST("/:id/deactivate", staffOnly, hm.quizHandler.DeactivateQuiz)
			quizzes.POST("/:id/regrade", staffOnly, hm.quizHandler.RegradeQuiz)
			quizzes.GET("/:id/attempts/best", hm.attemptHandler.GetBestAttempt)
			quizzes.GET("/:id/stats", staffOnly, hm.attemptHandler.GetQuizStats)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/responses", hm.attemptHandler.SubmitResponse)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)
			attempts.POST("/:id/abandon", hm.attemptHandler.AbandonAttempt)
		}

		admin := v1.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.POST("/attempts/sweep-expired", hm.attemptHandler.SweepExpiredAttempts)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "quiz-engine",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
