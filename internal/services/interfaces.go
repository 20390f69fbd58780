package services

import (
	"context"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

// ===== REQUEST DTOS =====

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

type SubmitResponseRequest struct {
	QuestionID        uint    `json:"question_id" validate:"required"`
	SelectedOptionIDs []uint  `json:"selected_option_ids,omitempty"`
	TextAnswer        *string `json:"text_answer,omitempty"`
	TimeSpent         int     `json:"time_spent,omitempty" validate:"omitempty,min=0"`
}

type CreateQuizRequest struct {
	LessonID           uint                    `json:"lesson_id" validate:"required"`
	CourseID           uint                    `json:"course_id" validate:"required"`
	Title              string                  `json:"title" validate:"required,min=1,max=255"`
	Description        string                  `json:"description" validate:"omitempty,max=2000"`
	TimeLimitMinutes   *int                    `json:"time_limit_minutes" validate:"omitempty,time_limit_minutes"`
	AttemptLimit       int                     `json:"attempt_limit" validate:"required,attempt_limit"`
	PassingScore       *int                    `json:"passing_score" validate:"required,passing_score"`
	ShuffleQuestions   bool                    `json:"shuffle_questions"`
	ShowCorrectAnswers bool                    `json:"show_correct_answers"`
	Questions          []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Type     models.QuestionType   `json:"type" validate:"required,question_type"`
	Text     string                `json:"text" validate:"required,min=1,max=2000"`
	Points   int                   `json:"points" validate:"required,points_range"`
	Required *bool                 `json:"required"`
	Options  []CreateOptionRequest `json:"options" validate:"omitempty,dive"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" validate:"required,min=1,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// ===== RESPONSE DTOS =====

// AttemptResponse is the API view of an attempt. RemainingSeconds is only
// set for in-progress attempts of timed quizzes.
type AttemptResponse struct {
	*models.Attempt
	RemainingSeconds *int           `json:"remaining_seconds,omitempty"`
	Questions        []QuestionView `json:"questions,omitempty"`
}

// QuestionView is a question as presented to a learner: ordered or shuffled,
// with correctness stripped.
type QuestionView struct {
	ID       uint                `json:"id"`
	Type     models.QuestionType `json:"type"`
	Text     string              `json:"text"`
	Points   int                 `json:"points"`
	Position int                 `json:"position"`
	Required bool                `json:"required"`
	Options  []OptionView        `json:"options,omitempty"`
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// ResponseResult is returned after recording a response. Correctness is
// never revealed while the attempt is in progress.
type ResponseResult struct {
	ResponseID uint `json:"response_id"`
	QuestionID uint `json:"question_id"`
	Recorded   bool `json:"recorded"`
}

// SweepResult summarizes one expiry sweep pass.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, learnerID string) (*AttemptResponse, error)
	SubmitResponse(ctx context.Context, attemptID uint, req *SubmitResponseRequest, learnerID string) (*ResponseResult, error)
	Complete(ctx context.Context, attemptID uint, learnerID string) (*AttemptResponse, error)
	Abandon(ctx context.Context, attemptID uint, learnerID string) error
	Get(ctx context.Context, attemptID uint, userID string, includeResponses bool) (*AttemptResponse, error)
	GetBest(ctx context.Context, quizID uint, learnerID string) (*AttemptResponse, error)
	List(ctx context.Context, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)
	GetQuizStats(ctx context.Context, quizID uint, userID string) (*repositories.QuizAttemptStats, error)
}

type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error)
	Get(ctx context.Context, quizID uint, userID string) (*models.Quiz, error)
	GetPresentation(ctx context.Context, quizID uint, learnerID string) ([]QuestionView, error)
	SetActive(ctx context.Context, quizID uint, active bool, userID string) error
	Regrade(ctx context.Context, quizID uint, userID string) (int, error)
}

type SweepService interface {
	SweepExpired(ctx context.Context) (*SweepResult, error)
}

// ServiceManager wires the services for the handler layer.
type ServiceManager interface {
	Attempt() AttemptService
	Quiz() QuizService
	Sweep() SweepService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
