package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/models"
)

// QuizRepository owns quiz configuration records, questions and options.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error)
	GetByLesson(ctx context.Context, lessonID uint) (*models.Quiz, error)
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error

	GetQuestions(ctx context.Context, quizID uint) ([]*models.Question, error)
	GetQuestion(ctx context.Context, questionID uint) (*models.Question, error)
	UpdateQuestion(ctx context.Context, tx *gorm.DB, question *models.Question) error
}

// AttemptRepository owns attempt rows. Terminal transitions use
// TransitionStatus which only matches in_progress rows; callers decide what a
// zero-row update means.
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithResponses(ctx context.Context, id uint) (*models.Attempt, error)
	GetActive(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error)
	CountByLearner(ctx context.Context, tx *gorm.DB, quizID uint, learnerID string) (int64, error)
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetBestCompleted(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error)

	// TransitionStatus performs the guarded in_progress -> terminal update,
	// applying extra column updates atomically. Returns rows affected.
	TransitionStatus(ctx context.Context, tx *gorm.DB, attemptID uint, to models.AttemptStatus, updates map[string]interface{}) (int64, error)

	// UpdateCompletedScore rewrites the aggregate score of a completed
	// attempt. The status guard keeps regrades off rows that left the
	// completed state. Returns rows affected.
	UpdateCompletedScore(ctx context.Context, tx *gorm.DB, attemptID uint, score, percentage int, passed bool) (int64, error)

	// GetExpiredInProgress returns in_progress attempts whose quiz time limit
	// elapsed at or before now.
	GetExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error)

	GetQuizStats(ctx context.Context, quizID uint) (*QuizAttemptStats, error)
}

// ResponseRepository owns per-question responses.
type ResponseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, response *models.Response) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Response, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.Response, error)
	HasResponse(ctx context.Context, attemptID, questionID uint) (bool, error)
	UpdateGrading(ctx context.Context, tx *gorm.DB, responseID uint, isCorrect bool, pointsEarned int) error
}

// DirectoryRepository resolves principals and enrollment against the
// identity provider.
type DirectoryRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	IsEnrolled(ctx context.Context, learnerID string, courseID uint) (bool, error)
}

type QuizFilters struct {
	CourseID  *uint
	LessonID  *uint
	IsActive  *bool
	CreatedBy *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type AttemptFilters struct {
	QuizID    *uint
	LearnerID *string
	Status    *models.AttemptStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type QuizAttemptStats struct {
	QuizID            uint                           `json:"quiz_id"`
	TotalAttempts     int64                          `json:"total_attempts"`
	CompletedAttempts int64                          `json:"completed_attempts"`
	PassedAttempts    int64                          `json:"passed_attempts"`
	AveragePercentage float64                        `json:"average_percentage"`
	StatusBreakdown   map[models.AttemptStatus]int64 `json:"status_breakdown"`
}
