package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/validator"
	"github.com/campusworks/quiz-engine/pkg/monitoring"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	recorder *responseRecorder
	grader   *gradingService
	bank     *questionBank
	enforcer TimeLimitEnforcer
}

func NewAttemptService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
		recorder:  NewResponseRecorder(repo, logger),
		grader:    NewGradingService(repo, logger),
		bank:      NewQuestionBank(),
	}
}

// Start opens a new attempt after checking, inside one transaction, that the
// quiz is startable for this learner. The partial unique index on
// (quiz_id, learner_id) where status is in_progress is the source of truth
// for the single-active-attempt rule; the pre-checks just give better
// errors on the common paths.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, learnerID string) (*AttemptResponse, error) {
	if errs := s.validator.Validate(req); errs != nil {
		return nil, NewValidationError("quiz_id", errs.Error())
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}
	if !quiz.IsActive {
		return nil, ErrQuizNotFound
	}

	enrolled, err := s.repo.Directory().IsEnrolled(ctx, learnerID, quiz.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	attempt := &models.Attempt{
		QuizID:    quiz.ID,
		LearnerID: learnerID,
		Status:    models.AttemptInProgress,
		StartedAt: time.Now(),
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.Attempt().CountByLearner(ctx, tx, quiz.ID, learnerID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if count >= int64(quiz.AttemptLimit) {
			return ErrAttemptLimitExceeded
		}
		attempt.AttemptNumber = int(count) + 1

		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAttemptConflict
			}
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"learner_id", learnerID,
		"attempt_number", attempt.AttemptNumber)

	s.publishAttemptEvent(ctx, events.AttemptStarted, attempt)

	questions, err := s.repo.Quiz().GetQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}

	attempt.Quiz = quiz
	response := s.buildAttemptResponse(attempt, quiz)
	response.Questions = s.bank.Present(quiz, questions)
	return response, nil
}

// SubmitResponse records one answer. An attempt found past its deadline is
// expired on the spot instead of accepting the answer.
func (s *attemptService) SubmitResponse(ctx context.Context, attemptID uint, req *SubmitResponseRequest, learnerID string) (*ResponseResult, error) {
	if errs := s.validator.Validate(req); errs != nil {
		return nil, NewValidationError("question_id", errs.Error())
	}

	attempt, quiz, err := s.getOwnedAttempt(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.AttemptInProgress && s.enforcer.OverLimit(quiz, attempt, time.Now()) {
		s.expireLate(ctx, attempt, quiz)
		return nil, ErrAttemptExpired
	}

	return s.recorder.Record(ctx, attempt, req)
}

// Complete grades the attempt and transitions it to completed. The deadline
// is re-checked synchronously: an overdue attempt is expired without
// grading, whether or not the sweeper has reached it yet.
func (s *attemptService) Complete(ctx context.Context, attemptID uint, learnerID string) (*AttemptResponse, error) {
	attempt, quiz, err := s.getOwnedAttempt(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	now := time.Now()
	if s.enforcer.OverLimit(quiz, attempt, now) {
		s.expireLate(ctx, attempt, quiz)
		return nil, ErrAttemptExpired
	}

	questions, err := s.repo.Quiz().GetQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}

	var result *AttemptScore
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.grader.ScoreAttempt(ctx, tx, attempt, quiz, questions)
		if err != nil {
			return err
		}

		rows, err := s.repo.Attempt().TransitionStatus(ctx, tx, attempt.ID, models.AttemptCompleted, map[string]interface{}{
			"score":        result.Score,
			"percentage":   result.Percentage,
			"passed":       result.Passed,
			"submitted_at": now,
			"time_spent":   int(now.Sub(attempt.StartedAt).Seconds()),
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			// The sweeper or a concurrent request won the transition.
			return ErrAttemptNotActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attempt.Status = models.AttemptCompleted
	attempt.Score = &result.Score
	attempt.Percentage = &result.Percentage
	attempt.Passed = &result.Passed
	attempt.SubmittedAt = &now
	attempt.TimeSpent = int(now.Sub(attempt.StartedAt).Seconds())

	monitoring.AttemptTransitions.WithLabelValues(string(models.AttemptCompleted)).Inc()
	s.logger.InfoContext(ctx, "Attempt completed",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"percentage", result.Percentage,
		"passed", result.Passed)

	s.publishAttemptEvent(ctx, events.AttemptCompleted, attempt)

	return s.buildAttemptResponse(attempt, quiz), nil
}

// Abandon transitions an in-progress attempt to abandoned without grading.
func (s *attemptService) Abandon(ctx context.Context, attemptID uint, learnerID string) error {
	attempt, quiz, err := s.getOwnedAttempt(ctx, attemptID, learnerID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	now := time.Now()
	rows, err := s.repo.Attempt().TransitionStatus(ctx, nil, attempt.ID, models.AttemptAbandoned, map[string]interface{}{
		"submitted_at": now,
		"time_spent":   int(now.Sub(attempt.StartedAt).Seconds()),
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAttemptNotActive
	}

	attempt.Status = models.AttemptAbandoned
	monitoring.AttemptTransitions.WithLabelValues(string(models.AttemptAbandoned)).Inc()
	s.logger.InfoContext(ctx, "Attempt abandoned",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID)

	s.publishAttemptEvent(ctx, events.AttemptAbandoned, attempt)
	return nil
}

// Get returns an attempt for its owner or for staff, optionally with
// responses. Correct answers stay hidden unless the quiz reveals them and
// the attempt is finished.
func (s *attemptService) Get(ctx context.Context, attemptID uint, userID string, includeResponses bool) (*AttemptResponse, error) {
	var attempt *models.Attempt
	var err error
	if includeResponses {
		attempt, err = s.repo.Attempt().GetByIDWithResponses(ctx, attemptID)
	} else {
		attempt, err = s.repo.Attempt().GetByID(ctx, attemptID)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.LearnerID != userID {
		user, err := s.repo.Directory().GetByID(ctx, userID)
		if err != nil || !user.IsStaff() {
			return nil, NewPermissionError(userID, "view this attempt")
		}
	}

	quiz := attempt.Quiz
	if quiz == nil {
		quiz, err = s.repo.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			return nil, fmt.Errorf("failed to load quiz: %w", err)
		}
	}

	if includeResponses {
		sanitizeResponses(attempt, quiz)
	}

	return s.buildAttemptResponse(attempt, quiz), nil
}

// GetBest returns the learner's highest-scoring completed attempt.
func (s *attemptService) GetBest(ctx context.Context, quizID uint, learnerID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetBestCompleted(ctx, quizID, learnerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load best attempt: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}

	return s.buildAttemptResponse(attempt, quiz), nil
}

// List returns attempts visible to the caller. Learners only ever see their
// own attempts regardless of the requested filters.
func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	user, err := s.repo.Directory().GetByID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve caller: %w", err)
	}
	if !user.IsStaff() {
		filters.LearnerID = &userID
	}

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, s.buildAttemptResponse(attempt, attempt.Quiz))
	}
	return responses, total, nil
}

// GetQuizStats aggregates attempt outcomes for a quiz. Staff only.
func (s *attemptService) GetQuizStats(ctx context.Context, quizID uint, userID string) (*repositories.QuizAttemptStats, error) {
	user, err := s.repo.Directory().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller: %w", err)
	}
	if !user.IsStaff() {
		return nil, NewPermissionError(userID, "view quiz statistics")
	}

	if _, err := s.repo.Quiz().GetByID(ctx, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}

	return s.repo.Attempt().GetQuizStats(ctx, quizID)
}
