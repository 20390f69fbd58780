package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	grader    *gradingService
	bank      *questionBank
}

func NewQuizService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		grader:    NewGradingService(repo, logger),
		bank:      NewQuestionBank(),
	}
}

// Create persists a quiz with its questions and options after structural
// validation. Instructor or admin only.
func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error) {
	if err := s.requireStaff(ctx, creatorID, "create quizzes"); err != nil {
		return nil, err
	}

	if errs := s.validator.Validate(req); errs != nil {
		return nil, NewValidationError("quiz", errs.Error())
	}

	for i, q := range req.Questions {
		specs := make([]validator.OptionSpec, 0, len(q.Options))
		for _, o := range q.Options {
			specs = append(specs, validator.OptionSpec{Text: o.Text, IsCorrect: o.IsCorrect})
		}
		if errs := validator.ValidateQuestionOptions(q.Type, specs); errs != nil {
			return nil, NewValidationError(fmt.Sprintf("questions[%d]", i), errs.Error())
		}
	}

	quiz := &models.Quiz{
		LessonID:           req.LessonID,
		CourseID:           req.CourseID,
		Title:              req.Title,
		Description:        req.Description,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		AttemptLimit:       req.AttemptLimit,
		PassingScore:       *req.PassingScore,
		ShuffleQuestions:   req.ShuffleQuestions,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
		IsActive:           true,
		CreatedBy:          creatorID,
	}

	for i, q := range req.Questions {
		required := true
		if q.Required != nil {
			required = *q.Required
		}
		question := models.Question{
			Type:     q.Type,
			Text:     q.Text,
			Points:   q.Points,
			Position: i + 1,
			Required: required,
		}
		for j, o := range q.Options {
			question.Options = append(question.Options, models.Option{
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
				Position:  j + 1,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.InfoContext(ctx, "Quiz created",
		"quiz_id", quiz.ID,
		"lesson_id", quiz.LessonID,
		"question_count", len(quiz.Questions),
		"created_by", creatorID)

	return quiz, nil
}

// Get returns the full quiz including correct answers. Staff only; learners
// get the stripped presentation instead.
func (s *quizService) Get(ctx context.Context, quizID uint, userID string) (*models.Quiz, error) {
	if err := s.requireStaff(ctx, userID, "view quiz configuration"); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}
	return quiz, nil
}

// GetPresentation returns the learner view of the quiz questions: ordered or
// freshly shuffled, correctness stripped.
func (s *quizService) GetPresentation(ctx context.Context, quizID uint, learnerID string) ([]QuestionView, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
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

	questions, err := s.repo.Quiz().GetQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}

	return s.bank.Present(quiz, questions), nil
}

// SetActive toggles whether learners can start new attempts.
func (s *quizService) SetActive(ctx context.Context, quizID uint, active bool, userID string) error {
	if err := s.requireStaff(ctx, userID, "change quiz availability"); err != nil {
		return err
	}

	if err := s.repo.Quiz().SetActive(ctx, quizID, active); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to update quiz: %w", err)
	}

	s.logger.InfoContext(ctx, "Quiz availability changed",
		"quiz_id", quizID,
		"active", active,
		"changed_by", userID)
	return nil
}

// Regrade re-scores every completed attempt of a quiz, for use after a
// question bank correction. Returns the number of attempts re-scored.
func (s *quizService) Regrade(ctx context.Context, quizID uint, userID string) (int, error) {
	if err := s.requireStaff(ctx, userID, "regrade attempts"); err != nil {
		return 0, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrQuizNotFound
		}
		return 0, fmt.Errorf("failed to load quiz: %w", err)
	}

	questions, err := s.repo.Quiz().GetQuestions(ctx, quizID)
	if err != nil {
		return 0, fmt.Errorf("failed to load quiz questions: %w", err)
	}

	completed := models.AttemptCompleted
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		QuizID: &quizID,
		Status: &completed,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list completed attempts: %w", err)
	}

	regraded := 0
	for _, attempt := range attempts {
		if _, err := s.grader.RegradeCompleted(ctx, attempt, quiz, questions); err != nil {
			s.logger.ErrorContext(ctx, "Failed to regrade attempt",
				"attempt_id", attempt.ID,
				"quiz_id", quizID,
				"error", err)
			continue
		}
		regraded++
	}

	s.logger.InfoContext(ctx, "Quiz regraded",
		"quiz_id", quizID,
		"attempts_regraded", regraded,
		"requested_by", userID)

	if err := s.publisher.Publish(ctx, events.NewEvent(events.QuizRegraded, map[string]interface{}{
		"quiz_id":           quizID,
		"attempts_regraded": regraded,
	})); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish regrade event",
			"quiz_id", quizID,
			"error", err)
	}

	return regraded, nil
}

func (s *quizService) requireStaff(ctx context.Context, userID, action string) error {
	user, err := s.repo.Directory().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve caller: %w", err)
	}
	if !user.IsStaff() {
		return NewPermissionError(userID, action)
	}
	return nil
}
