package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

// responseRecorder persists learner answers while an attempt is in
// progress. Answers are stored raw and ungraded; grading only happens at
// completion.
type responseRecorder struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewResponseRecorder(repo repositories.Repository, logger *slog.Logger) *responseRecorder {
	return &responseRecorder{repo: repo, logger: logger}
}

// Record validates the answer shape against the question type and stores it.
// Responses are create-once: the unique index on (attempt_id, question_id)
// backs the pre-check under concurrency.
func (r *responseRecorder) Record(ctx context.Context, attempt *models.Attempt, req *SubmitResponseRequest) (*ResponseResult, error) {
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	question, err := r.repo.Quiz().GetQuestion(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question.QuizID != attempt.QuizID {
		return nil, ErrQuestionNotFound
	}

	if err := validateAnswerShape(question, req); err != nil {
		return nil, err
	}

	exists, err := r.repo.Response().HasResponse(ctx, attempt.ID, question.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing response: %w", err)
	}
	if exists {
		return nil, ErrResponseConflict
	}

	response := &models.Response{
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		TextAnswer: req.TextAnswer,
		TimeSpent:  req.TimeSpent,
	}
	if len(req.SelectedOptionIDs) > 0 {
		encoded, err := json.Marshal(req.SelectedOptionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode selected options: %w", err)
		}
		response.SelectedOptionIDs = encoded
	}

	if err := r.repo.Response().Create(ctx, nil, response); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrResponseConflict
		}
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	r.logger.DebugContext(ctx, "Response recorded",
		"attempt_id", attempt.ID,
		"question_id", question.ID)

	return &ResponseResult{
		ResponseID: response.ID,
		QuestionID: question.ID,
		Recorded:   true,
	}, nil
}

// validateAnswerShape checks that the payload matches the question type
// before anything is stored.
func validateAnswerShape(question *models.Question, req *SubmitResponseRequest) error {
	switch {
	case question.Type.IsChoice():
		if len(req.SelectedOptionIDs) == 0 {
			return NewValidationError("selected_option_ids", "at least one option must be selected")
		}
		if req.TextAnswer != nil {
			return NewValidationError("text_answer", "choice questions do not take a text answer")
		}
		if question.Type != models.QuestionMultiChoice && len(req.SelectedOptionIDs) != 1 {
			return NewValidationError("selected_option_ids", "exactly one option must be selected")
		}

		valid := make(map[uint]bool, len(question.Options))
		for _, o := range question.Options {
			valid[o.ID] = true
		}
		seen := make(map[uint]bool, len(req.SelectedOptionIDs))
		for _, id := range req.SelectedOptionIDs {
			if !valid[id] {
				return NewValidationError("selected_option_ids", "option does not belong to the question")
			}
			if seen[id] {
				return NewValidationError("selected_option_ids", "duplicate option selection")
			}
			seen[id] = true
		}

	case question.Type == models.QuestionFreeText:
		if req.TextAnswer == nil || *req.TextAnswer == "" {
			return NewValidationError("text_answer", "a text answer is required")
		}
		if len(req.SelectedOptionIDs) > 0 {
			return NewValidationError("selected_option_ids", "free text questions do not take option selections")
		}

	default:
		return NewValidationError("type", "unsupported question type")
	}

	return nil
}
