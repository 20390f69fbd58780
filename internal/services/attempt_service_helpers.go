package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/pkg/monitoring"
)

// getOwnedAttempt loads an attempt and its quiz, refusing callers other than
// the owning learner.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, learnerID string) (*models.Attempt, *models.Quiz, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.LearnerID != learnerID {
		return nil, nil, NewPermissionError(learnerID, "act on this attempt")
	}

	quiz := attempt.Quiz
	if quiz == nil {
		quiz, err = s.repo.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load quiz: %w", err)
		}
	}

	return attempt, quiz, nil
}

// expireLate transitions an overdue attempt to expired. The status guard
// makes this a no-op when the sweeper got there first.
func (s *attemptService) expireLate(ctx context.Context, attempt *models.Attempt, quiz *models.Quiz) {
	updates := map[string]interface{}{}
	if deadline := quiz.Deadline(attempt.StartedAt); deadline != nil {
		updates["submitted_at"] = *deadline
		updates["time_spent"] = int(deadline.Sub(attempt.StartedAt).Seconds())
	}

	rows, err := s.repo.Attempt().TransitionStatus(ctx, nil, attempt.ID, models.AttemptExpired, updates)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to expire overdue attempt",
			"attempt_id", attempt.ID,
			"error", err)
		return
	}
	if rows == 0 {
		return
	}

	attempt.Status = models.AttemptExpired
	monitoring.AttemptTransitions.WithLabelValues(string(models.AttemptExpired)).Inc()
	s.logger.InfoContext(ctx, "Attempt expired on access",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID)

	s.publishAttemptEvent(ctx, events.AttemptExpired, attempt)
}

// buildAttemptResponse assembles the API view, including the live countdown
// for in-progress attempts of timed quizzes.
func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, quiz *models.Quiz) *AttemptResponse {
	response := &AttemptResponse{Attempt: attempt}
	if quiz != nil && attempt.Status == models.AttemptInProgress {
		response.RemainingSeconds = s.enforcer.RemainingSeconds(quiz, attempt, time.Now())
	}
	return response
}

// sanitizeResponses strips correctness from loaded responses unless the quiz
// reveals answers and the attempt is finished.
func sanitizeResponses(attempt *models.Attempt, quiz *models.Quiz) {
	reveal := quiz != nil && quiz.ShowCorrectAnswers && attempt.Status.IsTerminal()
	for i := range attempt.Responses {
		if !reveal {
			attempt.Responses[i].IsCorrect = nil
			attempt.Responses[i].PointsEarned = nil
		}
		if q := attempt.Responses[i].Question; q != nil && !reveal {
			for j := range q.Options {
				q.Options[j].IsCorrect = false
			}
		}
	}
}

// publishAttemptEvent emits a lifecycle event; failures are logged and never
// fail the operation.
func (s *attemptService) publishAttemptEvent(ctx context.Context, eventType string, attempt *models.Attempt) {
	event := events.NewEvent(eventType, map[string]interface{}{
		"attempt_id":     attempt.ID,
		"quiz_id":        attempt.QuizID,
		"learner_id":     attempt.LearnerID,
		"attempt_number": attempt.AttemptNumber,
		"status":         attempt.Status,
	})
	if attempt.Percentage != nil {
		event.Data["percentage"] = *attempt.Percentage
	}
	if attempt.Passed != nil {
		event.Data["passed"] = *attempt.Passed
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish attempt event",
			"event_type", eventType,
			"attempt_id", attempt.ID,
			"error", err)
	}
}
