package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/pkg/monitoring"
)

// TimeLimitEnforcer evaluates attempt deadlines. It holds no state; all
// inputs come from the quiz config and the attempt row.
type TimeLimitEnforcer struct{}

// OverLimit reports whether the attempt has exceeded its quiz time limit at
// the given instant. Untimed quizzes are never over the limit. An attempt is
// still within budget at exactly started_at + limit.
func (TimeLimitEnforcer) OverLimit(quiz *models.Quiz, attempt *models.Attempt, now time.Time) bool {
	deadline := quiz.Deadline(attempt.StartedAt)
	if deadline == nil {
		return false
	}
	return now.After(*deadline)
}

// RemainingSeconds returns the seconds left before the deadline, or nil for
// untimed quizzes. Expired attempts report zero.
func (TimeLimitEnforcer) RemainingSeconds(quiz *models.Quiz, attempt *models.Attempt, now time.Time) *int {
	deadline := quiz.Deadline(attempt.StartedAt)
	if deadline == nil {
		return nil
	}
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

type sweepService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	batchSize int
}

func NewSweepService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, batchSize int) SweepService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &sweepService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// SweepExpired transitions overdue in-progress attempts to expired. Each
// record is handled independently: a failure is logged and the sweep moves
// on. Attempts that were completed or expired concurrently fall out through
// the status guard, which makes repeated sweeps idempotent.
func (s *sweepService) SweepExpired(ctx context.Context) (*SweepResult, error) {
	now := time.Now()
	attempts, err := s.repo.Attempt().GetExpiredInProgress(ctx, now, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(attempts)}
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		expired, err := s.expireOne(ctx, attempt)
		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "Failed to expire attempt",
				"attempt_id", attempt.ID,
				"quiz_id", attempt.QuizID,
				"error", err)
			continue
		}
		if expired {
			result.Expired++
		}
	}

	if result.Expired > 0 || result.Failed > 0 {
		s.logger.InfoContext(ctx, "Expiry sweep finished",
			"scanned", result.Scanned,
			"expired", result.Expired,
			"failed", result.Failed)
	}

	return result, nil
}

func (s *sweepService) expireOne(ctx context.Context, attempt *models.Attempt) (bool, error) {
	updates := map[string]interface{}{}
	if attempt.Quiz != nil {
		if deadline := attempt.Quiz.Deadline(attempt.StartedAt); deadline != nil {
			updates["submitted_at"] = *deadline
			updates["time_spent"] = int(deadline.Sub(attempt.StartedAt).Seconds())
		}
	}

	rows, err := s.repo.Attempt().TransitionStatus(ctx, nil, attempt.ID, models.AttemptExpired, updates)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// Lost the race to a concurrent complete or abandon.
		return false, nil
	}

	monitoring.AttemptTransitions.WithLabelValues(string(models.AttemptExpired)).Inc()
	monitoring.SweepExpired.Inc()

	if err := s.publisher.Publish(ctx, events.NewEvent(events.AttemptExpired, map[string]interface{}{
		"attempt_id": attempt.ID,
		"quiz_id":    attempt.QuizID,
		"learner_id": attempt.LearnerID,
	})); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish expiry event",
			"attempt_id", attempt.ID,
			"error", err)
	}

	return true, nil
}

// ExpirySweeper runs SweepExpired on a fixed interval until the context is
// cancelled.
type ExpirySweeper struct {
	service  SweepService
	interval time.Duration
	logger   *slog.Logger
}

func NewExpirySweeper(service SweepService, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("Expiry sweeper started", "interval", w.interval.String())
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Expiry sweeper stopped")
				return
			case <-ticker.C:
				if _, err := w.service.SweepExpired(ctx); err != nil && ctx.Err() == nil {
					w.logger.Error("Expiry sweep failed", "error", err)
				}
			}
		}
	}()
}
