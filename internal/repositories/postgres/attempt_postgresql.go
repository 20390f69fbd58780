package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/cache"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptRepository(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	if err := r.getDB(tx).WithContext(ctx).Create(attempt).Error; err != nil {
		// Leave duplicate-key errors untranslated so callers can map the
		// partial unique index violation to a conflict.
		return err
	}
	cache.InvalidateAttemptCache(ctx, r.cacheManager, attempt.ID, attempt.QuizID)
	return nil
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Quiz").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetByIDWithResponses(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Quiz").
		Preload("Responses").
		Preload("Responses.Question").
		Preload("Responses.Question.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_options.position ASC")
		}).
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetActive(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND learner_id = ? AND status = ?", quizID, learnerID, models.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) CountByLearner(ctx context.Context, tx *gorm.DB, quizID uint, learnerID string) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND learner_id = ?", quizID, learnerID).
		Count(&count).Error
	return count, err
}

func (r *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Attempt{})

	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.LearnerID != nil {
		query = query.Where("learner_id = ?", *filters.LearnerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.Attempt
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Quiz").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (r *AttemptPostgreSQL) GetBestCompleted(ctx context.Context, quizID uint, learnerID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND learner_id = ? AND status = ?", quizID, learnerID, models.AttemptCompleted).
		Order("percentage DESC, submitted_at ASC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// TransitionStatus only matches rows still in progress, so a concurrent
// completion and sweep cannot both win.
func (r *AttemptPostgreSQL) TransitionStatus(ctx context.Context, tx *gorm.DB, attemptID uint, to models.AttemptStatus, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", attemptID, models.AttemptInProgress).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to transition attempt status: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		var attempt models.Attempt
		if err := r.getDB(tx).WithContext(ctx).Select("quiz_id").First(&attempt, attemptID).Error; err == nil {
			cache.InvalidateAttemptCache(ctx, r.cacheManager, attemptID, attempt.QuizID)
		}
	}

	return result.RowsAffected, nil
}

// UpdateCompletedScore only matches rows still completed, so a regrade
// cannot resurrect an attempt another path moved on.
func (r *AttemptPostgreSQL) UpdateCompletedScore(ctx context.Context, tx *gorm.DB, attemptID uint, score, percentage int, passed bool) (int64, error) {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", attemptID, models.AttemptCompleted).
		Updates(map[string]interface{}{
			"score":      score,
			"percentage": percentage,
			"passed":     passed,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update attempt score: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		var attempt models.Attempt
		if err := r.getDB(tx).WithContext(ctx).Select("quiz_id").First(&attempt, attemptID).Error; err == nil {
			cache.InvalidateAttemptCache(ctx, r.cacheManager, attemptID, attempt.QuizID)
		}
	}

	return result.RowsAffected, nil
}

func (r *AttemptPostgreSQL) GetExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := r.db.WithContext(ctx).
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.status = ?", models.AttemptInProgress).
		Where("quizzes.time_limit_minutes IS NOT NULL").
		Where("quiz_attempts.started_at + (quizzes.time_limit_minutes * interval '1 minute') <= ?", now).
		Preload("Quiz").
		Order("quiz_attempts.started_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get expired attempts: %w", err)
	}
	return attempts, nil
}

func (r *AttemptPostgreSQL) GetQuizStats(ctx context.Context, quizID uint) (*repositories.QuizAttemptStats, error) {
	stats := &repositories.QuizAttemptStats{
		QuizID:          quizID,
		StatusBreakdown: make(map[models.AttemptStatus]int64),
	}

	cacheKey := fmt.Sprintf("quiz:%d:attempts", quizID)
	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		s := &repositories.QuizAttemptStats{
			QuizID:          quizID,
			StatusBreakdown: make(map[models.AttemptStatus]int64),
		}

		type statusCount struct {
			Status models.AttemptStatus
			Count  int64
		}
		var counts []statusCount
		err := r.db.WithContext(ctx).
			Model(&models.Attempt{}).
			Select("status, COUNT(*) as count").
			Where("quiz_id = ?", quizID).
			Group("status").
			Scan(&counts).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate attempt statuses: %w", err)
		}

		for _, c := range counts {
			s.StatusBreakdown[c.Status] = c.Count
			s.TotalAttempts += c.Count
		}
		s.CompletedAttempts = s.StatusBreakdown[models.AttemptCompleted]

		err = r.db.WithContext(ctx).
			Model(&models.Attempt{}).
			Where("quiz_id = ? AND status = ? AND passed = ?", quizID, models.AttemptCompleted, true).
			Count(&s.PassedAttempts).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count passed attempts: %w", err)
		}

		if s.CompletedAttempts > 0 {
			var avg *float64
			err = r.db.WithContext(ctx).
				Model(&models.Attempt{}).
				Select("AVG(percentage)").
				Where("quiz_id = ? AND status = ?", quizID, models.AttemptCompleted).
				Scan(&avg).Error
			if err != nil {
				return nil, fmt.Errorf("failed to average percentages: %w", err)
			}
			if avg != nil {
				s.AveragePercentage = *avg
			}
		}

		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}
