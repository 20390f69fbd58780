package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/cache"
	"github.com/campusworks/quiz-engine/internal/models"
	"github.com/campusworks/quiz-engine/internal/repositories"
)

type ResponsePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResponseRepository(db *gorm.DB, redisClient *redis.Client) repositories.ResponseRepository {
	return &ResponsePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResponsePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ResponsePostgreSQL) Create(ctx context.Context, tx *gorm.DB, response *models.Response) error {
	if err := r.getDB(tx).WithContext(ctx).Create(response).Error; err != nil {
		// Duplicate-key errors surface as-is; the unique index on
		// (attempt_id, question_id) makes responses create-once.
		return err
	}
	cache.SafeDelete(ctx, r.cacheManager.Attempt, fmt.Sprintf("responses:%d", response.AttemptID))
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Exists, fmt.Sprintf("attempt:%d:*", response.AttemptID))
	return nil
}

func (r *ResponsePostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Response, error) {
	var responses []*models.Response
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_options.position ASC")
		}).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt responses: %w", err)
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.Response, error) {
	var response models.Response
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) HasResponse(ctx context.Context, attemptID, questionID uint) (bool, error) {
	cacheKey := fmt.Sprintf("attempt:%d:question:%d", attemptID, questionID)

	if cached, err := r.cacheManager.Exists.GetString(ctx, cacheKey); err == nil {
		return cached == "1", nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check response existence: %w", err)
	}

	exists := count > 0
	if exists {
		// Only positive results are cached; a missing response may be
		// created at any moment.
		_ = r.cacheManager.Exists.SetString(ctx, cacheKey, "1", cache.ExistsCacheConfig.TTL)
	}

	return exists, nil
}

func (r *ResponsePostgreSQL) UpdateGrading(ctx context.Context, tx *gorm.DB, responseID uint, isCorrect bool, pointsEarned int) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Response{}).
		Where("id = ?", responseID).
		Updates(map[string]interface{}{
			"is_correct":    isCorrect,
			"points_earned": pointsEarned,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update response grading: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
