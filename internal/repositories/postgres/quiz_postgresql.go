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

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizRepository(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	cache.InvalidateQuizCache(ctx, r.cacheManager, quiz.ID)
	return nil
}

func (r *QuizPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz

	cacheKey := fmt.Sprintf("id:%d", id)
	err := r.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var q models.Quiz
		if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
			return nil, err
		}
		return &q, nil
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_questions.position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_options.position ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizPostgreSQL) GetByLesson(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizPostgreSQL) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Quiz{})

	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.LessonID != nil {
		query = query.Where("lesson_id = ?", *filters.LessonID)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quizzes: %w", err)
	}

	var quizzes []*models.Quiz
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return quizzes, total, nil
}

func (r *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	cache.InvalidateQuizCache(ctx, r.cacheManager, quiz.ID)
	return nil
}

func (r *QuizPostgreSQL) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz active flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateQuizCache(ctx, r.cacheManager, id)
	return nil
}

func (r *QuizPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Quiz{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateQuizCache(ctx, r.cacheManager, id)
	return nil
}

func (r *QuizPostgreSQL) GetQuestions(ctx context.Context, quizID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_options.position ASC")
		}).
		Where("quiz_id = ?", quizID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	return questions, nil
}

func (r *QuizPostgreSQL) GetQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_options.position ASC")
		}).
		First(&question, questionID).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuizPostgreSQL) UpdateQuestion(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := r.getDB(tx).WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	cache.InvalidateQuizCache(ctx, r.cacheManager, question.QuizID)
	return nil
}
