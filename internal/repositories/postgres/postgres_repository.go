package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/repositories/casdoor"
)

// PostgreSQLRepository wires the GORM-backed repositories plus the Casdoor
// directory repository behind the aggregate Repository interface.
type PostgreSQLRepository struct {
	db *gorm.DB

	quiz      repositories.QuizRepository
	attempt   repositories.AttemptRepository
	response  repositories.ResponseRepository
	directory repositories.DirectoryRepository
}

type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig *casdoor.CasdoorConfig
}

func NewRepository(config RepositoryConfig) (repositories.Repository, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	directory, err := casdoor.NewDirectoryRepository(config.CasdoorConfig, config.RedisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory repository: %w", err)
	}

	return &PostgreSQLRepository{
		db:        config.DB,
		quiz:      NewQuizRepository(config.DB, config.RedisClient),
		attempt:   NewAttemptRepository(config.DB, config.RedisClient),
		response:  NewResponseRepository(config.DB, config.RedisClient),
		directory: directory,
	}, nil
}

func (r *PostgreSQLRepository) Quiz() repositories.QuizRepository          { return r.quiz }
func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository    { return r.attempt }
func (r *PostgreSQLRepository) Response() repositories.ResponseRepository  { return r.response }
func (r *PostgreSQLRepository) Directory() repositories.DirectoryRepository {
	return r.directory
}

func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// Manager is the default RepositoryManager over a PostgreSQL repository.
type Manager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) *Manager {
	return &Manager{config: config}
}

func (m *Manager) Initialize(ctx context.Context) error {
	repo, err := NewRepository(m.config)
	if err != nil {
		return err
	}
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	m.repo = repo
	return nil
}

func (m *Manager) GetRepository() repositories.Repository {
	if m.repo == nil {
		panic("repository manager not initialized")
	}
	return m.repo
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.repo == nil {
		return fmt.Errorf("repository manager not initialized")
	}
	return m.repo.Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.Close()
}
