package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/campusworks/quiz-engine/internal/events"
	"github.com/campusworks/quiz-engine/internal/repositories"
	"github.com/campusworks/quiz-engine/internal/validator"
)

// ServiceConfig carries everything the services need.
type ServiceConfig struct {
	Repository repositories.Repository
	DB         *gorm.DB
	Logger     *slog.Logger
	Validator  *validator.Validator
	Publisher  events.EventPublisher

	SweepBatchSize int
}

type defaultServiceManager struct {
	config ServiceConfig

	mu          sync.RWMutex
	initialized bool

	attempt AttemptService
	quiz    QuizService
	sweep   SweepService
}

func NewDefaultServiceManager(config ServiceConfig) ServiceManager {
	return &defaultServiceManager{config: config}
}

func (m *defaultServiceManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if m.config.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if m.config.Validator == nil {
		return fmt.Errorf("validator is required")
	}
	if m.config.Publisher == nil {
		m.config.Publisher = events.NewMockEventPublisher()
	}
	if m.config.Logger == nil {
		m.config.Logger = slog.Default()
	}

	m.attempt = NewAttemptService(
		m.config.Repository,
		m.config.DB,
		m.config.Logger,
		m.config.Validator,
		m.config.Publisher,
	)
	m.quiz = NewQuizService(
		m.config.Repository,
		m.config.Logger,
		m.config.Validator,
		m.config.Publisher,
	)
	m.sweep = NewSweepService(
		m.config.Repository,
		m.config.Publisher,
		m.config.Logger,
		m.config.SweepBatchSize,
	)

	m.initialized = true
	m.config.Logger.InfoContext(ctx, "Services initialized")
	return nil
}

func (m *defaultServiceManager) Attempt() AttemptService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.attempt
}

func (m *defaultServiceManager) Quiz() QuizService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.quiz
}

func (m *defaultServiceManager) Sweep() SweepService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.sweep
}

func (m *defaultServiceManager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	return m.config.Repository.Ping(ctx)
}

func (m *defaultServiceManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}

	if err := m.config.Publisher.Close(); err != nil {
		m.config.Logger.Warn("Failed to close event publisher", "error", err)
	}

	m.initialized = false
	m.config.Logger.InfoContext(ctx, "Services shut down")
	return nil
}
