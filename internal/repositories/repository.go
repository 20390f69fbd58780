package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories behind one handle so
// services depend on a single constructor argument.
type Repository interface {
	Quiz() QuizRepository
	Attempt() AttemptRepository
	Response() ResponseRepository
	Directory() DirectoryRepository

	// WithTransaction runs fn inside a database transaction. The *gorm.DB
	// passed to fn must be handed down to every repository call in fn.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager controls repository lifecycle for the composition root.
type RepositoryManager interface {
	Initialize(ctx context.Context) error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
// Requires gorm.Open with TranslateError enabled.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
