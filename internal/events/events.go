package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the engine.
const (
	AttemptStarted   = "attempt.started"
	AttemptCompleted = "attempt.completed"
	AttemptAbandoned = "attempt.abandoned"
	AttemptExpired   = "attempt.expired"
	QuizRegraded     = "quiz.regraded"
)

// Event is the envelope for everything the engine publishes.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh ID and timestamp.
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "quiz-engine",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher abstracts the message transport. Publishing failures are
// logged by callers and never fail the originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
