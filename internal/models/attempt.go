package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
	AttemptExpired    AttemptStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s AttemptStatus) IsTerminal() bool {
	return s != AttemptInProgress
}

// Attempt is one learner's run through a quiz. The partial unique index on
// (quiz_id, learner_id) keeps at most one in_progress row per pair; all
// terminal transitions go through a conditional update on status.
type Attempt struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	QuizID        uint          `gorm:"not null;uniqueIndex:idx_active_attempt,where:status = 'in_progress'" json:"quiz_id"`
	LearnerID     string        `gorm:"size:100;not null;uniqueIndex:idx_active_attempt,where:status = 'in_progress';index" json:"learner_id"`
	AttemptNumber int           `gorm:"not null" json:"attempt_number"`
	Status        AttemptStatus `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	Score      *int  `json:"score,omitempty"`      // points earned over auto-gradable questions
	Percentage *int  `json:"percentage,omitempty"` // 0-100, rounded half up
	Passed     *bool `json:"passed,omitempty"`

	TimeSpent int `gorm:"not null;default:0" json:"time_spent"` // seconds

	Quiz      *Quiz      `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	Responses []Response `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Attempt) TableName() string { return "quiz_attempts" }

// Response records a learner's answer to one question of one attempt.
// The unique index on (attempt_id, question_id) makes recording create-once.
type Response struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	AttemptID  uint `gorm:"not null;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID uint `gorm:"not null;uniqueIndex:idx_attempt_question" json:"question_id"`

	SelectedOptionIDs datatypes.JSON `gorm:"type:jsonb" json:"selected_option_ids,omitempty"`
	TextAnswer        *string        `gorm:"type:text" json:"text_answer,omitempty"`

	IsCorrect    *bool `json:"is_correct,omitempty"`
	PointsEarned *int  `json:"points_earned,omitempty"`

	TimeSpent int `gorm:"not null;default:0" json:"time_spent"` // seconds

	Question *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Response) TableName() string { return "quiz_responses" }
