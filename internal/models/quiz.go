package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionFreeText     QuestionType = "free_text"
)

// IsChoice reports whether answers to this question type are option picks.
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionTrueFalse:
		return true
	}
	return false
}

// IsAutoGradable reports whether the engine can score this question type
// without instructor review.
func (t QuestionType) IsAutoGradable() bool {
	return t.IsChoice()
}

// Quiz is the per-lesson quiz configuration. Attempts always read the live
// config; limits and passing score are not snapshotted per attempt.
type Quiz struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	LessonID         uint   `gorm:"not null;index" json:"lesson_id"`
	CourseID         uint   `gorm:"not null;index" json:"course_id"`
	Title            string `gorm:"size:255;not null" json:"title"`
	Description      string `gorm:"type:text" json:"description,omitempty"`
	TimeLimitMinutes *int   `json:"time_limit_minutes,omitempty"` // nil = untimed
	AttemptLimit     int    `gorm:"not null;default:3" json:"attempt_limit"`
	PassingScore     int    `gorm:"not null;default:60" json:"passing_score"`
	ShuffleQuestions bool   `gorm:"not null;default:false" json:"shuffle_questions"`
	ShowCorrectAnswers bool `gorm:"not null;default:false" json:"show_correct_answers"`
	IsActive         bool   `gorm:"not null;default:true;index" json:"is_active"`
	CreatedBy        string `gorm:"size:100;not null;index" json:"created_by"`

	Questions []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Quiz) TableName() string { return "quizzes" }

// Deadline returns the submission cutoff for an attempt started at the given
// time, or nil when the quiz is untimed.
func (q *Quiz) Deadline(startedAt time.Time) *time.Time {
	if q.TimeLimitMinutes == nil {
		return nil
	}
	d := startedAt.Add(time.Duration(*q.TimeLimitMinutes) * time.Minute)
	return &d
}

type Question struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	QuizID   uint         `gorm:"not null;index" json:"quiz_id"`
	Type     QuestionType `gorm:"size:20;not null" json:"type"`
	Text     string       `gorm:"type:text;not null" json:"text"`
	Points   int          `gorm:"not null;default:1" json:"points"`
	Position int          `gorm:"not null;default:0" json:"position"`
	Required bool         `gorm:"not null;default:true" json:"required"`

	Options []Option `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string { return "quiz_questions" }

// CorrectOptionIDs returns the IDs of the correct options in stored order.
func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct,omitempty"`
	Position   int    `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Option) TableName() string { return "quiz_options" }
