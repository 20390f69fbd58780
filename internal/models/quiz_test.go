package models

import (
	"testing"
	"time"
)

func TestQuestionType_IsAutoGradable(t *testing.T) {
	tests := []struct {
		qType QuestionType
		want  bool
	}{
		{QuestionSingleChoice, true},
		{QuestionMultiChoice, true},
		{QuestionTrueFalse, true},
		{QuestionFreeText, false},
		{QuestionType("essay"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.qType), func(t *testing.T) {
			if got := tt.qType.IsAutoGradable(); got != tt.want {
				t.Errorf("IsAutoGradable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuiz_Deadline(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("untimed quiz has no deadline", func(t *testing.T) {
		quiz := &Quiz{}
		if got := quiz.Deadline(started); got != nil {
			t.Errorf("Deadline() = %v, want nil", got)
		}
	})

	t.Run("timed quiz adds the limit", func(t *testing.T) {
		limit := 45
		quiz := &Quiz{TimeLimitMinutes: &limit}
		got := quiz.Deadline(started)
		want := started.Add(45 * time.Minute)
		if got == nil || !got.Equal(want) {
			t.Errorf("Deadline() = %v, want %v", got, want)
		}
	})
}

func TestQuestion_CorrectOptionIDs(t *testing.T) {
	q := &Question{
		Options: []Option{
			{ID: 1, IsCorrect: false},
			{ID: 2, IsCorrect: true},
			{ID: 3, IsCorrect: true},
		},
	}
	got := q.CorrectOptionIDs()
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("CorrectOptionIDs() = %v, want [2 3]", got)
	}
}

func TestAttemptStatus_IsTerminal(t *testing.T) {
	if AttemptInProgress.IsTerminal() {
		t.Error("in_progress must not be terminal")
	}
	for _, s := range []AttemptStatus{AttemptCompleted, AttemptAbandoned, AttemptExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
