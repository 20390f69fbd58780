package validator

import (
	"testing"

	"github.com/campusworks/quiz-engine/internal/models"
)

func options(correct ...bool) []OptionSpec {
	out := make([]OptionSpec, 0, len(correct))
	for i, c := range correct {
		out = append(out, OptionSpec{Text: string(rune('A' + i)), IsCorrect: c})
	}
	return out
}

func TestValidateQuestionOptions(t *testing.T) {
	tests := []struct {
		name    string
		qType   models.QuestionType
		options []OptionSpec
		wantErr bool
	}{
		{name: "single choice ok", qType: models.QuestionSingleChoice, options: options(true, false, false)},
		{name: "single choice no correct", qType: models.QuestionSingleChoice, options: options(false, false), wantErr: true},
		{name: "single choice two correct", qType: models.QuestionSingleChoice, options: options(true, true), wantErr: true},
		{name: "single choice one option", qType: models.QuestionSingleChoice, options: options(true), wantErr: true},
		{name: "multi choice ok", qType: models.QuestionMultiChoice, options: options(true, true, false)},
		{name: "multi choice all correct", qType: models.QuestionMultiChoice, options: options(true, true)},
		{name: "multi choice no correct", qType: models.QuestionMultiChoice, options: options(false, false), wantErr: true},
		{name: "true false ok", qType: models.QuestionTrueFalse, options: options(true, false)},
		{name: "true false three options", qType: models.QuestionTrueFalse, options: options(true, false, false), wantErr: true},
		{name: "true false both correct", qType: models.QuestionTrueFalse, options: options(true, true), wantErr: true},
		{name: "free text no options", qType: models.QuestionFreeText, options: nil},
		{name: "free text with options", qType: models.QuestionFreeText, options: options(true, false), wantErr: true},
		{name: "unknown type", qType: models.QuestionType("essay"), options: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateQuestionOptions(tt.qType, tt.options)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateQuestionOptions() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	terminals := []models.AttemptStatus{
		models.AttemptCompleted,
		models.AttemptAbandoned,
		models.AttemptExpired,
	}

	for _, to := range terminals {
		if errs := ValidateStatusTransition(models.AttemptInProgress, to); errs != nil {
			t.Errorf("in_progress -> %s should be allowed: %v", to, errs)
		}
	}

	for _, from := range terminals {
		for _, to := range append(terminals, models.AttemptInProgress) {
			if from == to {
				continue
			}
			if errs := ValidateStatusTransition(from, to); errs == nil {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestValidator_CustomRules(t *testing.T) {
	v := New()

	type quizConfig struct {
		PassingScore int  `validate:"passing_score"`
		AttemptLimit int  `validate:"attempt_limit"`
		TimeLimit    *int `validate:"omitempty,time_limit_minutes"`
	}

	limit := 30
	if errs := v.Validate(&quizConfig{PassingScore: 60, AttemptLimit: 3, TimeLimit: &limit}); errs != nil {
		t.Errorf("valid config rejected: %v", errs)
	}

	tests := []struct {
		name string
		cfg  quizConfig
	}{
		{name: "passing score over 100", cfg: quizConfig{PassingScore: 101, AttemptLimit: 3}},
		{name: "passing score negative", cfg: quizConfig{PassingScore: -1, AttemptLimit: 3}},
		{name: "attempt limit zero", cfg: quizConfig{PassingScore: 60, AttemptLimit: 0}},
		{name: "attempt limit too high", cfg: quizConfig{PassingScore: 60, AttemptLimit: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := v.Validate(&tt.cfg); errs == nil {
				t.Error("expected validation errors")
			}
		})
	}

	t.Run("time limit out of range", func(t *testing.T) {
		bad := 481
		if errs := v.Validate(&quizConfig{PassingScore: 60, AttemptLimit: 3, TimeLimit: &bad}); errs == nil {
			t.Error("expected validation errors")
		}
	})
}
