package validator

import (
	"fmt"

	"github.com/campusworks/quiz-engine/internal/models"
)

// OptionSpec is the authoring-time view of an option used for structural
// validation before any rows exist.
type OptionSpec struct {
	Text      string
	IsCorrect bool
}

// ValidateQuestionOptions enforces the structural rules for each question
// type: choice questions need at least two options, single-answer types
// exactly one correct option, true/false exactly two options.
func ValidateQuestionOptions(qType models.QuestionType, options []OptionSpec) ValidationErrors {
	var errors ValidationErrors

	correct := 0
	for _, o := range options {
		if o.IsCorrect {
			correct++
		}
	}

	switch qType {
	case models.QuestionFreeText:
		if len(options) > 0 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "free text questions cannot have options",
				Value:   len(options),
				Rule:    "option_set",
			})
		}

	case models.QuestionTrueFalse:
		if len(options) != 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "true/false questions must have exactly two options",
				Value:   len(options),
				Rule:    "option_set",
			})
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "true/false questions must have exactly one correct option",
				Value:   correct,
				Rule:    "option_set",
			})
		}

	case models.QuestionSingleChoice:
		if len(options) < 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "choice questions must have at least two options",
				Value:   len(options),
				Rule:    "option_set",
			})
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "single choice questions must have exactly one correct option",
				Value:   correct,
				Rule:    "option_set",
			})
		}

	case models.QuestionMultiChoice:
		if len(options) < 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "choice questions must have at least two options",
				Value:   len(options),
				Rule:    "option_set",
			})
		}
		if correct < 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "multi choice questions must have at least one correct option",
				Value:   correct,
				Rule:    "option_set",
			})
		}

	default:
		errors = append(errors, ValidationError{
			Field:   "type",
			Message: "is not a valid question type",
			Value:   qType,
			Rule:    "question_type",
		})
	}

	return errors
}

// ValidateStatusTransition checks the attempt state machine: in_progress is
// the only non-terminal status.
func ValidateStatusTransition(current, next models.AttemptStatus) ValidationErrors {
	allowedTransitions := map[models.AttemptStatus][]models.AttemptStatus{
		models.AttemptInProgress: {models.AttemptCompleted, models.AttemptAbandoned, models.AttemptExpired},
		models.AttemptCompleted:  {},
		models.AttemptAbandoned:  {},
		models.AttemptExpired:    {},
	}

	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return nil
		}
	}

	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}
