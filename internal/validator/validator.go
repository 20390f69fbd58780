package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/campusworks/quiz-engine/internal/models"
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// ToValidationErrors converts validator/v10 errors to our error type
func ToValidationErrors(err error) ValidationErrors {
	var out ValidationErrors
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Field:   fe.Field(),
				Message: messageForTag(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return out
	}
	out = append(out, ValidationError{Message: err.Error()})
	return out
}

// Validator wraps go-playground/validator with the custom quiz rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerRules()
	return v
}

// Validate validates a struct and returns nil or ValidationErrors.
func (v *Validator) Validate(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	// Passing score validation (0-100)
	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Attempt limit validation (1-10)
	v.validate.RegisterValidation("attempt_limit", func(fl validator.FieldLevel) bool {
		limit := fl.Field().Int()
		return limit >= 1 && limit <= 10
	})

	// Time limit validation in minutes (1-480)
	v.validate.RegisterValidation("time_limit_minutes", func(fl validator.FieldLevel) bool {
		minutes := fl.Field().Int()
		return minutes >= 1 && minutes <= 480
	})

	// Points range validation
	v.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	// Question type validation
	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := models.QuestionType(fl.Field().String())
		switch qType {
		case models.QuestionSingleChoice, models.QuestionMultiChoice,
			models.QuestionTrueFalse, models.QuestionFreeText:
			return true
		}
		return false
	})
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "passing_score":
		return "must be between 0 and 100"
	case "attempt_limit":
		return "must be between 1 and 10"
	case "time_limit_minutes":
		return "must be between 1 and 480 minutes"
	case "points_range":
		return "must be between 1 and 100"
	case "question_type":
		return "is not a valid question type"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
