package services

import (
	"errors"
	"fmt"
)

var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizInactive     = errors.New("quiz is not active")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")

	ErrAttemptNotActive     = errors.New("attempt is not in progress")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrAttemptConflict      = errors.New("an attempt is already in progress")
	ErrResponseConflict     = errors.New("question already answered in this attempt")
	ErrAttemptExpired       = errors.New("attempt time limit exceeded")

	ErrNotEnrolled = errors.New("learner is not enrolled in the course")
)

// PermissionError carries the caller and the action that was refused.
type PermissionError struct {
	UserID string
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s", e.UserID, e.Action)
}

func NewPermissionError(userID, action string) *PermissionError {
	return &PermissionError{UserID: userID, Action: action}
}

// ValidationError is a request-shape failure detected before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BusinessRuleError is a domain-rule failure that is not a permission or
// validation problem, for example completing an attempt the sweeper already
// expired.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
