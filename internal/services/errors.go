package services

import (
	"errors"
	"fmt"

	apperrors "github.com/examstack/exam-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Exam catalog errors
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotPublished = errors.New("exam is not published")

	// Admission errors
	ErrExamNotStarted           = errors.New("exam has not started yet")
	ErrExamEnded                = errors.New("exam has already ended")
	ErrAttemptAlreadyInProgress = errors.New("attempt already in progress")

	// Scoring errors
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNoAttemptInProgress = errors.New("no attempt in progress")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// PermissionError reports an attempt to read another learner's data
type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition. An
// unpublished exam is reported as not found to learners.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrExamNotPublished) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrNoAttemptInProgress)
}

// IsInvalidState checks if error represents a scheduling-window violation
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrExamNotStarted) ||
		errors.Is(err, ErrExamEnded)
}

// IsConflict checks if error represents the duplicate in-progress attempt
func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptAlreadyInProgress)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
