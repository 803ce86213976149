// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Computation errors
	ErrInsufficientData = errors.New("insufficient data")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "gamification", "analytics"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrAttemptNotFound      = NewDomainError("progress", "Find", ErrNotFound, "concept attempt not found")
	ErrInvalidConceptStatus = NewDomainError("progress", "Validate", ErrInvalidInput, "invalid concept status")
	ErrStatusRegression     = NewDomainError("progress", "UpdateStatus", ErrStateTransition, "concept status cannot move backwards")
	ErrInvalidScore         = NewDomainError("progress", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
)

// Gamification domain errors
var (
	ErrPointsNotFound      = NewDomainError("gamification", "FindPoints", ErrNotFound, "points record not found")
	ErrStreakNotFound      = NewDomainError("gamification", "FindStreak", ErrNotFound, "streak record not found")
	ErrBadgeNotFound       = NewDomainError("gamification", "FindBadge", ErrNotFound, "badge not found")
	ErrBadgeAlreadyAwarded = NewDomainError("gamification", "AwardBadge", ErrAlreadyExists, "badge already awarded")
	ErrNegativePoints      = NewDomainError("gamification", "AwardPoints", ErrNegativeValue, "points amount cannot be negative")
	ErrUnknownEventKind    = NewDomainError("gamification", "CalculatePoints", ErrInvalidInput, "unrecognized learning event kind")
)

// Analytics domain errors
var (
	ErrAggregationNotFound = NewDomainError("analytics", "FindAggregation", ErrNotFound, "aggregation record not found")
	ErrInvalidPeriod       = NewDomainError("analytics", "ResolvePeriod", ErrInvalidInput, "invalid period type")
	ErrNotEnoughHistory    = NewDomainError("analytics", "FitTrend", ErrInsufficientData, "not enough history for trend fit")
)

// Notification domain errors
var (
	ErrNotificationFailed   = NewDomainError("notification", "Publish", ErrExternalService, "failed to publish notification")
	ErrNotificationDisabled = NewDomainError("notification", "Check", ErrForbidden, "notifications disabled")
	ErrInvalidTopic         = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification topic")
)

// External service errors
var (
	ErrContentAPIUnavailable     = NewDomainError("content", "Request", ErrServiceUnavailable, "content service is unavailable")
	ErrContentAPIRateLimited     = NewDomainError("content", "Request", ErrRateLimited, "content service rate limit exceeded")
	ErrContentAPITimeout         = NewDomainError("content", "Request", ErrTimeout, "content service request timeout")
	ErrContentAPIInvalidResponse = NewDomainError("content", "Parse", ErrInvalidFormat, "invalid response from content service")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
