// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTriggerNotFound indicates a trigger registration was not found by
	// the given identifier or webhook token.
	ErrTriggerNotFound = errors.New("trigger registration not found")

	// ErrTriggerAlreadyExists indicates a registration with the same
	// identifier already exists.
	ErrTriggerAlreadyExists = errors.New("trigger registration already exists")

	// ErrWebhookTokenTaken indicates the generated webhook token collided
	// with an existing registration.
	ErrWebhookTokenTaken = errors.New("webhook token already in use")
)

// TriggerError wraps registration-related errors with operation context.
type TriggerError struct {
	Op        string // Operation being performed (e.g., "Create", "TriggerByID")
	TriggerID string // Registration ID if applicable
	Err       error  // Underlying error
}

func (e *TriggerError) Error() string {
	if e.TriggerID != "" {
		return fmt.Sprintf("%s operation failed for trigger %s: %v", e.Op, e.TriggerID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for trigger errors.
func (e *TriggerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTriggerError creates a new trigger error with context.
func NewTriggerError(op, triggerID string, err error) *TriggerError {
	return &TriggerError{
		Op:        op,
		TriggerID: triggerID,
		Err:       err,
	}
}

// IsTriggerNotFound checks if an error indicates a registration was not found.
func IsTriggerNotFound(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}
