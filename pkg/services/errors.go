// Package services provides the business logic for trigger registration
// management and firing.
package services

import (
	"errors"
	"fmt"

	"github.com/flowforge/trigger/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidConfiguration = errors.New("invalid trigger configuration")
	ErrUnsupportedType      = errors.New("unsupported trigger type")

	// Ownership errors (403 Forbidden). A registration that exists but
	// belongs to another user is never reported as absent.
	ErrNotOwner = errors.New("trigger belongs to another user")

	// ErrTriggerNotFound is returned when a registration is not found.
	ErrTriggerNotFound = persistence.ErrTriggerNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewServiceError wraps a sentinel error with operation context.
func NewServiceError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrUnsupportedType)
}

// IsOwnershipError checks if an error should map to HTTP 403.
func IsOwnershipError(err error) bool {
	return errors.Is(err, ErrNotOwner)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}
