package service

import (
	"fmt"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// Sentinel errors returned by the service layer. The API layer maps them to
// HTTP status codes.
var (
	// ErrNothingToApply is returned when no submitted synonym group names at
	// least two distinct cards.
	ErrNothingToApply = fmt.Errorf("%w: no valid synonym groups to apply", domain.ErrValidation)
)

// ServiceError records which service operation failed and why. It wraps the
// underlying error so errors.Is and errors.As still see store, domain and
// generation errors.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deck ai %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("deck ai %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
