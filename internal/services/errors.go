package services

import (
	"errors"

	"github.com/otcheredev/medorders/internal/repository"
)

var (
	// ErrValidation is matched by every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password alike
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when the requested patient or order does not exist
	ErrNotFound = repository.ErrNotFound
)

// ValidationError carries a message that is safe to show to the client
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
