package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the feedback store.
type ErrorType string

const (
	// ErrorTypeValidation indicates a missing or empty required field
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates no record matches the identifier
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeStorage indicates the persistence layer is unreachable or faulted
	ErrorTypeStorage ErrorType = "STORAGE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewStorageError wraps a persistence fault
func NewStorageError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the AppError type found in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsValidation(err error) bool { return TypeOf(err) == ErrorTypeValidation }

func IsNotFound(err error) bool { return TypeOf(err) == ErrorTypeNotFound }

func IsStorage(err error) bool { return TypeOf(err) == ErrorTypeStorage }
