package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig signals missing or malformed configuration. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")
	// ErrValidation signals a bad runtime request. Fatal for that request only.
	ErrValidation = errors.New("validation failed")
	// ErrBackendLookup signals a failed auxiliary backend query (depth probe, parent fetch).
	ErrBackendLookup = errors.New("backend lookup failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid collection schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnsupportedMethod signals a distance method the backend cannot execute.
	ErrUnsupportedMethod = errors.New("unsupported distance method")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
