package history

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means no caller identity was attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFoundOrForbidden covers both a missing record and one owned by another user.
	ErrNotFoundOrForbidden = errors.New("not found")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field-level cause of a rejected request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// StorageError wraps an unexpected failure of the storage backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
