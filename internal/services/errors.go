package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gmao/backend/internal/workflow"
	"gorm.io/gorm"
)

// NotFoundError reports a missing intervention (or other referenced row).
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ValidationError carries field-level problems with the caller's input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ConflictError reports a uniqueness violation, typically two writers racing
// to create the same phase record.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting write on %s: %v", e.Resource, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StoreError wraps any other persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr classifies a gorm error. Typed errors pass through untouched.
func storeErr(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var (
		notFound   *NotFoundError
		validation *ValidationError
		conflict   *ConflictError
		store      *StoreError
		transition *workflow.InvalidTransitionError
	)
	if errors.As(err, &notFound) || errors.As(err, &validation) || errors.As(err, &conflict) ||
		errors.As(err, &store) || errors.As(err, &transition) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Resource: resource, Err: err}
	}
	return &StoreError{Op: op, Err: err}
}
