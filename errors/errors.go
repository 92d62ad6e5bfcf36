/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a model is not found
	ErrNotFound = errors.New("model not found")

	// ErrAlreadyExists is returned when attempting to create a model that already exists
	ErrAlreadyExists = errors.New("model already exists")

	// ErrValidation is returned when a key or attribute fails validation
	ErrValidation = errors.New("invalid input")

	// ErrThrottled is returned when the table service rejects a request for capacity reasons
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable is returned when the table service is transiently unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrSchemaMismatch is returned when an existing table's key schema differs from its binding
	ErrSchemaMismatch = errors.New("table schema mismatch")
)

// NotFoundError reports a point lookup that matched no item
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: item with key %q not found", e.Table, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError reports a create that collided with an existing item
type AlreadyExistsError struct {
	Table string
	Key   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: item with key %q already exists", e.Table, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError reports a malformed key or attribute
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ThrottledError reports a request rejected for capacity reasons after retries were exhausted
type ThrottledError struct {
	Op    string
	Table string
	Err   error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s %s: throttled: %v", e.Op, e.Table, e.Err)
}

func (e *ThrottledError) Unwrap() error { return e.Err }

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// UnavailableError reports a transient service failure after retries were exhausted
type UnavailableError struct {
	Op    string
	Table string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s: service unavailable: %v", e.Op, e.Table, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// SchemaMismatchError reports an existing table whose key schema is incompatible with its binding
type SchemaMismatchError struct {
	Table  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("table %q: schema mismatch: %s", e.Table, e.Reason)
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table, key string) error {
	return &NotFoundError{Table: table, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(table, key string) error {
	return &AlreadyExistsError{Table: table, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewSchemaMismatchError creates a new SchemaMismatchError
func NewSchemaMismatchError(table, reason string) error {
	return &SchemaMismatchError{Table: table, Reason: reason}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsThrottled checks if an error is a throttling error
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnavailable checks if an error is a transient availability error
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsSchemaMismatch checks if an error is a schema mismatch error
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

// IsRetryable reports whether an error belongs to a transient class that
// callers may safely retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}
