// Package apperr defines the error taxonomy shared by the stores, the purchase
// processor and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError reports a referenced cart, product, line or ticket that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// ConflictError reports a write rejected because of the current state of the
// store: a duplicate unique key or a lost race on a concurrent update.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ConflictError) Unwrap() error { return e.Err }

// UnauthorizedError reports a missing or invalid credential.
type UnauthorizedError struct{ Reason string }

func (e *UnauthorizedError) Error() string { return e.Reason }

// ForbiddenError reports an authenticated caller lacking permission.
type ForbiddenError struct{ Reason string }

func (e *ForbiddenError) Error() string { return e.Reason }

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

func Validation(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

func Conflict(reason string, err error) error { return &ConflictError{Reason: reason, Err: err} }

func Unauthorized(reason string) error { return &UnauthorizedError{Reason: reason} }

func Forbidden(reason string) error { return &ForbiddenError{Reason: reason} }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}
