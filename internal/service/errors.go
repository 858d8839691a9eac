package service

import (
	"errors"
	"fmt"
)

// ValidationError reports user-correctable bad input (missing fields, a
// non-positive quantity). Maps to HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown list, item or reservation. Maps to
// HTTP 404.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Ref)
}

// AuthorizationError reports an action the viewer is not allowed to
// perform. Maps to HTTP 403.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// QuantityUnavailableError reports a reservation request that exceeds the
// remaining quantity of an item. Available carries the quantity actually
// left so callers can surface it. Maps to HTTP 400.
type QuantityUnavailableError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e *QuantityUnavailableError) Error() string {
	return fmt.Sprintf("requested quantity %d exceeds availability: only %d left for item %d",
		e.Requested, e.Available, e.ItemID)
}

// StorageError wraps an infrastructure failure on the write path. Maps to
// HTTP 500; the underlying error is preserved for logging.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsQuantityUnavailable reports whether err is a QuantityUnavailableError.
func IsQuantityUnavailable(err error) bool {
	var qe *QuantityUnavailableError
	return errors.As(err, &qe)
}

// storageWrap passes domain errors through untouched and wraps anything
// else as a StorageError, so a failed transaction never masquerades as a
// business-rule rejection.
func storageWrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) || IsAuthorization(err) || IsQuantityUnavailable(err) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
