package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrExhausted means a redemption lost the race for the last remaining
	// use of a capped offer. Callers should re-fetch offer state and report
	// the offer as sold out, not retry.
	ErrExhausted = errors.New("offer usage limit exhausted")

	// ErrTransport means a carrier rate lookup could not be completed
	// (network, timeout, auth). Distinct from "zero serviceable carriers".
	ErrTransport = errors.New("carrier transport failure")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
