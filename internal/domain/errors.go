package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotReady       = errors.New("payout account is not ready")
	ErrExternalAPI    = errors.New("payment processor error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("concurrent update conflict")
	ErrTransferFailed = errors.New("transfer failed")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ExternalAPIError wraps a failed or malformed processor round-trip.
type ExternalAPIError struct {
	Op         string
	StatusCode int
	Code       string
	Err        error
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("processor %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("processor %s: %v", e.Op, e.Err)
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

func (e *ExternalAPIError) Is(target error) bool {
	if target == ErrExternalAPI {
		return true
	}
	// a 404 from the processor means the referenced object vanished
	return target == ErrNotFound && e.StatusCode == 404
}

// Rejected reports a definitive 4xx answer. The processor stores it under
// the request's idempotency key, so resending that key replays the rejection.
// Conflicts and rate limits are not stored.
func (e *ExternalAPIError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 409 && e.StatusCode != 429
}

func NewMalformedPayloadError(op, reason string) *ExternalAPIError {
	return &ExternalAPIError{Op: op, Err: fmt.Errorf("malformed payload: %s", reason)}
}

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
