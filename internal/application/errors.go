package application

import "errors"

var (
	// ErrNotFound is returned when the requested visitor or recipient does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrRemoteStore is returned when a remote record store write fails. The
	// operation mutated nothing locally and may be retried in full.
	ErrRemoteStore = errors.New("application: remote record store write failed")
	// ErrNotificationFailed is reported when every notification channel failed.
	// It never aborts or reverses a check-in.
	ErrNotificationFailed = errors.New("application: notification delivery failed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
