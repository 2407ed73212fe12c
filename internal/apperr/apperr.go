package apperr

import "errors"

var (
	// ErrNotFound is returned when the requested event, session, or attendee name does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is not allowed to perform the operation,
	// e.g. a non-host requesting a host-only phase transition.
	ErrForbidden = errors.New("forbidden")
	// ErrIllegalTransition is returned for a requested phase transition outside the transition table.
	ErrIllegalTransition = errors.New("illegal phase transition")
	// ErrPhaseClosed is returned when a mutation arrives after the event reached a terminal phase.
	ErrPhaseClosed = errors.New("event phase is closed")
	// ErrConflict is returned when a conditional write lost a race. The whole operation
	// is safe to retry from a fresh read.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrInvalidRange is returned when a date range starts after it ends.
	ErrInvalidRange = errors.New("invalid date range")
)

// ValidationError captures field level validation issues that callers can surface to users.
// It is always rejected before any mutation happens.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// Validation builds a single-field ValidationError.
func Validation(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}
