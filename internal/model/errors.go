package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("not the organizer of this event")

	// membership conflicts
	ErrAlreadyMember        = errors.New("already a member of this event")
	ErrCapacityExceeded     = errors.New("event has reached its capacity")
	ErrEventNotJoinable     = errors.New("event cannot be joined")
	ErrNotAMember           = errors.New("not a member of this event")
	ErrOrganizerCannotLeave = errors.New("organizer cannot leave their own event")
)

// ValidationError is returned for input rejected before any repository call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is one of the membership conflict sentinels.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrEventNotJoinable) ||
		errors.Is(err, ErrNotAMember) ||
		errors.Is(err, ErrOrganizerCannotLeave)
}
