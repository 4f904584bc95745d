package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	// ErrGone is returned when the event was already deleted from the calendar.
	ErrGone = errors.New("reservation was deleted")

	ErrUpstream = errors.New("reservation store request failed")

	ErrTimeout = errors.New("reservation store request timed out")

	ErrLockHeld = errors.New("room is locked by another request")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
