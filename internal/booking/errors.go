package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")

	// ErrPastDate is returned when a past calendar cell is clicked.
	ErrPastDate = errors.New("date is in the past")

	// ErrNoDateSelected is returned when a slot is clicked before any date.
	ErrNoDateSelected = errors.New("no date selected")

	// ErrSlotNotFound is returned when a slot id is not part of the slot set
	// most recently loaded for the selected date.
	ErrSlotNotFound = errors.New("slot not available for the selected date")

	// ErrSlotDisabled is returned when a disabled (already passed) slot is clicked.
	ErrSlotDisabled = errors.New(PastSlotLabel)

	// ErrSubmitInProgress is returned while a submission is outstanding.
	ErrSubmitInProgress = errors.New("a booking submission is already in progress")

	// ErrNotSubmitting is returned when a submission result arrives for a
	// ticket that is no longer outstanding.
	ErrNotSubmitting = errors.New("no matching submission in progress")
)

// GenericSubmissionMessage is shown when the server gives no usable reason.
const GenericSubmissionMessage = "An error occurred. Please try again."

// ValidationError reports a form or selection problem found before any
// network call. Message is user facing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AvailabilityError reports a failed month or slot fetch.
type AvailabilityError struct {
	Scope string // "month" or "slots"
	Key   string // month key or ISO date
	Err   error
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("availability: %s %s: %v", e.Scope, e.Key, e.Err)
}

func (e *AvailabilityError) Unwrap() error {
	return e.Err
}

// SubmissionError reports a failed booking request. Message is user facing:
// the server-provided error, or GenericSubmissionMessage.
type SubmissionError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Message == "" {
		return GenericSubmissionMessage
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
