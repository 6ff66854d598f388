package consultations

import "errors"

var (
	// ErrNotFound is returned when a booking id is unknown.
	ErrNotFound = errors.New("consultations: booking not found")

	// ErrInvalidStatus is returned for an unknown status filter or transition.
	ErrInvalidStatus = errors.New("consultations: invalid status")

	// ErrSlotTaken is returned when another active booking already starts
	// at the same time.
	ErrSlotTaken = errors.New("consultations: slot already booked")
)

// Rejection reasons, also used as metric labels.
const (
	ReasonNoTime      = "no_time"
	ReasonInvalidTime = "invalid_time"
	ReasonPast        = "past"
	ReasonInvalidForm = "invalid_form"
	ReasonDuplicate   = "duplicate"
	ReasonUnavailable = "unavailable"
)

// RejectionError is a submission refused for a reason the client can show.
type RejectionError struct {
	Reason  string
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

func reject(reason, message string) error {
	return &RejectionError{Reason: reason, Message: message}
}
