package booking

import (
	"time"
)

// Confirmation describes an accepted booking.
type Confirmation struct {
	BookingID       string
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
	StartAt         time.Time
	Name            string
	Email           string
	Mode            string
	Topic           string
}

// NewConfirmation builds the confirmation for a submission the gateway
// accepted under bookingID.
func NewConfirmation(bookingID string, sub Submission, durationMinutes int) Confirmation {
	return Confirmation{
		BookingID:       bookingID,
		Date:            sub.Date,
		StartTime:       sub.Slot.StartTime,
		EndTime:         sub.Slot.EndTime,
		DurationMinutes: durationMinutes,
		StartAt:         sub.StartAt,
		Name:            sub.Form.Name,
		Email:           sub.Form.Email,
		Mode:            sub.Form.Mode,
		Topic:           sub.Form.Topic,
	}
}

// DateText renders "Tuesday, June 10, 2025".
func (c Confirmation) DateText() string {
	return LongDate(c.Date)
}

// TimeText renders "10:30 AM".
func (c Confirmation) TimeText() string {
	return ClockLabel(c.StartTime)
}

// End is the end of the booked interval.
func (c Confirmation) End() time.Time {
	return c.StartAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}
