package consultations

import (
	"time"

	"github.com/wolfman30/consultation-booking/internal/booking"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Booking is a stored consultation appointment.
type Booking struct {
	ID                 string     `json:"booking_id"`
	PackageKey         string     `json:"duration"`
	DurationMinutes    int        `json:"duration_minutes"`
	PriceAmount        int        `json:"price"`
	StartAt            time.Time  `json:"start_at"`
	Mode               string     `json:"mode"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Company            string     `json:"company"`
	Designation        string     `json:"designation"`
	Topic              string     `json:"topic"`
	NewsletterConsent  bool       `json:"newsletter_consent"`
	Status             Status     `json:"status"`
	IsPaid             bool       `json:"is_paid"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	PendingAt          *time.Time `json:"pending_at,omitempty"`
	Documents          []Document `json:"documents,omitempty"`
}

// End is the scheduled finish of the consultation.
func (b *Booking) End() time.Time {
	return b.StartAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// DateText renders the appointment day, e.g. "Tuesday, June 10, 2025".
func (b *Booking) DateText(loc *time.Location) string {
	return booking.LongDate(b.StartAt.In(loc).Format(booking.DateLayout))
}

// TimeText renders the appointment start, e.g. "10:30 AM".
func (b *Booking) TimeText(loc *time.Location) string {
	return booking.ClockLabel(b.StartAt.In(loc).Format(booking.ClockLayout))
}

// Document is an upload attached to a booking.
type Document struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// SubmitRequest is a booking form as received from the widget.
type SubmitRequest struct {
	PackageKey   string
	SelectedDate string
	SelectedTime string
	Form         booking.FormData
}

// SubmitResult reports the stored booking. Existing is set when an identical
// recent submission was found instead of creating a new one.
type SubmitResult struct {
	Booking  *Booking
	Package  Package
	Existing bool
}

// ListFilter narrows the admin booking list. Zero values match everything.
type ListFilter struct {
	Status Status
	Date   string
}

// Stats counts bookings per status.
type Stats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

func (s *Stats) add(status Status, n int) {
	s.Total += n
	switch status {
	case StatusConfirmed:
		s.Confirmed += n
	case StatusPending:
		s.Pending += n
	case StatusCancelled:
		s.Cancelled += n
	case StatusCompleted:
		s.Completed += n
	}
}
