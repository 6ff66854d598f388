package booking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTopicLength bounds the consultation topic text.
const MaxTopicLength = 1000

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Consultation modes offered on the form.
const (
	ModeVideo    = "video"
	ModePhone    = "phone"
	ModeInPerson = "in-person"
)

// ModeLabel returns the display text for a consultation mode.
func ModeLabel(mode string) string {
	switch mode {
	case ModePhone:
		return "Phone Call"
	case ModeInPerson:
		return "In-Person Meeting"
	default:
		return "Video Call"
	}
}

// Attachment is an optional document sent with the booking.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FormData is the booking form as filled in by the client.
type FormData struct {
	Name            string
	Email           string
	Phone           string
	Company         string
	Designation     string
	Topic           string
	Mode            string
	Newsletter      bool
	TermsAccepted   bool
	DurationMinutes int
	Attachments     []Attachment
}

// ValidEmail reports whether s looks like an address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Validate checks the form fields on their own, in display order.
func (f FormData) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", f.Name},
		{"email", f.Email},
		{"phone", f.Phone},
		{"topic", f.Topic},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "Please fill in all required fields (marked with *)"}
		}
	}
	if !ValidEmail(f.Email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Topic)) > MaxTopicLength {
		return &ValidationError{Field: "topic", Message: "Please keep the topic under 1000 characters"}
	}
	if !f.TermsAccepted {
		return &ValidationError{Field: "terms", Message: "Please agree to the Terms of Service and Privacy Policy"}
	}
	return nil
}

// ValidateSubmission runs every precondition of a submission: a date, a
// time, then the form itself.
func ValidateSubmission(form FormData, sel Selection) error {
	if sel.Date == "" {
		return &ValidationError{Field: "selected_date", Message: "Please select a date for your appointment"}
	}
	if sel.Slot == nil {
		return &ValidationError{Field: "selected_time", Message: "Please select a time for your appointment"}
	}
	return form.Validate()
}

// Trimmed returns a copy with surrounding whitespace removed from text fields.
func (f FormData) Trimmed() FormData {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Company = strings.TrimSpace(f.Company)
	f.Designation = strings.TrimSpace(f.Designation)
	f.Topic = strings.TrimSpace(f.Topic)
	f.Mode = strings.TrimSpace(f.Mode)
	if f.Mode == "" {
		f.Mode = ModeVideo
	}
	return f
}
