// Package calendarfile renders a confirmed consultation as an iCalendar
// document with a 15 minute reminder.
package calendarfile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/wolfman30/consultation-booking/internal/booking"
)

const (
	DefaultTitle           = "Consultation with KP RegTech"
	DefaultDescription     = "Professional consultation session"
	DefaultDurationMinutes = 60

	productID       = "-//KP RegTech//Consultation Booking//EN"
	uidDomain       = "kpregtech"
	reminderTrigger = "-PT15M"
	reminderText    = "Reminder: Consultation starts in 15 minutes"
	detailsFooter   = "Booking details will be sent via email."
)

// ErrNoAppointment is returned when an event has no start time.
var ErrNoAppointment = errors.New("calendarfile: no appointment time selected")

var timeNow = time.Now

// Event is the data placed in the calendar file.
type Event struct {
	BookingID       string
	StartAt         time.Time
	DurationMinutes int
	Title           string
	Description     string
	Mode            string
}

// FromConfirmation maps a confirmed booking to an event. Empty title or
// description fall back to the defaults.
func FromConfirmation(c booking.Confirmation, title, description string) Event {
	return Event{
		BookingID:       c.BookingID,
		StartAt:         c.StartAt,
		DurationMinutes: c.DurationMinutes,
		Title:           title,
		Description:     description,
		Mode:            c.Mode,
	}
}

func (ev Event) withDefaults() Event {
	if strings.TrimSpace(ev.Title) == "" {
		ev.Title = DefaultTitle
	}
	if strings.TrimSpace(ev.Description) == "" {
		ev.Description = DefaultDescription
	}
	if ev.DurationMinutes <= 0 {
		ev.DurationMinutes = DefaultDurationMinutes
	}
	if strings.TrimSpace(ev.Mode) == "" {
		ev.Mode = booking.ModeVideo
	}
	return ev
}

func (ev Event) uid() string {
	if ev.BookingID != "" {
		return fmt.Sprintf("consultation-%s@%s", ev.BookingID, uidDomain)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ev.StartAt.UTC().Format(time.RFC3339))).String() + "@" + uidDomain
}

// Build serializes ev as a VCALENDAR with one confirmed VEVENT.
func Build(ev Event) ([]byte, error) {
	if ev.StartAt.IsZero() {
		return nil, ErrNoAppointment
	}
	ev = ev.withDefaults()
	end := ev.StartAt.Add(time.Duration(ev.DurationMinutes) * time.Minute)

	cal := ics.NewCalendar()
	cal.SetProductId(productID)

	event := cal.AddEvent(ev.uid())
	event.SetDtStampTime(timeNow())
	event.SetStartAt(ev.StartAt)
	event.SetEndAt(end)
	event.SetSummary(ev.Title)
	event.SetDescription(ev.Description + "\n\n" + detailsFooter)
	event.SetLocation(fmt.Sprintf("Consultation with KP RegTech (Mode: %s)", ev.Mode))
	event.SetStatus(ics.ObjectStatusConfirmed)

	alarm := event.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger(reminderTrigger)
	alarm.SetProperty(ics.ComponentPropertyDescription, reminderText)

	return []byte(cal.Serialize()), nil
}

// Filename is "consultation-<date>.ics" using the appointment's own date.
func Filename(ev Event) string {
	if ev.StartAt.IsZero() {
		return "consultation.ics"
	}
	return "consultation-" + ev.StartAt.Format(booking.DateLayout) + ".ics"
}
