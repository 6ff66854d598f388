package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date used on the wire and in cells.
	DateLayout = "2006-01-02"
	// ClockLayout is the 24-hour slot start/end format.
	ClockLayout = "15:04"

	longDateLayout  = "Monday, January 2, 2006"
	shortDateLayout = "Jan 2, 2006"
	clockLabel      = "3:04 PM"
)

// ParseDate parses an ISO date at midnight in loc.
func ParseDate(iso string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(iso), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	return t, nil
}

// CombineDateTime joins an ISO date and an HH:MM start into one instant.
func CombineDateTime(iso, hhmm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, strings.TrimSpace(iso)+" "+strings.TrimSpace(hhmm), loc)
}

// LongDate renders "Tuesday, June 10, 2025". Unparseable input is returned as is.
func LongDate(iso string) string {
	t, err := time.Parse(DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(longDateLayout)
}

// ShortDate renders "Jun 10, 2025".
func ShortDate(iso string) string {
	t, err := time.Parse(DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(shortDateLayout)
}

// ClockLabel renders a 24-hour "HH:MM" as "10:30 AM".
func ClockLabel(hhmm string) string {
	t, err := time.Parse(ClockLayout, hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format(clockLabel)
}

// DurationKey returns the package key used in booking URLs, e.g. "45-min".
func DurationKey(minutes int) string {
	return strconv.Itoa(minutes) + "-min"
}

// ParseDurationKey accepts "45-min" or "45".
func ParseDurationKey(key string) (int, bool) {
	key = strings.TrimSuffix(strings.TrimSpace(key), "-min")
	minutes, err := strconv.Atoi(key)
	if err != nil || minutes <= 0 {
		return 0, false
	}
	return minutes, true
}
