// Package booking holds the consultation booking workflow as plain state:
// the month grid, the slot list for a date, the single selection and the
// submission preconditions. It performs no I/O; callers fetch from the
// availability gateway and feed results back through tickets.
package booking

import (
	"fmt"
	"time"
)

// Month is a displayed calendar month. Month is zero based (0 = January).
type Month struct {
	Year  int
	Month int
}

// NewMonth returns a normalized month, carrying overflow into the year.
func NewMonth(year, month int) Month {
	return Month{Year: year, Month: month}.Normalize()
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month()) - 1}
}

// Normalize wraps Month into 0..11, adjusting Year.
func (m Month) Normalize() Month {
	total := m.Year*12 + m.Month
	year := total / 12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	return Month{Year: year, Month: month}
}

func (m Month) Prev() Month { return NewMonth(m.Year, m.Month-1) }

func (m Month) Next() Month { return NewMonth(m.Year, m.Month+1) }

// Number is the 1-based month number sent to the gateway.
func (m Month) Number() int { return m.Month + 1 }

// First returns midnight of the 1st in loc.
func (m Month) First(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(m.Year, time.Month(m.Month+1), 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, time.Month(m.Month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartingWeekday is the weekday index of the 1st, 0 = Sunday.
func (m Month) StartingWeekday() int {
	return int(m.First(time.UTC).Weekday())
}

// Key renders "2025-06".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month+1)
}

// Label renders "June 2025".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", time.Month(m.Month+1), m.Year)
}

// Availability is the tri-state availability of a date cell.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityUnavailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// DateCell is one position in the month grid. Leading padding cells have
// an empty Date.
type DateCell struct {
	Date         string
	Day          int
	IsPast       bool
	IsToday      bool
	IsSelected   bool
	Availability Availability
}

// Empty reports whether the cell is leading padding.
func (c DateCell) Empty() bool { return c.Date == "" }

// Clickable reports whether a click on the cell may select its date.
func (c DateCell) Clickable() bool { return !c.Empty() && !c.IsPast }

// DayAvailability is one entry of a month availability response.
type DayAvailability struct {
	Date            string
	HasAvailability bool
}

// RenderMonth builds the grid for m: StartingWeekday empty cells followed by
// one cell per day. today is the caller's current local time.
func RenderMonth(m Month, selectedDate string, today time.Time) []DateCell {
	m = m.Normalize()
	todayISO := today.Format(DateLayout)
	lead := m.StartingWeekday()
	days := m.DaysIn()

	cells := make([]DateCell, lead, lead+days)
	for day := 1; day <= days; day++ {
		iso := fmt.Sprintf("%04d-%02d-%02d", m.Year, m.Month+1, day)
		cells = append(cells, DateCell{
			Date:       iso,
			Day:        day,
			IsPast:     iso < todayISO,
			IsToday:    iso == todayISO,
			IsSelected: selectedDate != "" && iso == selectedDate,
		})
	}
	return cells
}

// MergeAvailability applies a month availability response to cells. Past
// and padding cells are left untouched; dates missing from days keep their
// current state.
func MergeAvailability(cells []DateCell, days []DayAvailability) {
	index := make(map[string]bool, len(days))
	for _, d := range days {
		index[d.Date] = d.HasAvailability
	}
	for i := range cells {
		if !cells[i].Clickable() {
			continue
		}
		has, ok := index[cells[i].Date]
		if !ok {
			continue
		}
		if has {
			cells[i].Availability = AvailabilityAvailable
		} else {
			cells[i].Availability = AvailabilityUnavailable
		}
	}
}

// MarkUnavailable flips every non-past date cell to unavailable; used when
// the month availability request fails.
func MarkUnavailable(cells []DateCell) {
	for i := range cells {
		if cells[i].Clickable() {
			cells[i].Availability = AvailabilityUnavailable
		}
	}
}
