package booking

import (
	"fmt"
	"sort"
	"time"
)

// PastSlotLabel explains why a slot of the current day cannot be chosen.
const PastSlotLabel = "This time has already passed"

// SlotsErrorMessage replaces the slot grid when the slot fetch fails.
const SlotsErrorMessage = "Error loading time slots. Please try again."

// TimeSlot is a bookable interval produced by the availability gateway.
type TimeSlot struct {
	ID              string
	StartTime       string // "HH:MM", 24-hour
	EndTime         string
	DurationMinutes int
	Label           string
}

// DisplayLabel returns the gateway label or "start - end".
func (s TimeSlot) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.StartTime + " - " + s.EndTime
}

// SlotSet is the gateway answer for one date.
type SlotSet struct {
	Slots       []TimeSlot
	IsToday     bool
	CurrentTime string
}

// SlotView is a slot as projected for display.
type SlotView struct {
	TimeSlot
	Disabled       bool
	DisabledReason string
	Selected       bool
}

// SortSlots returns a copy ordered by start time. HH:MM compares
// lexicographically.
func SortSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// PrepareSlots sorts slots and, when date is the current day, disables
// every slot whose start is not strictly after now.
func PrepareSlots(date string, slots []TimeSlot, now time.Time) []SlotView {
	sorted := SortSlots(slots)
	isToday := date == now.Format(DateLayout)

	views := make([]SlotView, 0, len(sorted))
	for _, slot := range sorted {
		view := SlotView{TimeSlot: slot}
		if isToday {
			start, err := CombineDateTime(date, slot.StartTime, now.Location())
			if err != nil || !start.After(now) {
				view.Disabled = true
				view.DisabledReason = PastSlotLabel
			}
		}
		views = append(views, view)
	}
	return views
}

// EmptySlotsMessage is shown in place of an empty slot grid.
func EmptySlotsMessage(isToday bool, currentTime string) string {
	if isToday && currentTime != "" {
		return fmt.Sprintf("No available slots for today (%s). Please select another date.", currentTime)
	}
	return "No available slots for this date. Please select another date."
}
