package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/consultation-booking/internal/booking"
)

var weekdays = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

func (m *Model) View() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Book a %d-minute consultation", snap.DurationMinutes)))
	b.WriteString("\n\n")

	left := m.renderCalendar(snap)
	right := m.renderSlots(snap)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	b.WriteString("\n")
	b.WriteString(renderSummary(snap.Summary))
	b.WriteString("\n")

	if snap.Confirmation != nil {
		b.WriteString(renderConfirmation(*snap.Confirmation))
	} else {
		b.WriteString(m.renderForm(snap))
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case snap.LastErr != nil:
		b.WriteString(errStyle.Render(userMessage(snap.LastErr)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(okStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m *Model) renderCalendar(snap booking.Snapshot) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("< " + snap.Month.Label() + " >"))
	b.WriteString("\n")
	for _, d := range weekdays {
		b.WriteString(headerStyle.Render(d))
	}
	b.WriteString("\n")

	for i, cell := range snap.Cells {
		if i > 0 && i%7 == 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderCell(cell, m.pane == paneCalendar && i == m.cursor))
	}
	b.WriteString("\n")
	if snap.MonthErr != nil {
		b.WriteString(errStyle.Render("Could not load availability"))
		b.WriteString("\n")
	}

	style := paneStyle
	if m.pane == paneCalendar {
		style = activePane
	}
	return style.Render(b.String())
}

func renderCell(cell booking.DateCell, cursor bool) string {
	if cell.Empty() {
		return dayStyle.Render("")
	}
	label := fmt.Sprintf("%2d", cell.Day)
	if cell.IsToday {
		label += "*"
	}
	if cursor {
		label = cursorStyle.Render(label)
	}

	switch {
	case cell.IsSelected:
		return selectedStyle.Render(label)
	case cell.IsPast:
		return pastStyle.Render(label)
	case cell.Availability == booking.AvailabilityAvailable:
		return availStyle.Render(label)
	case cell.Availability == booking.AvailabilityUnavailable:
		return unavailStyle.Render(label)
	default:
		return dayStyle.Render(label)
	}
}

func (m *Model) renderSlots(snap booking.Snapshot) string {
	var b strings.Builder
	heading := "Available times"
	if snap.SlotsDate != "" {
		heading = booking.LongDate(snap.SlotsDate)
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(heading))
	b.WriteString("\n")

	switch {
	case snap.SlotsLoading:
		b.WriteString(hintStyle.Render("Loading available times..."))
	case snap.SlotsMessage != "":
		b.WriteString(hintStyle.Render(snap.SlotsMessage))
	default:
		for i, s := range snap.Slots {
			line := s.DisplayLabel()
			if m.pane == paneSlots && i == m.slotCursor {
				line = "> " + line
			} else {
				line = "  " + line
			}
			switch {
			case s.Disabled:
				b.WriteString(slotDisabledStyle.Render(line + " (" + s.DisabledReason + ")"))
			case s.Selected:
				b.WriteString(slotSelectedStyle.Render(line))
			default:
				b.WriteString(slotStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	style := paneStyle
	if m.pane == paneSlots {
		style = activePane
	}
	return style.Render(b.String())
}

func renderSummary(sum booking.Summary) string {
	return labelStyle.Render("Date") + sum.DateText + "\n" + labelStyle.Render("Time") + sum.TimeText + "\n"
}

func (m *Model) renderForm(snap booking.Snapshot) string {
	var b strings.Builder
	for i, in := range m.inputs {
		label := labelStyle
		if m.pane == paneForm && i == m.focus {
			label = focusedLabel
		}
		b.WriteString(label.Render(fieldLabels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Mode"))
	b.WriteString(modes[m.modeIdx])
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Newsletter"))
	b.WriteString(checkbox(m.newsletter))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Terms *"))
	b.WriteString(checkbox(m.terms) + " I agree to the Terms of Service and Privacy Policy")
	b.WriteString("\n")
	if snap.Submitting {
		b.WriteString(hintStyle.Render("Submitting..."))
		b.WriteString("\n")
	}

	style := paneStyle
	if m.pane == paneForm {
		style = activePane
	}
	return style.Render(b.String())
}

func renderConfirmation(c booking.Confirmation) string {
	var b strings.Builder
	b.WriteString(okStyle.Render("Booking confirmed"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Reference") + c.BookingID + "\n")
	b.WriteString(labelStyle.Render("Date") + c.DateText() + "\n")
	b.WriteString(labelStyle.Render("Time") + c.TimeText() + "\n")
	b.WriteString(labelStyle.Render("Duration") + fmt.Sprintf("%d minutes", c.DurationMinutes) + "\n")
	b.WriteString(hintStyle.Render("ctrl+e adds it to your calendar"))
	return activePane.Render(b.String())
}

func (m *Model) renderHelp() string {
	var keys string
	switch m.pane {
	case paneCalendar:
		keys = "arrows move  enter pick date  [ ] month  x clear  tab times  q quit"
	case paneSlots:
		keys = "up/down move  enter pick time  x clear  tab form  esc calendar  q quit"
	default:
		keys = "tab next field  ctrl+o mode  ctrl+n newsletter  ctrl+t terms  ctrl+s submit  esc calendar"
	}
	return hintStyle.Render(keys)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// userMessage prefers the user-facing text of booking errors.
func userMessage(err error) string {
	switch e := err.(type) {
	case *booking.ValidationError:
		return e.Message
	case *booking.SubmissionError:
		return e.Error()
	case *booking.AvailabilityError:
		if e.Scope == "slots" {
			return booking.SlotsErrorMessage
		}
		return "Could not load availability"
	default:
		return err.Error()
	}
}
