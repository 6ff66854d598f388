package tui

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/widget"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

type stubGateway struct {
	submitted []booking.Submission
}

func (s *stubGateway) MonthAvailability(_ context.Context, _, _, _ int) ([]booking.DayAvailability, error) {
	return []booking.DayAvailability{{Date: "2025-06-10", HasAvailability: true}}, nil
}

func (s *stubGateway) DaySlots(_ context.Context, date string, _ int) (booking.SlotSet, error) {
	id := strings.ReplaceAll(date, "-", "")
	return booking.SlotSet{Slots: []booking.TimeSlot{
		{ID: id + "0900", StartTime: "09:00", EndTime: "09:45", DurationMinutes: 45},
		{ID: id + "1100", StartTime: "11:00", EndTime: "11:45", DurationMinutes: 45},
	}}, nil
}

func (s *stubGateway) SubmitBooking(_ context.Context, sub booking.Submission) (string, error) {
	s.submitted = append(s.submitted, sub)
	return "55", nil
}

func newTestModel(t *testing.T) (*Model, *stubGateway) {
	t.Helper()
	gw := &stubGateway{}
	ctrl := widget.New(gw, widget.Options{
		DurationMinutes: 45,
		Now:             func() time.Time { return time.Date(2025, 6, 10, 10, 20, 0, 0, time.UTC) },
		Logger:          logging.Discard(),
	})
	m := New(context.Background(), ctrl, t.TempDir())
	run(m, m.Init())
	return m, gw
}

// run executes cmd and feeds every resulting message back into the model.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			run(m, c)
		}
		return
	}
	_, next := m.Update(msg)
	run(m, next)
}

func press(m *Model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		_, cmd := m.Update(k)
		run(m, cmd)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitShowsTodayPreview(t *testing.T) {
	m, _ := newTestModel(t)
	snap := m.ctrl.Snapshot()

	assert.Equal(t, "2025-06-10", snap.Cells[m.cursor].Date)
	assert.Equal(t, "2025-06-10", snap.SlotsDate)
	require.Len(t, snap.Slots, 2)
	assert.True(t, snap.Slots[0].Disabled)

	view := m.View()
	assert.Contains(t, view, "June 2025")
	assert.Contains(t, view, "No date selected")
	assert.Contains(t, view, booking.PastSlotLabel)
}

func TestKeyboardBookingFlow(t *testing.T) {
	m, gw := newTestModel(t)

	press(m, runes("l"), tea.KeyMsg{Type: tea.KeyEnter})
	snap := m.ctrl.Snapshot()
	assert.Equal(t, "2025-06-11", snap.Selection.Date)
	assert.Equal(t, paneSlots, m.pane)

	press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	snap = m.ctrl.Snapshot()
	require.NotNil(t, snap.Selection.Slot)
	assert.Equal(t, "11:00", snap.Selection.Slot.StartTime)
	assert.Equal(t, paneForm, m.pane)

	m.inputs[fieldName].SetValue("Asha Rao")
	m.inputs[fieldEmail].SetValue("asha@example.com")
	m.inputs[fieldPhone].SetValue("9876543210")
	m.inputs[fieldTopic].SetValue("Annual compliance review")

	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "Please agree to the Terms of Service and Privacy Policy", userMessage(m.ctrl.Snapshot().LastErr))
	assert.Empty(t, gw.submitted)

	press(m, tea.KeyMsg{Type: tea.KeyCtrlT}, tea.KeyMsg{Type: tea.KeyCtrlO}, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Len(t, gw.submitted, 1)
	assert.Equal(t, booking.ModePhone, gw.submitted[0].Form.Mode)
	assert.Equal(t, "Booking 55 confirmed", m.status)
	assert.Contains(t, m.View(), "Wednesday, June 11, 2025")
	assert.Empty(t, m.inputs[fieldName].Value())

	var written string
	m.writeFile = func(path string, data []byte, _ os.FileMode) error {
		written = path
		assert.Contains(t, string(data), "BEGIN:VEVENT")
		return nil
	}
	press(m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.True(t, strings.HasSuffix(written, "consultation-2025-06-11.ics"))
	assert.Contains(t, m.status, "consultation-2025-06-11.ics")
}

func TestPastCellIsNotSelectable(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, runes("h"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.ctrl.Snapshot().Selection.Date)
	assert.Equal(t, paneCalendar, m.pane)
}

func TestMonthKeysNavigate(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, runes("]"))
	assert.Equal(t, "July 2025", m.ctrl.Snapshot().Month.Label())
	assert.Equal(t, "2025-07-01", m.ctrl.Snapshot().Cells[m.cursor].Date)
	press(m, runes("["), runes("["))
	assert.Equal(t, "May 2025", m.ctrl.Snapshot().Month.Label())
}

func TestClearKey(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, runes("l"), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEsc}, runes("x"))
	snap := m.ctrl.Snapshot()
	assert.Empty(t, snap.Selection.Date)
	assert.Equal(t, "No time selected", snap.Summary.TimeText)
}

func TestMissingDocumentReported(t *testing.T) {
	m, gw := newTestModel(t)
	m.inputs[fieldDocuments].SetValue("/does/not/exist.pdf")
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "exist.pdf")
	assert.Empty(t, gw.submitted)
}
