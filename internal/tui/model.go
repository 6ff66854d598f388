// Package tui is a terminal front end for the booking widget.
package tui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/widget"
)

type pane int

const (
	paneCalendar pane = iota
	paneSlots
	paneForm
)

const (
	fieldName = iota
	fieldEmail
	fieldPhone
	fieldCompany
	fieldDesignation
	fieldTopic
	fieldDocuments
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Name *", "Email *", "Phone *", "Company", "Designation", "Topic *", "Documents",
}

var modes = []string{booking.ModeVideo, booking.ModePhone, booking.ModeInPerson}

// Messages
type monthLoadedMsg struct{ err error }

type slotsLoadedMsg struct{ err error }

type submittedMsg struct {
	conf *booking.Confirmation
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

// Model is the bubbletea model wrapping a widget controller.
type Model struct {
	ctx       context.Context
	ctrl      *widget.Controller
	exportDir string
	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte, os.FileMode) error

	pane       pane
	cursor     int
	slotCursor int
	inputs     []textinput.Model
	focus      int
	modeIdx    int
	terms      bool
	newsletter bool

	status string
	err    error
	width  int
}

// New builds a model. Exported calendar files are written to exportDir.
func New(ctx context.Context, ctrl *widget.Controller, exportDir string) *Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 200
		inputs[i] = in
	}
	inputs[fieldTopic].CharLimit = booking.MaxTopicLength
	inputs[fieldEmail].Placeholder = "you@example.com"
	inputs[fieldDocuments].Placeholder = "comma separated file paths"
	inputs[fieldDocuments].CharLimit = 1000

	if exportDir == "" {
		exportDir = "."
	}
	return &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		exportDir: exportDir,
		readFile:  os.ReadFile,
		writeFile: os.WriteFile,
		inputs:    inputs,
	}
}

func (m *Model) Init() tea.Cmd {
	mt, st := m.ctrl.Open()
	m.cursor = m.todayCursor()
	return tea.Batch(m.loadMonth(mt), m.loadSlots(st))
}

func (m *Model) loadMonth(t booking.MonthTicket) tea.Cmd {
	return func() tea.Msg {
		return monthLoadedMsg{err: m.ctrl.LoadMonth(m.ctx, t)}
	}
}

func (m *Model) loadSlots(t booking.SlotTicket) tea.Cmd {
	return func() tea.Msg {
		return slotsLoadedMsg{err: m.ctrl.LoadSlots(m.ctx, t)}
	}
}

func (m *Model) completeSubmit(t booking.SubmitTicket) tea.Cmd {
	return func() tea.Msg {
		conf, err := m.ctrl.CompleteSubmit(m.ctx, t)
		return submittedMsg{conf: conf, err: err}
	}
}

func (m *Model) export() tea.Cmd {
	return func() tea.Msg {
		name, data, err := m.ctrl.ExportCalendar()
		if err != nil {
			return exportedMsg{err: err}
		}
		path := filepath.Join(m.exportDir, name)
		if err := m.writeFile(path, data, 0o644); err != nil {
			return exportedMsg{err: fmt.Errorf("write %s: %w", path, err)}
		}
		return exportedMsg{path: path}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case monthLoadedMsg, slotsLoadedMsg:
		// state already applied by the controller; the redraw is the point
		m.clampSlotCursor()
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.status = ""
			return m, nil
		}
		m.status = fmt.Sprintf("Booking %s confirmed", msg.conf.BookingID)
		m.resetForm()
		m.pane = paneCalendar
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "Calendar file saved to " + msg.path
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+s":
		return m, m.submit()
	case "ctrl+e":
		return m, m.export()
	}

	switch m.pane {
	case paneCalendar:
		return m.handleCalendarKey(msg)
	case paneSlots:
		return m.handleSlotsKey(msg)
	default:
		return m.handleFormKey(msg)
	}
}

func (m *Model) handleCalendarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cells := m.ctrl.Snapshot().Cells
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.pane = paneSlots
	case "left", "h":
		m.moveCursor(cells, -1)
	case "right", "l":
		m.moveCursor(cells, 1)
	case "up", "k":
		m.moveCursor(cells, -7)
	case "down", "j":
		m.moveCursor(cells, 7)
	case "[", "pgup":
		t := m.ctrl.PrevMonth()
		m.cursor = firstDayCursor(m.ctrl.Snapshot().Cells)
		return m, m.loadMonth(t)
	case "]", "pgdown":
		t := m.ctrl.NextMonth()
		m.cursor = firstDayCursor(m.ctrl.Snapshot().Cells)
		return m, m.loadMonth(t)
	case "enter", " ":
		if m.cursor < 0 || m.cursor >= len(cells) || !cells[m.cursor].Clickable() {
			return m, nil
		}
		t, err := m.ctrl.ChooseDate(cells[m.cursor].Date)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.slotCursor = 0
		m.pane = paneSlots
		return m, m.loadSlots(t)
	case "x":
		m.clear()
	}
	return m, nil
}

func (m *Model) handleSlotsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	slots := m.ctrl.Snapshot().Slots
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.pane = paneForm
		m.focusInput(m.focus)
	case "shift+tab", "esc":
		m.pane = paneCalendar
	case "up", "k":
		if m.slotCursor > 0 {
			m.slotCursor--
		}
	case "down", "j":
		if m.slotCursor < len(slots)-1 {
			m.slotCursor++
		}
	case "enter", " ":
		if m.slotCursor >= len(slots) {
			return m, nil
		}
		if err := m.ctrl.SelectSlot(slots[m.slotCursor].ID); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.pane = paneForm
		m.focusInput(m.focus)
	case "x":
		m.clear()
	}
	return m, nil
}

func (m *Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blurInputs()
		m.pane = paneCalendar
		return m, nil
	case "tab", "down":
		m.focusInput((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.focusInput((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "ctrl+t":
		m.terms = !m.terms
		return m, nil
	case "ctrl+n":
		m.newsletter = !m.newsletter
		return m, nil
	case "ctrl+o":
		m.modeIdx = (m.modeIdx + 1) % len(modes)
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	form, err := m.formData()
	if err != nil {
		m.err = err
		return nil
	}
	t, err := m.ctrl.BeginSubmit(form)
	if err != nil {
		// validation errors surface through the snapshot
		m.err = nil
		return nil
	}
	m.err = nil
	m.status = "Submitting booking..."
	return m.completeSubmit(t)
}

func (m *Model) formData() (booking.FormData, error) {
	form := booking.FormData{
		Name:          m.inputs[fieldName].Value(),
		Email:         m.inputs[fieldEmail].Value(),
		Phone:         m.inputs[fieldPhone].Value(),
		Company:       m.inputs[fieldCompany].Value(),
		Designation:   m.inputs[fieldDesignation].Value(),
		Topic:         m.inputs[fieldTopic].Value(),
		Mode:          modes[m.modeIdx],
		Newsletter:    m.newsletter,
		TermsAccepted: m.terms,
	}
	for _, path := range strings.Split(m.inputs[fieldDocuments].Value(), ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, err := m.readFile(path)
		if err != nil {
			return booking.FormData{}, fmt.Errorf("read document %s: %w", path, err)
		}
		form.Attachments = append(form.Attachments, booking.Attachment{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
	}
	return form, nil
}

func (m *Model) clear() {
	if err := m.ctrl.Clear(); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = ""
}

func (m *Model) resetForm() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.blurInputs()
	m.focus = 0
	m.terms = false
	m.newsletter = false
	m.modeIdx = 0
}

func (m *Model) focusInput(i int) {
	m.blurInputs()
	m.focus = i
	m.inputs[i].Focus()
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) moveCursor(cells []booking.DateCell, delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(cells) || cells[next].Empty() {
		return
	}
	m.cursor = next
}

func (m *Model) clampSlotCursor() {
	n := len(m.ctrl.Snapshot().Slots)
	if m.slotCursor >= n {
		m.slotCursor = n - 1
	}
	if m.slotCursor < 0 {
		m.slotCursor = 0
	}
}

func (m *Model) todayCursor() int {
	cells := m.ctrl.Snapshot().Cells
	for i, c := range cells {
		if c.IsToday {
			return i
		}
	}
	return firstDayCursor(cells)
}

func firstDayCursor(cells []booking.DateCell) int {
	for i, c := range cells {
		if c.Clickable() {
			return i
		}
	}
	for i, c := range cells {
		if !c.Empty() {
			return i
		}
	}
	return 0
}
