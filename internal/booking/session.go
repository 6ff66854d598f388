package booking

import (
	"errors"
	"fmt"
	"time"
)

// DefaultDurationMinutes is used when no valid package duration is given.
const DefaultDurationMinutes = 45

// State is the coarse position of a session in the booking workflow.
type State int

const (
	StateIdle State = iota
	StateDateChosen
	StateTimeChosen
	StateSubmitting
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDateChosen:
		return "date_chosen"
	case StateTimeChosen:
		return "time_chosen"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MonthTicket tags a month availability request. Results for a ticket
// older than the most recently displayed month are dropped.
type MonthTicket struct {
	Month Month
	Seq   uint64
}

// SlotTicket tags a slot request with the date it was issued for.
type SlotTicket struct {
	Date string
	Seq  uint64
}

// Submission is everything the gateway needs to create a booking.
type Submission struct {
	Form    FormData
	Date    string
	Slot    TimeSlot
	StartAt time.Time
}

// AppointmentDatetime renders the combined start as "2025-06-10T10:30:00".
func (s Submission) AppointmentDatetime() string {
	return s.StartAt.Format("2006-01-02T15:04:05")
}

// SubmitTicket tags an outstanding submission.
type SubmitTicket struct {
	Seq        uint64
	Submission Submission
}

// Selection is the current date and, optionally, the chosen slot.
type Selection struct {
	Date string
	Slot *TimeSlot
}

// Summary is the selection as shown next to the form, plus the hidden
// field values posted with the booking.
type Summary struct {
	DateText string
	TimeText string

	SelectedDate        string
	SelectedTime        string
	SelectedSlotID      string
	AppointmentDatetime string
}

const (
	noDateText = "No date selected"
	noTimeText = "No time selected"
)

// Snapshot is a read-only copy of everything a renderer needs.
type Snapshot struct {
	State           State
	Month           Month
	Cells           []DateCell
	MonthErr        error
	DurationMinutes int

	SlotsDate    string
	SlotsLoading bool
	Slots        []SlotView
	SlotsMessage string

	Selection    Selection
	Summary      Summary
	Submitting   bool
	LastErr      error
	Confirmation *Confirmation
}

// Session is the booking workflow state for one visitor. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	now      func() time.Time
	duration int

	month    Month
	cells    []DateCell
	monthSeq uint64
	monthErr error

	selectedDate string
	selectedSlot *TimeSlot

	slotsDate    string
	slotsSeq     uint64
	slotsLoading bool
	slots        []SlotView
	slotsMessage string

	state        State
	resumeState  State
	submitSeq    uint64
	submitting   bool
	lastErr      error
	confirmation *Confirmation
}

// NewSession starts at the current month with nothing selected.
func NewSession(durationMinutes int, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	s := &Session{now: now, duration: durationMinutes, state: StateIdle}
	s.month = MonthOf(now())
	s.cells = RenderMonth(s.month, "", now())
	return s
}

func (s *Session) Duration() int { return s.duration }

func (s *Session) State() State { return s.state }

func (s *Session) Month() Month { return s.month }

// Location is the zone the session treats as local.
func (s *Session) Location() *time.Location { return s.now().Location() }

// ShowMonth renders m and returns the ticket its availability fetch must
// carry.
func (s *Session) ShowMonth(m Month) MonthTicket {
	s.month = m.Normalize()
	s.cells = RenderMonth(s.month, s.selectedDate, s.now())
	s.monthErr = nil
	s.monthSeq++
	return MonthTicket{Month: s.month, Seq: s.monthSeq}
}

func (s *Session) PrevMonth() MonthTicket { return s.ShowMonth(s.month.Prev()) }

func (s *Session) NextMonth() MonthTicket { return s.ShowMonth(s.month.Next()) }

// ApplyMonthAvailability merges a month availability result. It reports
// false when the ticket is stale and nothing changed. A non-nil err marks
// every non-past date unavailable.
func (s *Session) ApplyMonthAvailability(t MonthTicket, days []DayAvailability, err error) bool {
	if t.Seq != s.monthSeq || t.Month != s.month {
		return false
	}
	if err != nil {
		MarkUnavailable(s.cells)
		s.monthErr = wrapAvailability("month", t.Month.Key(), err)
		return true
	}
	MergeAvailability(s.cells, days)
	return true
}

// PreviewDate shows the slots of date without selecting it; used to show
// today's slots when the widget opens. The selection is untouched.
func (s *Session) PreviewDate(date string) SlotTicket {
	return s.beginSlots(date)
}

// SelectDate selects a clickable date, clears any chosen time and returns
// the ticket for the slot fetch.
func (s *Session) SelectDate(date string) (SlotTicket, error) {
	if s.submitting {
		return SlotTicket{}, ErrSubmitInProgress
	}
	day, err := ParseDate(date, s.Location())
	if err != nil {
		return SlotTicket{}, err
	}
	iso := day.Format(DateLayout)
	if iso < s.now().Format(DateLayout) {
		return SlotTicket{}, ErrPastDate
	}

	s.selectedDate = iso
	s.selectedSlot = nil
	s.confirmation = nil
	s.lastErr = nil
	s.state = StateDateChosen
	s.markSelectedCell()
	return s.beginSlots(iso), nil
}

func (s *Session) beginSlots(date string) SlotTicket {
	s.slotsSeq++
	s.slotsDate = date
	s.slotsLoading = true
	s.slots = nil
	s.slotsMessage = ""
	return SlotTicket{Date: date, Seq: s.slotsSeq}
}

// ApplySlots installs a slot result. It reports false when the ticket is
// stale: a later date was requested after this one.
func (s *Session) ApplySlots(t SlotTicket, set SlotSet, err error) bool {
	if t.Seq != s.slotsSeq || t.Date != s.slotsDate {
		return false
	}
	s.slotsLoading = false
	if err != nil {
		s.slots = nil
		s.slotsMessage = SlotsErrorMessage
		s.lastErr = wrapAvailability("slots", t.Date, err)
		return true
	}
	s.slots = PrepareSlots(t.Date, set.Slots, s.now())
	if len(s.slots) == 0 {
		s.slotsMessage = EmptySlotsMessage(set.IsToday, set.CurrentTime)
	}
	return true
}

// SelectSlot chooses the slot with id from the slot set loaded for the
// selected date. With no date selected, a slot from the previewed date
// selects that date too.
func (s *Session) SelectSlot(id string) error {
	if s.submitting {
		return ErrSubmitInProgress
	}
	date := s.selectedDate
	if date == "" {
		if s.slotsDate == "" || s.slotsDate < s.now().Format(DateLayout) {
			return ErrNoDateSelected
		}
		date = s.slotsDate
	}
	if s.slotsLoading || s.slotsDate != date {
		return ErrSlotNotFound
	}

	idx := -1
	for i := range s.slots {
		if s.slots[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSlotNotFound
	}
	if s.slots[idx].Disabled {
		return ErrSlotDisabled
	}

	for i := range s.slots {
		s.slots[i].Selected = i == idx
	}
	if s.selectedDate == "" {
		s.selectedDate = date
		s.confirmation = nil
		s.markSelectedCell()
	}
	slot := s.slots[idx].TimeSlot
	s.selectedSlot = &slot
	s.state = StateTimeChosen
	s.lastErr = nil
	return nil
}

// Clear drops the selection. The displayed slot list stays, deselected.
func (s *Session) Clear() error {
	if s.submitting {
		return ErrSubmitInProgress
	}
	s.selectedDate = ""
	s.selectedSlot = nil
	s.confirmation = nil
	s.lastErr = nil
	s.state = StateIdle
	s.markSelectedCell()
	for i := range s.slots {
		s.slots[i].Selected = false
	}
	return nil
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() Selection {
	sel := Selection{Date: s.selectedDate}
	if s.selectedSlot != nil {
		slot := *s.selectedSlot
		sel.Slot = &slot
	}
	return sel
}

// Summary describes the selection for display and for hidden form fields.
func (s *Session) Summary() Summary {
	sum := Summary{DateText: noDateText, TimeText: noTimeText}
	if s.selectedDate == "" {
		return sum
	}
	sum.DateText = ShortDate(s.selectedDate)
	if s.selectedSlot == nil {
		return sum
	}
	slot := s.selectedSlot
	sum.TimeText = fmt.Sprintf("%s (%d min)", ClockLabel(slot.StartTime), s.slotDuration(*slot))
	sum.SelectedDate = s.selectedDate
	sum.SelectedTime = slot.StartTime
	sum.SelectedSlotID = slot.ID
	if start, err := CombineDateTime(s.selectedDate, slot.StartTime, s.Location()); err == nil {
		sum.AppointmentDatetime = start.Format("2006-01-02T15:04:05")
	}
	return sum
}

func (s *Session) slotDuration(slot TimeSlot) int {
	if slot.DurationMinutes > 0 {
		return slot.DurationMinutes
	}
	return s.duration
}

// BeginSubmit validates form against the selection and, on success, moves
// to Submitting. Only one submission may be outstanding.
func (s *Session) BeginSubmit(form FormData) (SubmitTicket, error) {
	if s.submitting {
		return SubmitTicket{}, ErrSubmitInProgress
	}
	sel := s.Selection()
	if err := ValidateSubmission(form, sel); err != nil {
		s.lastErr = err
		return SubmitTicket{}, err
	}
	start, err := CombineDateTime(sel.Date, sel.Slot.StartTime, s.Location())
	if err != nil {
		verr := &ValidationError{Field: "selected_time", Message: "Please select a time for your appointment"}
		s.lastErr = verr
		return SubmitTicket{}, verr
	}

	form = form.Trimmed()
	if form.DurationMinutes <= 0 {
		form.DurationMinutes = s.slotDuration(*sel.Slot)
	}

	s.submitSeq++
	s.submitting = true
	s.resumeState = s.state
	s.state = StateSubmitting
	s.lastErr = nil

	sub := Submission{Form: form, Date: sel.Date, Slot: *sel.Slot, StartAt: start}
	return SubmitTicket{Seq: s.submitSeq, Submission: sub}, nil
}

// FinishSubmit applies the gateway result for t. On success the selection
// is reset and the confirmation returned; on failure the selection is kept
// and the error recorded for display.
func (s *Session) FinishSubmit(t SubmitTicket, bookingID string, err error) (*Confirmation, error) {
	if !s.submitting || t.Seq != s.submitSeq {
		return nil, ErrNotSubmitting
	}
	s.submitting = false

	if err == nil && bookingID == "" {
		err = &SubmissionError{Message: GenericSubmissionMessage, Err: errors.New("empty booking id")}
	}
	if err != nil {
		var serr *SubmissionError
		if !errors.As(err, &serr) {
			err = &SubmissionError{Message: GenericSubmissionMessage, Err: err}
		}
		s.state = s.resumeState
		s.lastErr = err
		return nil, err
	}

	conf := NewConfirmation(bookingID, t.Submission, s.slotDuration(t.Submission.Slot))
	s.selectedDate = ""
	s.selectedSlot = nil
	s.markSelectedCell()
	for i := range s.slots {
		s.slots[i].Selected = false
	}
	s.state = StateConfirmed
	s.confirmation = &conf
	return &conf, nil
}

// Snapshot copies the session for rendering.
func (s *Session) Snapshot() Snapshot {
	cells := make([]DateCell, len(s.cells))
	copy(cells, s.cells)
	slots := make([]SlotView, len(s.slots))
	copy(slots, s.slots)

	snap := Snapshot{
		State:           s.state,
		Month:           s.month,
		Cells:           cells,
		MonthErr:        s.monthErr,
		DurationMinutes: s.duration,
		SlotsDate:       s.slotsDate,
		SlotsLoading:    s.slotsLoading,
		Slots:           slots,
		SlotsMessage:    s.slotsMessage,
		Selection:       s.Selection(),
		Summary:         s.Summary(),
		Submitting:      s.submitting,
		LastErr:         s.lastErr,
	}
	if s.confirmation != nil {
		conf := *s.confirmation
		snap.Confirmation = &conf
	}
	return snap
}

func (s *Session) markSelectedCell() {
	for i := range s.cells {
		s.cells[i].IsSelected = s.selectedDate != "" && s.cells[i].Date == s.selectedDate
	}
}

func wrapAvailability(scope, key string, err error) error {
	var aerr *AvailabilityError
	if errors.As(err, &aerr) {
		return aerr
	}
	return &AvailabilityError{Scope: scope, Key: key, Err: err}
}
