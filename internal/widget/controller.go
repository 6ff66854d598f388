// Package widget drives a booking session against the availability
// gateway. State changes happen synchronously under one lock; network
// calls run outside it and their results are applied through tickets so a
// late answer for an abandoned month or date is dropped.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/calendarfile"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// Gateway is the subset of the availability service the widget needs.
type Gateway interface {
	MonthAvailability(ctx context.Context, year, month, durationMinutes int) ([]booking.DayAvailability, error)
	DaySlots(ctx context.Context, date string, durationMinutes int) (booking.SlotSet, error)
	SubmitBooking(ctx context.Context, sub booking.Submission) (string, error)
}

// ErrStale is returned when a result arrived for a superseded request.
var ErrStale = errors.New("widget: result superseded by a newer request")

// Options configures a Controller.
type Options struct {
	DurationMinutes int
	Timeout         time.Duration
	Now             func() time.Time
	Logger          *logging.Logger

	// Summary and description of exported calendar events.
	EventTitle       string
	EventDescription string
}

// Controller owns one booking session.
type Controller struct {
	mu      sync.Mutex
	session *booking.Session

	gateway Gateway
	timeout time.Duration
	now     func() time.Time
	logger  *logging.Logger
	title   string
	about   string
}

func New(gw Gateway, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Controller{
		session: booking.NewSession(opts.DurationMinutes, opts.Now),
		gateway: gw,
		timeout: opts.Timeout,
		now:     opts.Now,
		logger:  opts.Logger,
		title:   opts.EventTitle,
		about:   opts.EventDescription,
	}
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() booking.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Open renders the current month and starts a preview of today's slots.
// The returned tickets must be passed to LoadMonth and LoadSlots.
func (c *Controller) Open() (booking.MonthTicket, booking.SlotTicket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := c.session.ShowMonth(booking.MonthOf(c.now()))
	st := c.session.PreviewDate(c.now().Format(booking.DateLayout))
	return mt, st
}

// Start opens the widget and performs both initial loads.
func (c *Controller) Start(ctx context.Context) error {
	mt, st := c.Open()
	var wg sync.WaitGroup
	var monthErr, slotsErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		monthErr = c.LoadMonth(ctx, mt)
	}()
	go func() {
		defer wg.Done()
		slotsErr = c.LoadSlots(ctx, st)
	}()
	wg.Wait()
	return errors.Join(ignoreStale(monthErr), ignoreStale(slotsErr))
}

func (c *Controller) PrevMonth() booking.MonthTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.PrevMonth()
}

func (c *Controller) NextMonth() booking.MonthTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.NextMonth()
}

// LoadMonth fetches availability for the ticket's month and applies it.
func (c *Controller) LoadMonth(ctx context.Context, t booking.MonthTicket) error {
	c.mu.Lock()
	duration := c.session.Duration()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	days, err := c.gateway.MonthAvailability(ctx, t.Month.Year, t.Month.Number(), duration)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.ApplyMonthAvailability(t, days, err) {
		c.logger.Debug("widget: dropped stale month availability", "month", t.Month.Key())
		return ErrStale
	}
	if err != nil {
		c.logger.Warn("widget: month availability failed", "month", t.Month.Key(), "error", err)
	}
	return err
}

// ChooseDate selects date and returns the ticket for its slot fetch.
func (c *Controller) ChooseDate(date string) (booking.SlotTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.SelectDate(date)
}

// LoadSlots fetches the slots for the ticket's date and applies them.
func (c *Controller) LoadSlots(ctx context.Context, t booking.SlotTicket) error {
	c.mu.Lock()
	duration := c.session.Duration()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	set, err := c.gateway.DaySlots(ctx, t.Date, duration)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.ApplySlots(t, set, err) {
		c.logger.Debug("widget: dropped stale slots", "date", t.Date)
		return ErrStale
	}
	if err != nil {
		c.logger.Warn("widget: slot fetch failed", "date", t.Date, "error", err)
	}
	return err
}

// SelectDate chooses date and waits for its slots.
func (c *Controller) SelectDate(ctx context.Context, date string) error {
	t, err := c.ChooseDate(date)
	if err != nil {
		return err
	}
	return c.LoadSlots(ctx, t)
}

func (c *Controller) SelectSlot(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.SelectSlot(id)
}

func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clear()
}

// BeginSubmit validates and locks the form for submission.
func (c *Controller) BeginSubmit(form booking.FormData) (booking.SubmitTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.BeginSubmit(form)
}

// CompleteSubmit sends the ticket's booking and applies the outcome.
func (c *Controller) CompleteSubmit(ctx context.Context, t booking.SubmitTicket) (*booking.Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	id, err := c.gateway.SubmitBooking(ctx, t.Submission)

	c.mu.Lock()
	defer c.mu.Unlock()
	conf, err := c.session.FinishSubmit(t, id, err)
	if err != nil {
		c.logger.Warn("widget: booking failed", "date", t.Submission.Date, "time", t.Submission.Slot.StartTime, "error", err)
		return nil, err
	}
	c.logger.Info("widget: booking confirmed", "booking_id", conf.BookingID, "date", conf.Date, "time", conf.StartTime)
	return conf, nil
}

// Submit validates, sends and applies a booking in one call.
func (c *Controller) Submit(ctx context.Context, form booking.FormData) (*booking.Confirmation, error) {
	t, err := c.BeginSubmit(form)
	if err != nil {
		return nil, err
	}
	return c.CompleteSubmit(ctx, t)
}

// ExportCalendar renders the confirmed booking as an .ics document.
func (c *Controller) ExportCalendar() (string, []byte, error) {
	c.mu.Lock()
	snap := c.session.Snapshot()
	c.mu.Unlock()
	if snap.Confirmation == nil {
		return "", nil, errors.New("widget: no confirmed booking to export")
	}
	ev := calendarfile.FromConfirmation(*snap.Confirmation, c.title, c.about)
	data, err := calendarfile.Build(ev)
	if err != nil {
		return "", nil, err
	}
	return calendarfile.Filename(ev), data, nil
}

func ignoreStale(err error) error {
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}
