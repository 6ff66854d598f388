// Package availability computes bookable consultation slots from working
// hours and the bookings already on the calendar.
package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wolfman30/consultation-booking/internal/observability/metrics"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

const (
	DefaultDurationMinutes = 45

	dateLayout = "2006-01-02"
)

var ErrInvalidDate = errors.New("availability: invalid date")

// Booked is an appointment that occupies the calendar. Cancelled bookings
// must not be reported by a Source.
type Booked struct {
	Start   time.Time
	Minutes int
}

// Source lists the active bookings on a calendar day.
type Source interface {
	ActiveOnDate(ctx context.Context, date time.Time) ([]Booked, error)
}

// Config describes the working day.
type Config struct {
	OpenHour   int
	CloseHour  int
	Step       time.Duration
	Buffer     time.Duration
	ClosedDays []time.Weekday
	Location   *time.Location

	CacheSize int
	CacheTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.CloseHour <= c.OpenHour {
		c.OpenHour, c.CloseHour = 9, 17
	}
	if c.Step <= 0 {
		c.Step = 15 * time.Minute
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 512
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 2 * time.Minute
	}
	return c
}

// Slot is one bookable start time.
type Slot struct {
	ID              string
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// Display renders "09:00 AM - 09:45 AM".
func (s Slot) Display() string {
	return s.Start.Format("03:04 PM") + " - " + s.End.Format("03:04 PM")
}

// Day is the slot listing for one date.
type Day struct {
	Date            time.Time
	DurationMinutes int
	Slots           []Slot
	IsToday         bool
	IsPast          bool

	// CurrentTime is "HH:MM" when Date is today.
	CurrentTime string
}

// DateStatus summarizes one calendar day of a month.
type DateStatus struct {
	Date            time.Time
	IsPast          bool
	HasAvailability bool
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine generates slots. Booked intervals are cached per day and must be
// invalidated by whoever writes bookings.
type Engine struct {
	cfg     Config
	source  Source
	cache   *expirable.LRU[string, []Booked]
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

func NewEngine(source Source, cfg Config, opts ...Option) *Engine {
	if source == nil {
		panic("availability: source required")
	}
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		source: source,
		cache:  expirable.NewLRU[string, []Booked](cfg.CacheSize, nil, cfg.CacheTTL),
		now:    time.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location is the timezone slots are expressed in.
func (e *Engine) Location() *time.Location { return e.cfg.Location }

// WorkingHours renders the working day as "9:00 - 17:00".
func (e *Engine) WorkingHours() string {
	return fmt.Sprintf("%d:00 - %d:00", e.cfg.OpenHour, e.cfg.CloseHour)
}

// Now returns the current time in the engine's location.
func (e *Engine) Now() time.Time { return e.now().In(e.cfg.Location) }

// ParseDate parses "YYYY-MM-DD" at midnight in the engine's location.
func (e *Engine) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, e.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// NormalizeDuration maps invalid durations to the default.
func NormalizeDuration(minutes int) int {
	if minutes <= 0 {
		return DefaultDurationMinutes
	}
	return minutes
}

// DaySlots lists the free slots of date for a consultation of the given length.
func (e *Engine) DaySlots(ctx context.Context, date time.Time, durationMinutes int) (Day, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveAvailabilityLatency("slots", time.Since(started).Seconds()) }()

	durationMinutes = NormalizeDuration(durationMinutes)
	now := e.Now()
	day := startOfDay(date, e.cfg.Location)
	today := startOfDay(now, e.cfg.Location)

	out := Day{Date: day, DurationMinutes: durationMinutes}
	if day.Before(today) {
		out.IsPast = true
		return out, nil
	}
	if day.Equal(today) {
		out.IsToday = true
		out.CurrentTime = now.Format("15:04")
	}

	booked, err := e.booked(ctx, day)
	if err != nil {
		return Day{}, err
	}
	out.Slots = e.generate(day, durationMinutes, booked, now)
	return out, nil
}

// Month reports, for every day of a month, whether at least one slot fits.
// month is 1-based.
func (e *Engine) Month(ctx context.Context, year, month, durationMinutes int) ([]DateStatus, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveAvailabilityLatency("month", time.Since(started).Seconds()) }()

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	durationMinutes = NormalizeDuration(durationMinutes)
	now := e.Now()
	today := startOfDay(now, e.cfg.Location)

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, e.cfg.Location)
	var out []DateStatus
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		status := DateStatus{Date: d}
		if d.Before(today) {
			status.IsPast = true
			out = append(out, status)
			continue
		}
		booked, err := e.booked(ctx, d)
		if err != nil {
			return nil, err
		}
		status.HasAvailability = len(e.generate(d, durationMinutes, booked, now)) > 0
		out = append(out, status)
	}
	return out, nil
}

// IsFree reports whether an appointment starting at start fits the working
// day and clashes with no active booking.
func (e *Engine) IsFree(ctx context.Context, start time.Time, durationMinutes int) (bool, error) {
	durationMinutes = NormalizeDuration(durationMinutes)
	start = start.In(e.cfg.Location)
	day := startOfDay(start, e.cfg.Location)
	if e.closed(day) {
		return false, nil
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	opening, closing := e.hours(day)
	if start.Before(opening) || end.After(closing) {
		return false, nil
	}

	// the cache may lag behind writes from other instances
	booked, err := e.source.ActiveOnDate(ctx, day)
	if err != nil {
		return false, fmt.Errorf("availability: load bookings: %w", err)
	}
	return !e.clashes(start, end, booked), nil
}

// Invalidate drops cached bookings for the day containing t.
func (e *Engine) Invalidate(t time.Time) {
	key := startOfDay(t, e.cfg.Location).Format(dateLayout)
	e.cache.Remove(key)
	e.logger.Debug("availability: cache invalidated", "date", key)
}

func (e *Engine) booked(ctx context.Context, day time.Time) ([]Booked, error) {
	key := day.Format(dateLayout)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	booked, err := e.source.ActiveOnDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("availability: load bookings for %s: %w", key, err)
	}
	e.cache.Add(key, booked)
	return booked, nil
}

func (e *Engine) generate(day time.Time, durationMinutes int, booked []Booked, now time.Time) []Slot {
	if e.closed(day) {
		return nil
	}
	length := time.Duration(durationMinutes) * time.Minute
	opening, closing := e.hours(day)

	var slots []Slot
	for start := opening; !start.Add(length).After(closing); start = start.Add(e.cfg.Step) {
		if start.Before(now) {
			continue
		}
		end := start.Add(length)
		if e.clashes(start, end, booked) {
			continue
		}
		slots = append(slots, Slot{
			ID:              start.Format("200601021504"),
			Start:           start,
			End:             end,
			DurationMinutes: durationMinutes,
		})
	}
	return slots
}

func (e *Engine) clashes(start, end time.Time, booked []Booked) bool {
	for _, b := range booked {
		bStart := b.Start.In(e.cfg.Location)
		bEnd := bStart.Add(time.Duration(NormalizeDuration(b.Minutes))*time.Minute + e.cfg.Buffer)
		if start.Before(bEnd) && end.After(bStart) {
			return true
		}
	}
	return false
}

func (e *Engine) hours(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	opening := time.Date(y, m, d, e.cfg.OpenHour, 0, 0, 0, e.cfg.Location)
	closing := time.Date(y, m, d, e.cfg.CloseHour, 0, 0, 0, e.cfg.Location)
	return opening, closing
}

func (e *Engine) closed(day time.Time) bool {
	return slices.Contains(e.cfg.ClosedDays, day.Weekday())
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
