package consultations

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/consultation-booking/internal/availability"
)

// Repository defines the interface for booking storage.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	// FindRecent returns the newest booking for email at startAt created at
	// or after since, or ErrNotFound.
	FindRecent(ctx context.Context, email string, startAt, since time.Time) (*Booking, error)
	ActiveOnDate(ctx context.Context, day time.Time) ([]availability.Booked, error)
	List(ctx context.Context, filter ListFilter, loc *time.Location) ([]*Booking, error)
	Stats(ctx context.Context) (Stats, error)
	// UpdateStatus sets status and stamps the matching timestamp column.
	UpdateStatus(ctx context.Context, id string, status Status, reason string, at time.Time) (*Booking, error)
	AddDocument(ctx context.Context, doc Document) error
}

// InMemoryRepository keeps bookings in a map; used in development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[string]*Booking)}
}

func (r *InMemoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Status != StatusCancelled && r.activeAtLocked(b.StartAt, b.ID) {
		return ErrSlotTaken
	}
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (r *InMemoryRepository) FindRecent(_ context.Context, email string, startAt, since time.Time) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Booking
	for _, b := range r.bookings {
		if b.Email != email || !b.StartAt.Equal(startAt) || b.CreatedAt.Before(since) {
			continue
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			found = b
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return clone(found), nil
}

func (r *InMemoryRepository) ActiveOnDate(_ context.Context, day time.Time) ([]availability.Booked, error) {
	end := day.AddDate(0, 0, 1)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []availability.Booked
	for _, b := range r.bookings {
		if b.Status == StatusCancelled || b.StartAt.Before(day) || !b.StartAt.Before(end) {
			continue
		}
		out = append(out, availability.Booked{Start: b.StartAt, Minutes: b.DurationMinutes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *InMemoryRepository) List(_ context.Context, filter ListFilter, loc *time.Location) ([]*Booking, error) {
	if loc == nil {
		loc = time.UTC
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Booking
	for _, b := range r.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Date != "" && b.StartAt.In(loc).Format("2006-01-02") != filter.Date {
			continue
		}
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Stats(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	for _, b := range r.bookings {
		s.add(b.Status, 1)
	}
	return s, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, status Status, reason string, at time.Time) (*Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status == StatusCancelled && status != StatusCancelled && r.activeAtLocked(b.StartAt, id) {
		return nil, ErrSlotTaken
	}
	b.Status = status
	stamp := at
	switch status {
	case StatusPending:
		b.PendingAt = &stamp
	case StatusConfirmed:
		b.ConfirmedAt = &stamp
	case StatusCompleted:
		b.CompletedAt = &stamp
	case StatusCancelled:
		b.CancelledAt = &stamp
		b.CancellationReason = reason
	}
	return clone(b), nil
}

// activeAtLocked reports whether a booking other than skipID holds start.
func (r *InMemoryRepository) activeAtLocked(start time.Time, skipID string) bool {
	for id, b := range r.bookings {
		if id != skipID && b.Status != StatusCancelled && b.StartAt.Equal(start) {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) AddDocument(_ context.Context, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[doc.BookingID]
	if !ok {
		return ErrNotFound
	}
	b.Documents = append(b.Documents, doc)
	return nil
}

func clone(b *Booking) *Booking {
	cp := *b
	cp.Documents = slices.Clone(b.Documents)
	return &cp
}
