package consultations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/consultation-booking/internal/availability"
	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/observability/metrics"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

var consultationsTracer = otel.Tracer("consultation.internal.consultations")

const (
	defaultDuplicateWindow = 5 * time.Minute
	defaultDayLockWait     = 3 * time.Second
	dayLockPoll            = 25 * time.Millisecond
)

// Notifier tells the client and the admin about booking changes.
type Notifier interface {
	BookingCreated(ctx context.Context, b *Booking, pkg Package) error
	StatusChanged(ctx context.Context, b *Booking, old Status) error
}

// AttachmentStore persists uploaded documents and reads them back for admins.
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type ServiceOption func(*Service)

func WithSubmissionLock(lock SubmissionLock) ServiceOption {
	return func(s *Service) { s.lock = lock }
}

func WithAttachmentStore(store AttachmentStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.BookingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithDuplicateWindow sets how far back an identical submission is treated
// as a resubmission of the same booking.
func WithDuplicateWindow(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.duplicateWindow = d
		}
	}
}

// WithDayLockWait bounds how long a submission waits for another booking on
// the same day to finish before it is turned away.
func WithDayLockWait(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.dayLockWait = d
		}
	}
}

// Service accepts booking submissions and runs admin status changes.
type Service struct {
	repo            Repository
	engine          *availability.Engine
	lock            SubmissionLock
	store           AttachmentStore
	notifier        Notifier
	metrics         *metrics.BookingMetrics
	logger          *logging.Logger
	duplicateWindow time.Duration
	dayLockWait     time.Duration
}

func NewService(repo Repository, engine *availability.Engine, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("consultations: repository required")
	}
	if engine == nil {
		panic("consultations: availability engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:            repo,
		engine:          engine,
		logger:          logger,
		duplicateWindow: defaultDuplicateWindow,
		dayLockWait:     defaultDayLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the timezone appointments are booked in.
func (s *Service) Location() *time.Location { return s.engine.Location() }

// Submit validates and stores a booking.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	ctx, span := consultationsTracer.Start(ctx, "consultations.submit")
	defer span.End()

	pkg, _ := LookupPackage(req.PackageKey)
	span.SetAttributes(
		attribute.String("consultation.package", pkg.Key),
		attribute.String("consultation.date", req.SelectedDate),
	)

	res, err := s.submit(ctx, req, pkg)
	if err != nil {
		var rej *RejectionError
		if errors.As(err, &rej) {
			s.metrics.ObserveRejected(rej.Reason)
			span.SetAttributes(attribute.String("consultation.rejected", rej.Reason))
			s.logger.Info("booking rejected", "reason", rej.Reason, "date", req.SelectedDate, "time", req.SelectedTime)
		} else {
			span.RecordError(err)
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.String("consultation.booking_id", res.Booking.ID),
		attribute.Bool("consultation.existing", res.Existing),
	)
	return res, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest, pkg Package) (*SubmitResult, error) {
	date := strings.TrimSpace(req.SelectedDate)
	hhmm := strings.TrimSpace(req.SelectedTime)
	if date == "" || hhmm == "" {
		return nil, reject(ReasonNoTime, "No appointment time selected")
	}
	startAt, err := booking.CombineDateTime(date, hhmm, s.Location())
	if err != nil {
		return nil, reject(ReasonInvalidTime, "Invalid appointment time")
	}
	now := s.engine.Now()
	if startAt.Before(now) {
		return nil, reject(ReasonPast, "Cannot book appointments in the past.")
	}

	form := req.Form.Trimmed()
	if err := form.Validate(); err != nil {
		return nil, reject(ReasonInvalidForm, err.Error())
	}

	if s.lock != nil {
		key := SubmissionKey(form.Email, date, hhmm)
		acquired, err := s.lock.Acquire(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("submission lock unavailable", "error", err)
		case !acquired:
			return nil, reject(ReasonDuplicate, "Duplicate submission detected. Please wait.")
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
					s.logger.Warn("submission lock release failed", "error", err)
				}
			}()
		}
	}

	existing, err := s.repo.FindRecent(ctx, form.Email, startAt, now.Add(-s.duplicateWindow))
	switch {
	case err == nil:
		s.logger.Info("booking resubmitted", "booking_id", existing.ID, "email", form.Email)
		return &SubmitResult{Booking: existing, Package: pkg, Existing: true}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	release, err := s.holdDay(ctx, date)
	if err != nil {
		return nil, err
	}
	defer release()

	free, err := s.engine.IsFree(ctx, startAt, pkg.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, errSlotUnavailable()
	}

	b := &Booking{
		ID:                uuid.NewString(),
		PackageKey:        pkg.Key,
		DurationMinutes:   pkg.DurationMinutes,
		PriceAmount:       pkg.PriceAmount,
		StartAt:           startAt,
		Mode:              form.Mode,
		Name:              form.Name,
		Email:             form.Email,
		Phone:             form.Phone,
		Company:           form.Company,
		Designation:       form.Designation,
		Topic:             form.Topic,
		NewsletterConsent: form.Newsletter,
		Status:            StatusPending,
		IsPaid:            false,
		CreatedAt:         now.UTC(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, errSlotUnavailable()
		}
		return nil, err
	}
	s.engine.Invalidate(startAt)
	s.metrics.ObserveCreated(pkg.Key)
	s.logger.Info("booking created", "booking_id", b.ID, "package", pkg.Key, "start_at", startAt)

	b.Documents = s.storeAttachments(ctx, b.ID, form.Attachments)

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, b, pkg); err != nil {
			s.logger.Error("booking emails failed", "booking_id", b.ID, "error", err)
		}
	}
	return &SubmitResult{Booking: b, Package: pkg}, nil
}

func errSlotUnavailable() error {
	return reject(ReasonUnavailable, "Selected time is no longer available.")
}

// holdDay serializes the free check and insert for one calendar day, so
// overlapping slots on that day cannot both pass IsFree. It polls until
// the day is free or dayLockWait runs out.
func (s *Service) holdDay(ctx context.Context, date string) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	key := DayKey(date)
	deadline := time.Now().Add(s.dayLockWait)
	for {
		acquired, err := s.lock.Acquire(ctx, key)
		if err != nil {
			s.logger.Warn("day lock unavailable", "date", date, "error", err)
			return func() {}, nil
		}
		if acquired {
			return func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
					s.logger.Warn("day lock release failed", "date", date, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, errSlotUnavailable()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dayLockPoll):
		}
	}
}

// storeAttachments uploads documents after the booking exists. Failures
// are logged; the booking stands.
func (s *Service) storeAttachments(ctx context.Context, bookingID string, files []booking.Attachment) []Document {
	if len(files) == 0 {
		return nil
	}
	if s.store == nil {
		s.logger.Warn("attachments dropped: no store configured", "booking_id", bookingID, "count", len(files))
		return nil
	}

	var docs []Document
	for _, f := range files {
		doc := Document{
			ID:          uuid.NewString(),
			BookingID:   bookingID,
			Filename:    f.Filename,
			ContentType: f.ContentType,
			SizeBytes:   int64(len(f.Data)),
			UploadedAt:  time.Now().UTC(),
		}
		doc.StorageKey = path.Join("bookings", bookingID, doc.ID, sanitizeFilename(f.Filename))
		if doc.ContentType == "" {
			doc.ContentType = "application/octet-stream"
		}
		if err := s.store.Put(ctx, doc.StorageKey, doc.ContentType, f.Data); err != nil {
			s.logger.Error("attachment upload failed", "booking_id", bookingID, "filename", f.Filename, "error", err)
			continue
		}
		if err := s.repo.AddDocument(ctx, doc); err != nil {
			s.logger.Error("attachment record failed", "booking_id", bookingID, "filename", f.Filename, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// List returns bookings matching filter, newest first, with overall stats.
// An unparseable date filter is ignored.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Booking, Stats, error) {
	ctx, span := consultationsTracer.Start(ctx, "consultations.list")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Stats{}, ErrInvalidStatus
	}
	if filter.Date != "" {
		if _, err := time.Parse(booking.DateLayout, filter.Date); err != nil {
			filter.Date = ""
		}
	}

	items, err := s.repo.List(ctx, filter, s.Location())
	if err != nil {
		span.RecordError(err)
		return nil, Stats{}, err
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, Stats{}, err
	}
	return items, stats, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

// OpenDocument returns the stored bytes of one of a booking's documents.
func (s *Service) OpenDocument(ctx context.Context, bookingID, documentID string) (Document, io.ReadCloser, error) {
	b, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return Document{}, nil, err
	}
	idx := slices.IndexFunc(b.Documents, func(d Document) bool { return d.ID == documentID })
	if idx < 0 || s.store == nil {
		return Document{}, nil, ErrNotFound
	}
	doc := b.Documents[idx]
	rc, _, err := s.store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("consultations: open document %s: %w", documentID, err)
	}
	return doc, rc, nil
}

// Cancel marks a booking cancelled, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Booking, error) {
	return s.transition(ctx, id, StatusCancelled, strings.TrimSpace(reason))
}

func (s *Service) Confirm(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusConfirmed, "")
}

func (s *Service) Complete(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusCompleted, "")
}

func (s *Service) MarkPending(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusPending, "")
}

func (s *Service) transition(ctx context.Context, id string, to Status, reason string) (*Booking, error) {
	ctx, span := consultationsTracer.Start(ctx, "consultations.transition", trace.WithAttributes(
		attribute.String("consultation.booking_id", id),
		attribute.String("consultation.status", string(to)),
	))
	defer span.End()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, to, reason, s.engine.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("consultations: %s booking %s: %w", to, id, err)
	}

	s.engine.Invalidate(updated.StartAt)
	s.metrics.ObserveTransition(string(current.Status), string(to))
	s.logger.Info("booking status changed", "booking_id", id, "from", current.Status, "to", to)

	if s.notifier != nil {
		if err := s.notifier.StatusChanged(ctx, updated, current.Status); err != nil {
			s.logger.Error("status emails failed", "booking_id", id, "error", err)
		}
	}
	return updated, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "document"
	}
	return name
}
