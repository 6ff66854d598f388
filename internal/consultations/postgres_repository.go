package consultations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/consultation-booking/internal/availability"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// activeStartIndex keeps two active bookings off the same start time.
const activeStartIndex = "uq_consultation_bookings_active_start"

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeStartIndex
}

const bookingColumns = `id, package_key, duration_minutes, price_amount, start_at, mode,
	name, email, phone, company, designation, topic, newsletter_consent,
	status, is_paid, cancellation_reason, created_at,
	confirmed_at, cancelled_at, completed_at, pending_at`

// stampColumns maps a status to the column recording when it was entered.
var stampColumns = map[Status]string{
	StatusPending:   "pending_at",
	StatusConfirmed: "confirmed_at",
	StatusCancelled: "cancelled_at",
	StatusCompleted: "completed_at",
}

// PostgresRepository stores bookings in the relational database.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("consultations: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q rowQuerier) *PostgresRepository {
	if q == nil {
		panic("consultations: querier required")
	}
	return &PostgresRepository{pool: q}
}

func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO consultation_bookings (
			id, package_key, duration_minutes, price_amount, start_at, mode,
			name, email, phone, company, designation, topic, newsletter_consent,
			status, is_paid, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if _, err := r.pool.Exec(ctx, query,
		b.ID,
		b.PackageKey,
		b.DurationMinutes,
		b.PriceAmount,
		b.StartAt,
		b.Mode,
		b.Name,
		b.Email,
		b.Phone,
		b.Company,
		b.Designation,
		b.Topic,
		b.NewsletterConsent,
		string(b.Status),
		b.IsPaid,
		b.CreatedAt,
	); err != nil {
		if isSlotConflict(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("consultations: insert booking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM consultation_bookings WHERE id = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consultations: get booking: %w", err)
	}

	docs, err := r.documents(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Documents = docs
	return b, nil
}

func (r *PostgresRepository) FindRecent(ctx context.Context, email string, startAt, since time.Time) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM consultation_bookings
		WHERE email = $1 AND start_at = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, email, startAt, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consultations: find recent booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ActiveOnDate(ctx context.Context, day time.Time) ([]availability.Booked, error) {
	query := `
		SELECT start_at, duration_minutes
		FROM consultation_bookings
		WHERE start_at >= $1 AND start_at < $2 AND status <> 'cancelled'
		ORDER BY start_at
	`
	rows, err := r.pool.Query(ctx, query, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("consultations: active bookings: %w", err)
	}
	defer rows.Close()

	var out []availability.Booked
	for rows.Next() {
		var b availability.Booked
		if err := rows.Scan(&b.Start, &b.Minutes); err != nil {
			return nil, fmt.Errorf("consultations: scan active booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultations: active bookings: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter, loc *time.Location) ([]*Booking, error) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Date != "" {
		args = append(args, loc.String(), filter.Date)
		where = append(where, fmt.Sprintf("(start_at AT TIME ZONE $%d)::date = $%d::date", len(args)-1, len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM consultation_bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("consultations: list bookings: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("consultations: scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultations: list bookings: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (Stats, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM consultation_bookings GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("consultations: stats: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("consultations: scan stats: %w", err)
		}
		s.add(Status(status), n)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("consultations: stats: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, reason string, at time.Time) (*Booking, error) {
	column, ok := stampColumns[status]
	if !ok {
		return nil, ErrInvalidStatus
	}
	query := fmt.Sprintf(`
		UPDATE consultation_bookings
		SET status = $2,
			%s = $3,
			cancellation_reason = CASE WHEN $2 = 'cancelled' THEN $4 ELSE cancellation_reason END
		WHERE id = $1
		RETURNING %s
	`, column, bookingColumns)

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id, string(status), at, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("consultations: update status: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) AddDocument(ctx context.Context, doc Document) error {
	query := `
		INSERT INTO consultation_documents (id, booking_id, filename, content_type, storage_key, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.BookingID,
		doc.Filename,
		doc.ContentType,
		doc.StorageKey,
		doc.SizeBytes,
		doc.UploadedAt,
	); err != nil {
		return fmt.Errorf("consultations: insert document: %w", err)
	}
	return nil
}

func (r *PostgresRepository) documents(ctx context.Context, bookingID string) ([]Document, error) {
	query := `
		SELECT id, booking_id, filename, content_type, storage_key, size_bytes, uploaded_at
		FROM consultation_documents
		WHERE booking_id = $1
		ORDER BY uploaded_at
	`
	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("consultations: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.BookingID, &d.Filename, &d.ContentType, &d.StorageKey, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("consultations: scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultations: list documents: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*Booking, error) {
	var (
		b      Booking
		status string
	)
	if err := row.Scan(
		&b.ID,
		&b.PackageKey,
		&b.DurationMinutes,
		&b.PriceAmount,
		&b.StartAt,
		&b.Mode,
		&b.Name,
		&b.Email,
		&b.Phone,
		&b.Company,
		&b.Designation,
		&b.Topic,
		&b.NewsletterConsent,
		&status,
		&b.IsPaid,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.PendingAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}
