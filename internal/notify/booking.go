package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/consultations"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

const historyLayout = "2006-01-02 15:04:05"

var statusTitles = map[consultations.Status]string{
	consultations.StatusPending:   "Pending Review",
	consultations.StatusConfirmed: "Confirmed",
	consultations.StatusCompleted: "Completed",
	consultations.StatusCancelled: "Cancelled",
}

// BookingNotifier emails the client and the admin inbox about bookings.
type BookingNotifier struct {
	sender     EmailSender
	adminEmail string
	loc        *time.Location
	now        func() time.Time
	logger     *logging.Logger
}

// NewBookingNotifier builds a notifier. An empty adminEmail skips admin copies.
func NewBookingNotifier(sender EmailSender, adminEmail string, loc *time.Location, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &BookingNotifier{
		sender:     sender,
		adminEmail: strings.TrimSpace(adminEmail),
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// BookingCreated sends the client confirmation and the admin alert.
func (n *BookingNotifier) BookingCreated(ctx context.Context, b *consultations.Booking, pkg consultations.Package) error {
	var errs []error
	if err := n.send(ctx, n.clientConfirmation(b, pkg)); err != nil {
		errs = append(errs, err)
	}
	if n.adminEmail != "" {
		if err := n.send(ctx, n.adminNewBooking(b, pkg)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StatusChanged tells the client about the new status and copies the admin.
func (n *BookingNotifier) StatusChanged(ctx context.Context, b *consultations.Booking, old consultations.Status) error {
	var errs []error
	if err := n.send(ctx, n.clientStatus(b, old)); err != nil {
		errs = append(errs, err)
	}
	if n.adminEmail != "" {
		msg := n.adminStatus(b, old)
		if b.Status == consultations.StatusCancelled {
			msg = n.adminCancellation(b)
		}
		if err := n.send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *BookingNotifier) send(ctx context.Context, msg EmailMessage) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("notify: booking email failed", "error", err, "to", msg.To, "subject", msg.Subject)
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}
	return nil
}

func (n *BookingNotifier) clientConfirmation(b *consultations.Booking, pkg consultations.Package) EmailMessage {
	date, clock := b.DateText(n.loc), b.TimeText(n.loc)
	body := fmt.Sprintf(`Dear %s,

Your consultation has been booked successfully.

Booking ID: %s
Date: %s
Time: %s
Duration: %s
Mode: %s
Amount: %s
Status: Pending Manual Payment Confirmation

Our team will contact you within 24 hours to confirm your booking details and share payment instructions.
Meeting details will be sent once payment is confirmed.

Best regards,
KP RegTech`, b.Name, b.ID, date, clock, pkg.Title, booking.ModeLabel(b.Mode), pkg.Price)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Booking Confirmed!</h2>
<p>Dear %s,</p>
<p>Your consultation has been booked successfully.</p>
<div style="background: #f9f9f9; padding: 15px; margin: 15px 0;">
  <h3>Booking Details</h3>
  %s
  <p><strong>Status:</strong> Pending Manual Payment Confirmation</p>
</div>
<div style="background: #fff3cd; padding: 15px; border-left: 4px solid #ffc107; margin: 15px 0;">
  <p>Our team will contact you within 24 hours to confirm your booking details and provide payment instructions.</p>
  <p><strong>Payment Methods Available:</strong> Bank Transfer, UPI, Cash</p>
</div>
<p>Best regards,<br><strong>KP RegTech</strong></p>
</div>`, html.EscapeString(b.Name), detailRowsHTML(b, date, clock, pkg.Title, pkg.Price))

	return EmailMessage{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Booking Confirmation - " + b.ID,
		Body:    body,
		HTML:    htmlBody,
	}
}

func (n *BookingNotifier) adminNewBooking(b *consultations.Booking, pkg consultations.Package) EmailMessage {
	body := fmt.Sprintf(`NEW BOOKING RECEIVED - MANUAL PAYMENT REQUIRED

Booking ID: %s
Time: %s

Client Information:
%s

Appointment Details:
%s

Topic: %s

Action Required:
1. Contact client to confirm booking: %s
2. Provide payment instructions
3. Collect payment manually
4. Update booking status once payment is received`,
		b.ID, b.CreatedAt.In(n.loc).Format(historyLayout),
		n.clientBlock(b), n.appointmentBlock(b, pkg.Title, pkg.Price),
		b.Topic, b.Phone)

	return EmailMessage{
		To:      n.adminEmail,
		Subject: fmt.Sprintf("📅 New Booking: %s - %s", b.Name, b.ID),
		Body:    body,
	}
}

func (n *BookingNotifier) clientStatus(b *consultations.Booking, old consultations.Status) EmailMessage {
	pkg, _ := consultations.LookupPackage(b.PackageKey)
	title := statusTitles[b.Status]
	date, clock := b.DateText(n.loc), b.TimeText(n.loc)

	var lines []string
	switch b.Status {
	case consultations.StatusPending:
		lines = []string{
			"Your booking is now under review.",
			"You'll receive a confirmation email once approved. No action is required from you at this time.",
		}
	case consultations.StatusConfirmed:
		lines = []string{
			"Your booking has been confirmed.",
			"Please join the meeting 5 minutes before the scheduled time and have your documents ready.",
			"Meeting details will be sent 1 hour before the appointment. You can reschedule up to 24 hours before.",
		}
	case consultations.StatusCompleted:
		lines = []string{
			"Your consultation has been marked as completed.",
			"Thank you for your consultation! Please reach out if you have follow-up questions.",
		}
	case consultations.StatusCancelled:
		lines = []string{
			"Your booking has been cancelled.",
			"Cancellation reason: " + cancellationReason(b),
			"You can book a new appointment at any time.",
		}
	}
	if old != "" && old != b.Status {
		lines = append(lines, fmt.Sprintf("Status changed: %s → %s", statusTitles[old], title))
	}

	body := fmt.Sprintf("Dear %s,\n\n%s\n\nBooking ID: %s\nDate: %s\nTime: %s - %s\nDuration: %s\nMode: %s\n\nBest regards,\nKP RegTech",
		b.Name, strings.Join(lines, "\n"), b.ID, date, clock, booking.ClockLabel(b.End().In(n.loc).Format(booking.ClockLayout)),
		pkg.Title, booking.ModeLabel(b.Mode))

	var paragraphs strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&paragraphs, "<p>%s</p>\n", html.EscapeString(line))
	}
	htmlBody := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>%s</h2>
<p>Dear %s,</p>
%s<div style="background: #f9f9f9; padding: 15px; margin: 15px 0;">
  %s
</div>
<p>Best regards,<br><strong>KP RegTech</strong></p>
</div>`, html.EscapeString(title), html.EscapeString(b.Name), paragraphs.String(),
		detailRowsHTML(b, date, clock, pkg.Title, pkg.Price))

	return EmailMessage{
		To:      b.Email,
		ToName:  b.Name,
		Subject: fmt.Sprintf("Booking Status Update - %s - %s", title, b.ID),
		Body:    body,
		HTML:    htmlBody,
	}
}

func (n *BookingNotifier) adminStatus(b *consultations.Booking, old consultations.Status) EmailMessage {
	pkg, _ := consultations.LookupPackage(b.PackageKey)
	body := fmt.Sprintf(`BOOKING STATUS CHANGE NOTIFICATION

Booking ID: %s
Status Changed: %s → %s
Change Time: %s

CLIENT INFORMATION:
%s

APPOINTMENT DETAILS:
%s

BOOKING HISTORY:
%s`,
		b.ID, old, b.Status, n.now().In(n.loc).Format(historyLayout),
		n.clientBlock(b), n.appointmentBlock(b, pkg.Title, pkg.Price), n.historyBlock(b))

	return EmailMessage{
		To:      n.adminEmail,
		Subject: fmt.Sprintf("📊 Status Changed: %s - %s", b.Name, statusTitles[b.Status]),
		Body:    body,
	}
}

func (n *BookingNotifier) adminCancellation(b *consultations.Booking) EmailMessage {
	pkg, _ := consultations.LookupPackage(b.PackageKey)
	body := fmt.Sprintf(`BOOKING CANCELLATION NOTIFICATION

Cancelled Booking ID: %s
Cancellation Time: %s

CLIENT INFORMATION:
%s

ORIGINAL APPOINTMENT DETAILS:
%s

CANCELLATION REASON:
%s

BOOKING HISTORY:
%s`,
		b.ID, n.now().In(n.loc).Format(historyLayout),
		n.clientBlock(b), n.appointmentBlock(b, pkg.Title, pkg.Price),
		cancellationReason(b), n.historyBlock(b))

	return EmailMessage{
		To:      n.adminEmail,
		Subject: fmt.Sprintf("⚠️ Booking Cancelled: %s - %s", b.Name, b.ID),
		Body:    body,
	}
}

func (n *BookingNotifier) clientBlock(b *consultations.Booking) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\nCompany: %s",
		b.Name, b.Email, b.Phone, orNA(b.Company))
}

func (n *BookingNotifier) appointmentBlock(b *consultations.Booking, title, price string) string {
	start := b.StartAt.In(n.loc)
	return fmt.Sprintf("Date: %s\nTime: %s\nDuration: %s\nMode: %s\nAmount: %s",
		start.Format(booking.DateLayout), start.Format(booking.ClockLayout),
		title, booking.ModeLabel(b.Mode), price)
}

func (n *BookingNotifier) historyBlock(b *consultations.Booking) string {
	stamp := func(t *time.Time) string {
		if t == nil {
			return "N/A"
		}
		return t.In(n.loc).Format(historyLayout)
	}
	return fmt.Sprintf("Created: %s\nPending: %s\nConfirmed: %s\nCompleted: %s\nCancelled: %s",
		b.CreatedAt.In(n.loc).Format(historyLayout),
		stamp(b.PendingAt), stamp(b.ConfirmedAt), stamp(b.CompletedAt), stamp(b.CancelledAt))
}

func detailRowsHTML(b *consultations.Booking, date, clock, title, price string) string {
	rows := [][2]string{
		{"Booking ID", b.ID},
		{"Date", date},
		{"Time", clock},
		{"Duration", title},
		{"Mode", booking.ModeLabel(b.Mode)},
		{"Amount", price},
	}
	var sb strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&sb, "<p><strong>%s:</strong> %s</p>", r[0], html.EscapeString(r[1]))
	}
	return sb.String()
}

func cancellationReason(b *consultations.Booking) string {
	if r := strings.TrimSpace(b.CancellationReason); r != "" {
		return r
	}
	return "due to unforeseen circumstances"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

var _ consultations.Notifier = (*BookingNotifier)(nil)
