package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/internal/consultations"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

type mockEmailSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	failOn string
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleBooking() *consultations.Booking {
	created := time.Date(2025, 6, 10, 4, 50, 0, 0, time.UTC)
	return &consultations.Booking{
		ID:              "b-1",
		PackageKey:      "45-min",
		DurationMinutes: 45,
		PriceAmount:     1500,
		StartAt:         time.Date(2025, 6, 11, 5, 0, 0, 0, time.UTC),
		Mode:            "phone",
		Name:            "Asha <Rao>",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		Topic:           "GST registration",
		Status:          consultations.StatusPending,
		CreatedAt:       created,
	}
}

func newTestNotifier(t *testing.T, sender EmailSender, admin string) *BookingNotifier {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	n := NewBookingNotifier(sender, admin, loc, logging.Discard())
	n.now = func() time.Time { return time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC) }
	return n
}

func TestBookingCreatedSendsClientAndAdmin(t *testing.T) {
	sender := &mockEmailSender{}
	n := newTestNotifier(t, sender, "admin@example.com")
	pkg, _ := consultations.LookupPackage("45-min")

	require.NoError(t, n.BookingCreated(context.Background(), sampleBooking(), pkg))
	require.Len(t, sender.sent, 2)

	client := sender.sent[0]
	assert.Equal(t, "asha@example.com", client.To)
	assert.Equal(t, "Booking Confirmation - b-1", client.Subject)
	assert.Contains(t, client.Body, "Date: Wednesday, June 11, 2025")
	assert.Contains(t, client.Body, "Time: 10:30 AM")
	assert.Contains(t, client.Body, "Mode: Phone Call")
	assert.Contains(t, client.Body, "Amount: ₹1,500")
	assert.Contains(t, client.HTML, "Asha &lt;Rao&gt;")
	assert.NotContains(t, client.HTML, "<Rao>")

	admin := sender.sent[1]
	assert.Equal(t, "admin@example.com", admin.To)
	assert.Equal(t, "📅 New Booking: Asha <Rao> - b-1", admin.Subject)
	assert.Contains(t, admin.Body, "Company: N/A")
	assert.Contains(t, admin.Body, "Date: 2025-06-11\nTime: 10:30")
	assert.Contains(t, admin.Body, "Topic: GST registration")
	assert.Contains(t, admin.Body, "Time: 2025-06-10 10:20:00")
}

func TestBookingCreatedWithoutAdminEmail(t *testing.T) {
	sender := &mockEmailSender{}
	n := newTestNotifier(t, sender, "  ")
	pkg, _ := consultations.LookupPackage("45-min")

	require.NoError(t, n.BookingCreated(context.Background(), sampleBooking(), pkg))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha@example.com", sender.sent[0].To)
}

func TestBookingCreatedReportsFailures(t *testing.T) {
	sender := &mockEmailSender{failOn: "asha@example.com"}
	n := newTestNotifier(t, sender, "admin@example.com")
	pkg, _ := consultations.LookupPackage("45-min")

	err := n.BookingCreated(context.Background(), sampleBooking(), pkg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Booking Confirmation - b-1")
	require.Len(t, sender.sent, 1, "admin copy still goes out")
	assert.Equal(t, "admin@example.com", sender.sent[0].To)
}

func TestStatusChangedCancelled(t *testing.T) {
	sender := &mockEmailSender{}
	n := newTestNotifier(t, sender, "admin@example.com")

	b := sampleBooking()
	b.Status = consultations.StatusCancelled
	cancelledAt := time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC)
	b.CancelledAt = &cancelledAt

	require.NoError(t, n.StatusChanged(context.Background(), b, consultations.StatusPending))
	require.Len(t, sender.sent, 2)

	client := sender.sent[0]
	assert.Equal(t, "Booking Status Update - Cancelled - b-1", client.Subject)
	assert.Contains(t, client.Body, "Cancellation reason: due to unforeseen circumstances")
	assert.Contains(t, client.Body, "Status changed: Pending Review → Cancelled")
	assert.Contains(t, client.Body, "Time: 10:30 AM - 11:15 AM")

	admin := sender.sent[1]
	assert.Equal(t, "⚠️ Booking Cancelled: Asha <Rao> - b-1", admin.Subject)
	assert.Contains(t, admin.Body, "Cancelled: 2025-06-10 11:30:00")
	assert.Contains(t, admin.Body, "Confirmed: N/A")
}

func TestStatusChangedOtherStatuses(t *testing.T) {
	tests := []struct {
		status      consultations.Status
		clientLine  string
		adminSubjct string
	}{
		{consultations.StatusConfirmed, "Your booking has been confirmed.", "📊 Status Changed: Asha <Rao> - Confirmed"},
		{consultations.StatusCompleted, "Your consultation has been marked as completed.", "📊 Status Changed: Asha <Rao> - Completed"},
		{consultations.StatusPending, "Your booking is now under review.", "📊 Status Changed: Asha <Rao> - Pending Review"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			sender := &mockEmailSender{}
			n := newTestNotifier(t, sender, "admin@example.com")
			b := sampleBooking()
			b.Status = tt.status
			b.CancellationReason = "client asked"

			require.NoError(t, n.StatusChanged(context.Background(), b, consultations.StatusCancelled))
			require.Len(t, sender.sent, 2)
			assert.Contains(t, sender.sent[0].Body, tt.clientLine)
			assert.NotContains(t, sender.sent[0].Body, "client asked")
			assert.Equal(t, tt.adminSubjct, sender.sent[1].Subject)
			assert.True(t, strings.HasPrefix(sender.sent[1].Body, "BOOKING STATUS CHANGE NOTIFICATION"))
			assert.Contains(t, sender.sent[1].Body, "Status Changed: cancelled → "+string(tt.status))
		})
	}
}

func TestNewBookingNotifierDefaults(t *testing.T) {
	n := NewBookingNotifier(nil, "", nil, nil)
	assert.IsType(t, &StubEmailSender{}, n.sender)
	assert.Equal(t, time.UTC, n.loc)
	pkg, _ := consultations.LookupPackage("30-min")
	assert.NoError(t, n.BookingCreated(context.Background(), sampleBooking(), pkg))
}
