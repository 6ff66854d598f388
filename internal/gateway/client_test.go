package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := NewClient(ts.URL, WithLogger(logging.Discard()), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func testSubmission() booking.Submission {
	return booking.Submission{
		Form: booking.FormData{
			Name:            "Asha Rao",
			Email:           "asha@example.com",
			Phone:           "9876543210",
			Topic:           "GST registration",
			Mode:            booking.ModeVideo,
			TermsAccepted:   true,
			DurationMinutes: 45,
		},
		Date:    "2025-06-11",
		Slot:    booking.TimeSlot{ID: "202506111400", StartTime: "14:00", EndTime: "14:45"},
		StartAt: time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC),
	}
}

func TestNewClientRequiresAbsoluteURL(t *testing.T) {
	_, err := NewClient("localhost:8000")
	assert.Error(t, err)
	_, err = NewClient("/relative")
	assert.Error(t, err)
}

func TestMonthAvailability(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, monthPath, r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		assert.Equal(t, "6", r.URL.Query().Get("month"))
		assert.Equal(t, "45", r.URL.Query().Get("duration"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"year": 2025, "month": 6, "duration": 45,
			"dates": []map[string]any{
				{"date": "2025-06-10", "day": 10, "has_availability": true, "is_past": false},
				{"date": "2025-06-11", "day": 11, "has_availability": false, "is_past": false},
			},
		})
	}))

	days, err := c.MonthAvailability(context.Background(), 2025, 6, 45)
	require.NoError(t, err)
	assert.Equal(t, []booking.DayAvailability{
		{Date: "2025-06-10", HasAvailability: true},
		{Date: "2025-06-11", HasAvailability: false},
	}, days)
}

func TestMonthAvailabilityServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.MonthAvailability(context.Background(), 2025, 6, 45)
	var aerr *booking.AvailabilityError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "month", aerr.Scope)
	assert.Equal(t, "2025-06", aerr.Key)
}

func TestDaySlotsAcceptsStringDuration(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, slotsPath, r.URL.Path)
		assert.Equal(t, "2025-06-10", r.URL.Query().Get("date"))
		_, _ = io.WriteString(w, `{"date":"2025-06-10","duration":"60","is_today":true,"current_time":"10:20",
			"working_hours":"9:00 - 17:00",
			"available_slots":[{"start_time":"11:00","end_time":"12:00","id":"202506101100","display":"11:00 AM - 12:00 PM"}]}`)
	}))

	set, err := c.DaySlots(context.Background(), "2025-06-10", 45)
	require.NoError(t, err)
	assert.True(t, set.IsToday)
	assert.Equal(t, "10:20", set.CurrentTime)
	require.Len(t, set.Slots, 1)
	assert.Equal(t, booking.TimeSlot{
		ID: "202506101100", StartTime: "11:00", EndTime: "12:00", DurationMinutes: 60, Label: "11:00 AM - 12:00 PM",
	}, set.Slots[0])
}

func TestDaySlotsTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)
	c.timeout = 50 * time.Millisecond

	_, err := c.DaySlots(context.Background(), "2025-06-10", 45)
	var aerr *booking.AvailabilityError
	require.ErrorAs(t, err, &aerr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Timeout"))
}

func TestSubmitBookingSendsFormWithCSRF(t *testing.T) {
	var gotToken string
	var form map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc(csrfPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "_gorilla_csrf", Value: "cookie", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": "tok-123"})
	})
	mux.HandleFunc("/booking/45-min/", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(csrfHeader)
		_, err := r.Cookie("_gorilla_csrf")
		assert.NoError(t, err, "cookie jar should replay the csrf cookie")
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "booking_id": 42, "message": "ok"})
	})
	c := newTestClient(t, mux)

	id, err := c.SubmitBooking(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "2025-06-11", form["selected_date"][0])
	assert.Equal(t, "14:00", form["selected_time"][0])
	assert.Equal(t, "2025-06-11T14:00:00", form["appointment_datetime"][0])
	assert.Equal(t, "GST registration", form["topic"][0])
	assert.Equal(t, "on", form["terms"][0])
	assert.Equal(t, "45", form["duration"][0])
	assert.Equal(t, "45", form["duration_minutes"][0])
	_, hasNewsletter := form["newsletter"]
	assert.False(t, hasNewsletter)
}

func TestSubmitBookingMultipartWithDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/booking/45-min/", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		files := r.MultipartForm.File["documents"]
		if assert.Len(t, files, 1) {
			assert.Equal(t, "brief.pdf", files[0].Filename)
		}
		assert.Equal(t, "Asha Rao", r.FormValue("name"))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "booking_id": "7"})
	})
	c := newTestClient(t, mux)

	sub := testSubmission()
	sub.Form.Attachments = []booking.Attachment{{Filename: "brief.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}}
	id, err := c.SubmitBooking(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "7", id)
}

func TestSubmitBookingErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server message", http.StatusBadRequest, `{"success":false,"error":"Cannot book appointments in the past."}`, "Cannot book appointments in the past."},
		{"no message", http.StatusBadRequest, `{"success":false}`, booking.GenericSubmissionMessage},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, booking.GenericSubmissionMessage},
		{"missing id", http.StatusOK, `{"success":true}`, booking.GenericSubmissionMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == csrfPath {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))

			_, err := c.SubmitBooking(context.Background(), testSubmission())
			var serr *booking.SubmissionError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tc.message, serr.Error())
		})
	}
}
