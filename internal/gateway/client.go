// Package gateway is the HTTP client for the booking availability service:
// month availability, day slots and booking submission.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

const (
	defaultTimeout = 10 * time.Second

	monthPath = "/api/date-availability/"
	slotsPath = "/api/available-slots/"
	csrfPath  = "/api/csrf/"

	csrfHeader = "X-CSRFToken"
)

// Client talks to the booking gateway. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.Logger

	mu        sync.Mutex
	csrfToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a gateway client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		timeout: defaultTimeout,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("gateway: cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// MonthAvailability fetches which dates of a month have at least one slot.
// month is 1-based.
func (c *Client) MonthAvailability(ctx context.Context, year, month, durationMinutes int) ([]booking.DayAvailability, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	q.Set("duration", strconv.Itoa(durationMinutes))

	var out monthResponse
	if err := c.getJSON(ctx, monthPath, q, &out); err != nil {
		return nil, &booking.AvailabilityError{Scope: "month", Key: fmt.Sprintf("%04d-%02d", year, month), Err: err}
	}

	days := make([]booking.DayAvailability, 0, len(out.Dates))
	for _, d := range out.Dates {
		days = append(days, booking.DayAvailability{Date: d.Date, HasAvailability: d.HasAvailability})
	}
	return days, nil
}

// DaySlots fetches the free slots of date for the given duration.
func (c *Client) DaySlots(ctx context.Context, date string, durationMinutes int) (booking.SlotSet, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("duration", strconv.Itoa(durationMinutes))

	var out slotsResponse
	if err := c.getJSON(ctx, slotsPath, q, &out); err != nil {
		return booking.SlotSet{}, &booking.AvailabilityError{Scope: "slots", Key: date, Err: err}
	}

	duration := int(out.Duration)
	if duration <= 0 {
		duration = durationMinutes
	}
	set := booking.SlotSet{IsToday: out.IsToday}
	if out.CurrentTime != nil {
		set.CurrentTime = *out.CurrentTime
	}
	for _, s := range out.AvailableSlots {
		set.Slots = append(set.Slots, booking.TimeSlot{
			ID:              s.ID,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationMinutes: duration,
			Label:           s.Display,
		})
	}
	return set, nil
}

// SubmitBooking posts the booking form and returns the new booking id.
// Failures are reported as *booking.SubmissionError.
func (c *Client) SubmitBooking(ctx context.Context, sub booking.Submission) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token := c.ensureCSRF(ctx)

	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return "", &booking.SubmissionError{Message: booking.GenericSubmissionMessage, Err: err}
	}

	endpoint := c.resolve("/booking/"+booking.DurationKey(sub.Form.DurationMinutes)+"/", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", &booking.SubmissionError{Message: booking.GenericSubmissionMessage, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL.String()+"/")
	if token != "" {
		req.Header.Set(csrfHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway: booking request failed", "error", err)
		return "", &booking.SubmissionError{Message: booking.GenericSubmissionMessage, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &booking.SubmissionError{Message: booking.GenericSubmissionMessage, StatusCode: resp.StatusCode, Err: err}
	}

	var out submitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &booking.SubmissionError{
			Message:    booking.GenericSubmissionMessage,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gateway: status %d: %s", resp.StatusCode, truncate(string(respBody), 300)),
		}
	}
	if !out.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = booking.GenericSubmissionMessage
		}
		return "", &booking.SubmissionError{Message: msg, StatusCode: resp.StatusCode}
	}
	if out.BookingID == "" {
		return "", &booking.SubmissionError{
			Message:    booking.GenericSubmissionMessage,
			StatusCode: resp.StatusCode,
			Err:        errors.New("gateway: response missing booking id"),
		}
	}

	c.logger.Info("gateway: booking accepted", "booking_id", string(out.BookingID), "date", sub.Date, "time", sub.Slot.StartTime)
	return string(out.BookingID), nil
}

// ensureCSRF fetches the anti-forgery token once. A gateway without CSRF
// protection simply yields an empty token.
func (c *Client) ensureCSRF(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.csrfToken != "" {
		return c.csrfToken
	}
	var out csrfResponse
	if err := c.getJSON(ctx, csrfPath, nil, &out); err != nil {
		c.logger.Debug("gateway: csrf token unavailable", "error", err)
		return ""
	}
	c.csrfToken = out.Token
	return c.csrfToken
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path, q), nil)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway: unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func formFields(sub booking.Submission) url.Values {
	f := sub.Form
	v := url.Values{}
	v.Set("name", f.Name)
	v.Set("email", f.Email)
	v.Set("phone", f.Phone)
	v.Set("company", f.Company)
	v.Set("designation", f.Designation)
	v.Set("topic", f.Topic)
	v.Set("mode", f.Mode)
	if f.Newsletter {
		v.Set("newsletter", "on")
	}
	if f.TermsAccepted {
		v.Set("terms", "on")
	}
	v.Set("selected_date", sub.Date)
	v.Set("selected_time", sub.Slot.StartTime)
	v.Set("selected_slot_id", sub.Slot.ID)
	v.Set("appointment_datetime", sub.AppointmentDatetime())
	v.Set("duration", strconv.Itoa(f.DurationMinutes))
	v.Set("duration_minutes", strconv.Itoa(f.DurationMinutes))
	return v
}

// encodeSubmission builds a urlencoded body, or multipart when documents
// are attached.
func encodeSubmission(sub booking.Submission) (io.Reader, string, error) {
	fields := formFields(sub)
	if len(sub.Form.Attachments) == 0 {
		return strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, value := range values {
			if err := mw.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("gateway: write field %s: %w", key, err)
			}
		}
	}
	for _, a := range sub.Form.Attachments {
		part, err := mw.CreateFormFile("documents", a.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("gateway: attach %s: %w", a.Filename, err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("gateway: attach %s: %w", a.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("gateway: close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
