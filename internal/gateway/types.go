package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
)

type monthResponse struct {
	Year     int          `json:"year"`
	Month    int          `json:"month"`
	Duration flexInt      `json:"duration"`
	Dates    []monthEntry `json:"dates"`
}

type monthEntry struct {
	Date            string `json:"date"`
	Day             int    `json:"day"`
	HasAvailability bool   `json:"has_availability"`
	IsPast          bool   `json:"is_past"`
}

type slotsResponse struct {
	Date           string      `json:"date"`
	Duration       flexInt     `json:"duration"`
	AvailableSlots []slotEntry `json:"available_slots"`
	IsToday        bool        `json:"is_today"`
	CurrentTime    *string     `json:"current_time"`
	Error          string      `json:"error,omitempty"`
}

type slotEntry struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Display   string `json:"display"`
}

type submitResponse struct {
	Success   bool    `json:"success"`
	BookingID flexStr `json:"booking_id"`
	Message   string  `json:"message"`
	Error     string  `json:"error"`
}

type csrfResponse struct {
	Token string `json:"csrf_token"`
}

// flexInt accepts 45 or "45".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexStr accepts "42" or 42.
type flexStr string

func (f *flexStr) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexStr(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexStr(n.String())
	return nil
}
