package availability

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// Handler serves the public availability endpoints.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

type slotJSON struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
	Display   string `json:"display"`
}

type daySlotsResponse struct {
	Date           string     `json:"date"`
	Duration       int        `json:"duration"`
	AvailableSlots []slotJSON `json:"available_slots"`
	WorkingHours   string     `json:"working_hours"`
	IsToday        bool       `json:"is_today"`
	CurrentTime    *string    `json:"current_time"`
}

type dateJSON struct {
	Date            string `json:"date"`
	Day             int    `json:"day"`
	HasAvailability bool   `json:"has_availability"`
	IsPast          bool   `json:"is_past"`
}

type monthResponse struct {
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Duration int        `json:"duration"`
	Dates    []dateJSON `json:"dates"`
}

// Slots handles GET /api/available-slots/?date=YYYY-MM-DD&duration=45.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("date"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No date provided"})
		return
	}
	date, err := h.engine.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date format"})
		return
	}
	duration := parseDuration(q.Get("duration"))

	day, err := h.engine.DaySlots(r.Context(), date, duration)
	if err != nil {
		h.logger.Error("availability: day slots failed", "error", err, "date", raw)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not load available slots"})
		return
	}

	resp := daySlotsResponse{
		Date:           raw,
		Duration:       day.DurationMinutes,
		AvailableSlots: make([]slotJSON, 0, len(day.Slots)),
		WorkingHours:   h.engine.WorkingHours(),
		IsToday:        day.IsToday,
	}
	if day.IsToday {
		current := day.CurrentTime
		resp.CurrentTime = &current
	}
	for _, s := range day.Slots {
		resp.AvailableSlots = append(resp.AvailableSlots, slotJSON{
			ID:        s.ID,
			StartTime: s.Start.Format("15:04"),
			EndTime:   s.End.Format("15:04"),
			Duration:  s.DurationMinutes,
			Display:   s.Display(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Month handles GET /api/date-availability/?year=2025&month=6&duration=45.
// Missing year or month default to the current one.
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := h.engine.Now()
	year, month := now.Year(), int(now.Month())
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid year"})
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid month"})
			return
		}
		month = n
	}
	duration := NormalizeDuration(parseDuration(q.Get("duration")))

	days, err := h.engine.Month(r.Context(), year, month, duration)
	if err != nil {
		h.logger.Error("availability: month failed", "error", err, "year", year, "month", month)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not load availability"})
		return
	}

	resp := monthResponse{Year: year, Month: month, Duration: duration, Dates: make([]dateJSON, 0, len(days))}
	for _, d := range days {
		resp.Dates = append(resp.Dates, dateJSON{
			Date:            d.Date.Format(dateLayout),
			Day:             d.Date.Day(),
			HasAvailability: d.HasAvailability,
			IsPast:          d.IsPast,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseDuration accepts "45" or "45-min"; anything else yields 0, which the
// engine maps to the default.
func parseDuration(raw string) int {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "-min")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
