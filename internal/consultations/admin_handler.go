package consultations

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// AdminHandler serves booking management behind admin auth.
type AdminHandler struct {
	svc    *Service
	logger *logging.Logger
}

func NewAdminHandler(svc *Service, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{svc: svc, logger: logger}
}

// Routes mounts the admin endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/bookings", h.List)
	r.Get("/bookings/{bookingID}", h.Get)
	r.Get("/bookings/{bookingID}/documents/{documentID}", h.Document)
	r.Post("/bookings/{bookingID}/cancel", h.Cancel)
	r.Post("/bookings/{bookingID}/confirm", h.Confirm)
	r.Post("/bookings/{bookingID}/complete", h.Complete)
	r.Post("/bookings/{bookingID}/pending", h.MarkPending)
}

type listResponse struct {
	Bookings     []*Booking `json:"bookings"`
	Count        int        `json:"count"`
	Stats        Stats      `json:"stats"`
	StatusFilter string     `json:"status_filter"`
	DateFilter   string     `json:"date_filter"`
}

// List handles GET /admin/bookings?status=pending&date=2025-06-10.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
	}
	items, stats, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*Booking{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Bookings:     items,
		Count:        len(items),
		Stats:        stats,
		StatusFilter: string(filter.Status),
		DateFilter:   filter.Date,
	})
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Document streams an uploaded file as an attachment download.
func (h *AdminHandler) Document(w http.ResponseWriter, r *http.Request) {
	doc, rc, err := h.svc.OpenDocument(r.Context(), chi.URLParam(r, "bookingID"), chi.URLParam(r, "documentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("document download interrupted", "booking_id", doc.BookingID, "document_id", doc.ID, "error", err)
	}
}

// Cancel accepts the reason as a form field or a JSON body.
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "bookingID"), cancellationReason(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Complete(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.MarkPending(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking not found"})
	case errors.Is(err, ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
	case errors.Is(err, ErrSlotTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already booked"})
	default:
		h.logger.Error("admin booking request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func cancellationReason(r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
			return ""
		}
		return body.Reason
	}
	return r.PostFormValue("reason")
}
