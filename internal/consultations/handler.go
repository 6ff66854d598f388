package consultations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

const defaultMaxUploadBytes int64 = 10 << 20

// Handler serves the public booking endpoints.
type Handler struct {
	svc       *Service
	logger    *logging.Logger
	maxUpload int64
}

func NewHandler(svc *Service, logger *logging.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{svc: svc, logger: logger, maxUpload: maxUploadBytes}
}

type submitResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"booking_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Packages handles GET /api/packages/.
func (h *Handler) Packages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"packages": Packages()})
}

// Package handles GET /booking/{duration}/ with the package the page offers.
func (h *Handler) Package(w http.ResponseWriter, r *http.Request) {
	pkg, _ := LookupPackage(chi.URLParam(r, "duration"))
	writeJSON(w, http.StatusOK, pkg)
}

// Submit handles POST /booking/{duration}/ with a urlencoded or multipart form.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	req, err := h.parseSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, submitResponse{Error: "Uploaded documents are too large."})
			return
		}
		h.logger.Warn("booking form unreadable", "error", err)
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "Invalid booking form."})
		return
	}

	res, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		var rej *RejectionError
		if errors.As(err, &rej) {
			writeJSON(w, rejectionStatus(rej.Reason), submitResponse{Error: rej.Message})
			return
		}
		h.logger.Error("booking submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, submitResponse{Error: booking.GenericSubmissionMessage})
		return
	}

	msg := "Booking created successfully. Admin will contact you for payment."
	if res.Existing {
		msg = "Booking already exists."
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, BookingID: res.Booking.ID, Message: msg})
}

func (h *Handler) parseSubmission(r *http.Request) (SubmitRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return SubmitRequest{}, err
		}
	} else if err := r.ParseForm(); err != nil {
		return SubmitRequest{}, err
	}

	field := func(names ...string) string {
		for _, n := range names {
			if v := strings.TrimSpace(r.PostFormValue(n)); v != "" {
				return v
			}
		}
		return ""
	}

	pkg, _ := LookupPackage(chi.URLParam(r, "duration"))
	form := booking.FormData{
		Name:            field("name"),
		Email:           field("email"),
		Phone:           field("phone"),
		Company:         field("company"),
		Designation:     field("designation"),
		Topic:           field("topic", "consultation_topic"),
		Mode:            normalizeMode(field("mode", "consultation_mode")),
		Newsletter:      checked(field("newsletter")),
		TermsAccepted:   checked(field("terms")),
		DurationMinutes: pkg.DurationMinutes,
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["documents"] {
			f, err := fh.Open()
			if err != nil {
				return SubmitRequest{}, fmt.Errorf("consultations: open %s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return SubmitRequest{}, fmt.Errorf("consultations: read %s: %w", fh.Filename, err)
			}
			form.Attachments = append(form.Attachments, booking.Attachment{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	return SubmitRequest{
		PackageKey:   pkg.Key,
		SelectedDate: field("selected_date"),
		SelectedTime: field("selected_time"),
		Form:         form,
	}, nil
}

func rejectionStatus(reason string) int {
	switch reason {
	case ReasonDuplicate, ReasonUnavailable:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func normalizeMode(mode string) string {
	switch mode {
	case booking.ModeVideo, booking.ModePhone, booking.ModeInPerson:
		return mode
	default:
		return booking.ModeVideo
	}
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
