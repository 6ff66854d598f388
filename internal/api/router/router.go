package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/consultation-booking/internal/availability"
	"github.com/wolfman30/consultation-booking/internal/consultations"
	httpmiddleware "github.com/wolfman30/consultation-booking/internal/http/middleware"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Availability  *availability.Handler
	Bookings      *consultations.Handler
	AdminBookings *consultations.AdminHandler

	AdminAuthSecret    string
	CSRF               httpmiddleware.CSRFConfig
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MetricsHandler     http.Handler

	// HealthCheck reports dependency health; nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthCheck))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Widget-facing endpoints share rate limiting and CSRF protection.
	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		public.Use(httpmiddleware.CSRF(cfg.CSRF, cfg.Logger))

		public.Get("/api/csrf/", httpmiddleware.CSRFToken)
		if cfg.Availability != nil {
			public.Get("/api/available-slots/", cfg.Availability.Slots)
			public.Get("/api/date-availability/", cfg.Availability.Month)
		}
		if cfg.Bookings != nil {
			public.Get("/api/packages/", cfg.Bookings.Packages)
			public.Get("/booking/{duration}/", cfg.Bookings.Package)
			public.Post("/booking/{duration}/", cfg.Bookings.Submit)
		}
	})

	if cfg.AdminBookings != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.AdminBookings.Routes(admin)
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
