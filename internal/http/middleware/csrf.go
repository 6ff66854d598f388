package middleware

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// CSRFHeader carries the token on widget submissions.
const CSRFHeader = "X-CSRFToken"

const csrfCookie = "csrftoken"

type CSRFConfig struct {
	// Key seeds the cookie signing key. Empty disables protection.
	Key string
	// Secure marks the cookie HTTPS-only and enforces Referer checks.
	Secure bool
	// TrustedOrigins are widget origins allowed to submit cross-site.
	TrustedOrigins []string
}

// CSRF guards unsafe methods with a double-submit token from gorilla/csrf.
func CSRF(cfg CSRFConfig, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.Key) == "" {
		logger.Warn("csrf protection disabled: CSRF_KEY not set")
		return func(next http.Handler) http.Handler { return next }
	}

	key := sha256.Sum256([]byte(cfg.Key))
	protect := csrf.Protect(key[:],
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.CookieName(csrfCookie),
		csrf.RequestHeader(CSRFHeader),
		csrf.FieldName("csrfmiddlewaretoken"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(originHosts(cfg.TrustedOrigins)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			writeError(w, http.StatusForbidden, "CSRF verification failed. Please refresh and try again.")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if cfg.Secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFToken handles GET /api/csrf/ so script clients can read a fresh token.
func CSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"csrf_token": csrf.Token(r),
		"header":     CSRFHeader,
	})
}

func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
