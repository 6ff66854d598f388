package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, *AdminClaims) {
	t.Helper()
	var seen *AdminClaims
	h := AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminClaimsFromContext(r.Context())
		require.True(t, ok, "expected admin claims in context")
		seen = &claims
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestAdminJWTMissingSecret(t *testing.T) {
	rec, _ := serveAdmin(t, "", "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"admin auth disabled"}`, rec.Body.String())
}

func TestAdminJWTMissingHeader(t *testing.T) {
	rec, _ := serveAdmin(t, "secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTInvalidToken(t *testing.T) {
	token, err := IssueAdminToken("wrong", "ops@example.com", time.Minute, time.Now())
	require.NoError(t, err)

	rec, _ := serveAdmin(t, "secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTExpiredToken(t *testing.T) {
	token, err := IssueAdminToken("secret", "ops@example.com", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	rec, _ := serveAdmin(t, "secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTRejectsForeignIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	rec, _ := serveAdmin(t, "secret", "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTValidToken(t *testing.T) {
	token, err := IssueAdminToken("secret", "ops@example.com", 0, time.Now())
	require.NoError(t, err)

	rec, claims := serveAdmin(t, "secret", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, AdminIssuer, claims.Issuer)
}

func TestIssueAdminTokenRequiresSecret(t *testing.T) {
	_, err := IssueAdminToken("", "ops@example.com", time.Hour, time.Now())
	assert.Error(t, err)
}
