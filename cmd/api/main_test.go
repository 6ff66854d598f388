package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/consultation-booking/internal/config"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Env:              "test",
		BookingTimezone:  "UTC",
		BookingOpenHour:  9,
		BookingCloseHour: 17,
		SlotStep:         15 * time.Minute,
		BookingBuffer:    15 * time.Minute,
		AdminJWTSecret:   "api-secret",
	}
}

func TestSetupMetricsExposesRuntimeCollectors(t *testing.T) {
	handler, reg := setupMetrics()
	require.NotNil(t, reg)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestBuildHandlerServesAvailabilityAndMetrics(t *testing.T) {
	cfg := testConfig()
	logger := logging.Discard()
	metricsHandler, reg := setupMetrics()
	rt := bootstrap.Build(cfg, logger, bootstrap.Deps{Registerer: reg})
	h := buildHandler(cfg, logger, rt, metricsHandler, healthCheck(nil, nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/packages/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "60-min")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines"))
}

func TestHealthCheckReportsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	check := healthCheck(nil, client)
	require.NoError(t, check(context.Background()))

	mr.Close()
	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
