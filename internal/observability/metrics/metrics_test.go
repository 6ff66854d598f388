package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveCreated("45-min")
	m.ObserveCreated("45-min")
	m.ObserveRejected("past")
	m.ObserveTransition("pending", "cancelled")
	m.ObserveAvailabilityLatency("slots", 0.02)

	if got := testutil.ToFloat64(m.createdTotal.WithLabelValues("45-min")); got != 2 {
		t.Fatalf("expected 2 created, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejectedTotal.WithLabelValues("past")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("pending", "cancelled")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.CollectAndCount(m.availabilityLatency); got != 1 {
		t.Fatalf("expected one latency series, got %d", got)
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveCreated("30-min")
	m.ObserveRejected("duplicate")
	m.ObserveTransition("pending", "completed")
	m.ObserveAvailabilityLatency("month", 0.1)
}
