package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking gateway.
type BookingMetrics struct {
	createdTotal        *prometheus.CounterVec
	rejectedTotal       *prometheus.CounterVec
	transitionsTotal    *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultation",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Bookings created, by package",
		}, []string{"package"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultation",
			Subsystem: "booking",
			Name:      "rejected_total",
			Help:      "Booking submissions rejected, by reason",
		}, []string{"reason"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultation",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Admin status changes",
		}, []string{"from", "to"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "consultation",
			Subsystem: "availability",
			Name:      "request_latency_seconds",
			Help:      "Latency of availability lookups",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.rejectedTotal, m.transitionsTotal, m.availabilityLatency)
	return m
}

func (m *BookingMetrics) ObserveCreated(pkg string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(pkg).Inc()
}

func (m *BookingMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveAvailabilityLatency records a lookup; scope is "month" or "slots".
func (m *BookingMetrics) ObserveAvailabilityLatency(scope string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.WithLabelValues(scope).Observe(seconds)
}
